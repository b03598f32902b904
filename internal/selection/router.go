package selection

import (
	"github.com/gin-gonic/gin"
)

func SetupSelectionRoutes(rg *gin.RouterGroup, controller *Controller) {
	shows := rg.Group("/screens/:id/shows/:date/:time")
	{
		shows.GET("/suggest", controller.Suggest) // GET /api/v1/screens/:id/shows/:date/:time/suggest?row=D&number=6&count=3
	}
}
