package seatmap

import (
	"github.com/gin-gonic/gin"
)

func SetupSeatMapRoutes(rg *gin.RouterGroup, controller *Controller) {
	screens := rg.Group("/screens")
	{
		screens.GET("/:id/seatmap", controller.GetSeatMap)      // GET /api/v1/screens/:id/seatmap
		screens.PUT("/:id/layout", controller.SaveLayout)       // PUT /api/v1/screens/:id/layout
		screens.PATCH("/:id/seats", controller.UpsertOverrides) // PATCH /api/v1/screens/:id/seats
		screens.DELETE("/:id/seats", controller.ResetOverrides) // DELETE /api/v1/screens/:id/seats
	}
}
