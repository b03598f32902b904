package livesync

import (
	"github.com/gin-gonic/gin"
)

func SetupLiveSyncRoutes(rg *gin.RouterGroup, controller *Controller) {
	shows := rg.Group("/screens/:id/shows/:date/:time")
	{
		shows.GET("/reservations", controller.GetReservations)           // GET /api/v1/screens/:id/shows/:date/:time/reservations
		shows.GET("/reservations/stream", controller.StreamReservations) // SSE
	}
}
