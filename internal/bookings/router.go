package bookings

import (
	"cineseat/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.HolderToken())
	{
		bookings.POST("/confirm", controller.Confirm)                        // POST /api/v1/bookings/confirm
		bookings.POST("/:id/payment-result", controller.HandlePaymentResult) // POST /api/v1/bookings/:id/payment-result
		bookings.POST("/:id/cancel", controller.Cancel)                      // POST /api/v1/bookings/:id/cancel
		bookings.GET("/:id", controller.GetBooking)                          // GET /api/v1/bookings/:id
		bookings.GET("", controller.GetMyBookings)                           // GET /api/v1/bookings
	}
}
