// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"cineseat/internal/bookings"
	"cineseat/internal/cancellation"
	"cineseat/internal/ledger"
	"cineseat/internal/livesync"
	"cineseat/internal/seatmap"
	"cineseat/internal/selection"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/database"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	ledger ledger.Ledger
	hub    *livesync.Hub
	events bookings.EventPublisher
	log    *logger.Logger

	seatmapService seatmap.Service // shared across feature packages
	bookingService bookings.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, ldg ledger.Ledger, hub *livesync.Hub, events bookings.EventPublisher, log *logger.Logger) *Router {
	return &Router{
		config: cfg,
		db:     db,
		ledger: ldg,
		hub:    hub,
		events: events,
		log:    log,
	}
}

// BookingService exposes the booking coordinator so main can start its
// payment sweeper alongside the other background loops.
func (r *Router) BookingService() bookings.Service {
	return r.bookingService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Seat map routes come first: the other feature packages share its
		// service.
		r.setupSeatMapRoutes(api)
		r.setupSelectionRoutes(api)
		r.setupLiveSyncRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cineseat-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cineseat-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupSeatMapRoutes configures screen layout and seat map routes
func (r *Router) setupSeatMapRoutes(rg *gin.RouterGroup) {
	seatmapRepo := seatmap.NewRepository(r.db.GetPostgreSQL())
	cacheService := cache.NewService(r.db.GetRedis())
	r.seatmapService = seatmap.NewService(seatmapRepo, cacheService, r.config.Redis.CacheTTL, r.log)

	seatmapController := seatmap.NewController(r.seatmapService)
	seatmap.SetupSeatMapRoutes(rg, seatmapController)
}

// setupSelectionRoutes configures consecutive seat suggestion routes
func (r *Router) setupSelectionRoutes(rg *gin.RouterGroup) {
	selectionController := selection.NewController(r.seatmapService, r.ledger)
	selection.SetupSelectionRoutes(rg, selectionController)
}

// setupLiveSyncRoutes configures live reservation sync routes
func (r *Router) setupLiveSyncRoutes(rg *gin.RouterGroup) {
	livesyncController := livesync.NewController(r.hub, r.ledger, r.seatmapService)
	livesync.SetupLiveSyncRoutes(rg, livesyncController)
}

// setupBookingRoutes configures booking management routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	policy := cancellation.Policy{
		FullRefundAfterHours: r.config.Cancellation.FullRefundAfterHours,
		LateFeeFraction:      r.config.Cancellation.LateFeeFraction,
		CutoffHours:          r.config.Cancellation.CutoffHours,
	}

	r.bookingService = bookings.NewService(
		bookingRepo,
		r.ledger,
		r.seatmapService,
		policy,
		r.hub,
		r.events,
		r.config.Ledger.SeatHoldTTL,
		r.config.Ledger.PaymentDeadline,
		r.log,
	)

	bookingController := bookings.NewController(r.bookingService, r.log)
	bookings.SetupBookingRoutes(rg, bookingController)
}
