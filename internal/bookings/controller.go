package bookings

import (
	"errors"
	"net/http"

	"cineseat/internal/cancellation"
	"cineseat/internal/ledger"
	"cineseat/internal/shared/middleware"
	"cineseat/internal/shared/utils/response"
	"cineseat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	return &Controller{service: service, log: log}
}

func (c *Controller) Confirm(ctx *gin.Context) {
	holder, ok := middleware.Holder(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Holder token is required", nil, nil)
		return
	}

	var req ConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	booking, err := c.service.Confirm(ctx.Request.Context(), holder, req)
	if err != nil {
		c.respondConfirmError(ctx, req.Showtime(), err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Booking created, awaiting payment", booking, nil)
}

func (c *Controller) respondConfirmError(ctx *gin.Context, showtime ledger.ShowtimeKey, err error) {
	var conflictErr *SeatConflictError
	if errors.As(err, &conflictErr) {
		c.log.LogSeatConflict(ctx.Request.Context(), showtime.String(), conflictErr.ConflictKeys())
		response.RespondJSON(ctx, "error", http.StatusConflict, "Some seats are no longer available", gin.H{
			"code":      "SEAT_CONFLICT",
			"conflicts": conflictErr.ConflictKeys(),
		}, err.Error())
		return
	}

	var staleErr *StalePricingError
	if errors.As(err, &staleErr) {
		response.RespondJSON(ctx, "error", http.StatusConflict, "Seat pricing has changed, refresh and retry", gin.H{
			"code":  "STALE_PRICING",
			"seats": staleErr.Seats,
		}, err.Error())
		return
	}

	if errors.Is(err, ledger.ErrLedgerTimeout) {
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Reservation system is busy, retry shortly", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to confirm booking", nil, err.Error())
}

func (c *Controller) HandlePaymentResult(ctx *gin.Context) {
	holder, ok := middleware.Holder(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Holder token is required", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}

	var req PaymentResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	booking, err := c.service.HandlePaymentResult(ctx.Request.Context(), holder, bookingID, req.Success)
	if err != nil {
		var conflictErr *SeatConflictError
		switch {
		case errors.As(err, &conflictErr):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Seat hold expired before payment settled", gin.H{
				"code":      "SEAT_CONFLICT",
				"conflicts": conflictErr.ConflictKeys(),
			}, err.Error())
		case errors.Is(err, ErrBookingNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, err.Error())
		case errors.Is(err, ErrNotBookingHolder):
			response.RespondJSON(ctx, "error", http.StatusForbidden, "Booking belongs to a different holder", nil, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Booking cannot accept a payment result", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to process payment result", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment result processed", booking, nil)
}

func (c *Controller) Cancel(ctx *gin.Context) {
	holder, ok := middleware.Holder(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Holder token is required", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}

	var req CancelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && ctx.Request.ContentLength > 0 {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	booking, err := c.service.Cancel(ctx.Request.Context(), holder, bookingID, req.Reason)
	if err != nil {
		var blockedErr *CancellationBlockedError
		switch {
		case errors.As(err, &blockedErr):
			response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Cancellation not allowed", gin.H{
				"code":   "CANCELLATION_BLOCKED",
				"reason": blockedErr.Reason,
			}, err.Error())
		case errors.Is(err, cancellation.ErrInvalidShowtime):
			response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Booking showtime cannot be evaluated", nil, err.Error())
		case errors.Is(err, ErrBookingNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, err.Error())
		case errors.Is(err, ErrNotBookingHolder):
			response.RespondJSON(ctx, "error", http.StatusForbidden, "Booking belongs to a different holder", nil, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Only confirmed bookings can be cancelled", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to cancel booking", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking cancelled successfully", booking, nil)
}

func (c *Controller) GetBooking(ctx *gin.Context) {
	holder, ok := middleware.Holder(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Holder token is required", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), holder, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, err.Error())
		case errors.Is(err, ErrNotBookingHolder):
			response.RespondJSON(ctx, "error", http.StatusForbidden, "Booking belongs to a different holder", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get booking", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

func (c *Controller) GetMyBookings(ctx *gin.Context) {
	holder, ok := middleware.Holder(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Holder token is required", nil, nil)
		return
	}

	list, err := c.service.GetHolderBookings(ctx.Request.Context(), holder)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list bookings", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}
