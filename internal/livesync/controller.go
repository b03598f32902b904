package livesync

import (
	"errors"
	"io"
	"net/http"

	"cineseat/internal/ledger"
	"cineseat/internal/seatmap"
	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	hub      *Hub
	ledger   ledger.Ledger
	seatmaps seatmap.Service
}

func NewController(hub *Hub, ldg ledger.Ledger, seatmaps seatmap.Service) *Controller {
	return &Controller{hub: hub, ledger: ldg, seatmaps: seatmaps}
}

func showtimeFromParams(ctx *gin.Context) (ledger.ShowtimeKey, bool) {
	showtime := ledger.ShowtimeKey{
		ScreenID: ctx.Param("id"),
		Date:     ctx.Param("date"),
		Time:     ctx.Param("time"),
	}
	return showtime, showtime.ScreenID != "" && showtime.Date != "" && showtime.Time != ""
}

// reservationPayload is the client-facing poll/stream shape: the full
// reserved set plus occupancy totals, never a delta.
type reservationPayload struct {
	ReservedSeats  []string `json:"reservedSeats"`
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
}

func (c *Controller) payload(reserved []ledger.SeatKey, totalSeats int) reservationPayload {
	keys := make([]string, 0, len(reserved))
	for _, seat := range reserved {
		keys = append(keys, seat.String())
	}
	available := totalSeats - len(reserved)
	if available < 0 {
		available = 0
	}
	return reservationPayload{
		ReservedSeats:  keys,
		TotalSeats:     totalSeats,
		AvailableSeats: available,
	}
}

func (c *Controller) activeSeatCount(ctx *gin.Context, screenID string) (int, error) {
	doc, err := c.seatmaps.GetSeatMap(ctx.Request.Context(), screenID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, seat := range doc.Seats {
		if seat.IsActive {
			total++
		}
	}
	return total, nil
}

// GetReservations is the polling endpoint: one full snapshot per request.
func (c *Controller) GetReservations(ctx *gin.Context) {
	showtime, ok := showtimeFromParams(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID, show date and show time are required", nil, "incomplete showtime")
		return
	}

	total, err := c.activeSeatCount(ctx, showtime.ScreenID)
	if err != nil {
		if errors.Is(err, seatmap.ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to load seat map", nil, err.Error())
		return
	}

	reserved, err := c.ledger.Snapshot(ctx.Request.Context(), showtime)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Failed to read reservation state", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservations retrieved successfully", c.payload(reserved, total), nil)
}

// StreamReservations pushes full snapshots over SSE until the client
// disconnects. The first event arrives immediately on subscribe.
func (c *Controller) StreamReservations(ctx *gin.Context) {
	showtime, ok := showtimeFromParams(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID, show date and show time are required", nil, "incomplete showtime")
		return
	}

	total, err := c.activeSeatCount(ctx, showtime.ScreenID)
	if err != nil {
		if errors.Is(err, seatmap.ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to load seat map", nil, err.Error())
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")

	sub := c.hub.Subscribe(showtime)
	defer sub.Close()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case snap, open := <-sub.C:
			if !open {
				return false
			}
			ctx.SSEvent("reservations", c.payload(snap.Reserved, total))
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
