package selection

import (
	"errors"
	"net/http"
	"strconv"

	"cineseat/internal/ledger"
	"cineseat/internal/seatmap"
	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	seatmaps seatmap.Service
	ledger   ledger.Ledger
}

func NewController(seatmaps seatmap.Service, ldg ledger.Ledger) *Controller {
	return &Controller{seatmaps: seatmaps, ledger: ldg}
}

// Suggest proposes consecutive free seats next to an anchor seat for one
// showtime. The suggestion is advisory: seats are only secured by a
// subsequent booking confirmation.
func (c *Controller) Suggest(ctx *gin.Context) {
	showtime := ledger.ShowtimeKey{
		ScreenID: ctx.Param("id"),
		Date:     ctx.Param("date"),
		Time:     ctx.Param("time"),
	}
	if showtime.ScreenID == "" || showtime.Date == "" || showtime.Time == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID, show date and show time are required", nil, "incomplete showtime")
		return
	}

	row := ctx.Query("row")
	if row == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Anchor row is required", nil, "missing row query parameter")
		return
	}
	number, err := strconv.Atoi(ctx.Query("number"))
	if err != nil || number < 1 {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Anchor seat number must be a positive integer", nil, "invalid number query parameter")
		return
	}
	count, err := strconv.Atoi(ctx.DefaultQuery("count", "1"))
	if err != nil || count < 1 {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Seat count must be a positive integer", nil, "invalid count query parameter")
		return
	}

	doc, err := c.seatmaps.GetSeatMap(ctx.Request.Context(), showtime.ScreenID)
	if err != nil {
		if errors.Is(err, seatmap.ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to load seat map", nil, err.Error())
		return
	}

	snapshot, err := c.ledger.Snapshot(ctx.Request.Context(), showtime)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Failed to read reservation state", nil, err.Error())
		return
	}
	reserved := make(map[ledger.SeatKey]bool, len(snapshot))
	for _, key := range snapshot {
		reserved[key] = true
	}

	suggested := Find(doc.Seats, reserved, row, number, count)

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat suggestion computed", gin.H{
		"requested_count": count,
		"suggested_count": len(suggested),
		"seats":           suggested,
	}, nil)
}
