package selection

import (
	"cineseat/internal/ledger"
	"cineseat/internal/seatmap"
)

// Find suggests up to count consecutive seats in the row of the anchor seat.
// It scans rightward from the anchor first; if the run is cut short by a
// reserved or inactive seat (or the row edge), it extends leftward from the
// anchor to make up the difference. The result is always ordered left to
// right and may be shorter than count when the row cannot satisfy it; the
// caller decides whether a partial suggestion is acceptable.
//
// Aisles never appear because aisle positions carry no seat at all. The
// function is pure: it inspects the grid and the reserved set it is given
// and takes no locks, so a suggestion is only a hint until TryHold succeeds.
func Find(seats []seatmap.Seat, reserved map[ledger.SeatKey]bool, startRow string, startNumber, count int) []seatmap.Seat {
	if count <= 0 {
		return []seatmap.Seat{}
	}

	row := make([]seatmap.Seat, 0, 16)
	for _, seat := range seats {
		if seat.RowLabel == startRow {
			row = append(row, seat)
		}
	}

	// Generate emits rows left to right already; index by seat number for
	// the walk.
	byNumber := make(map[int]seatmap.Seat, len(row))
	maxNumber := 0
	for _, seat := range row {
		byNumber[seat.Number] = seat
		if seat.Number > maxNumber {
			maxNumber = seat.Number
		}
	}

	selectable := func(n int) (seatmap.Seat, bool) {
		seat, ok := byNumber[n]
		if !ok || !seat.IsActive || seat.Status == seatmap.StatusDeleted {
			return seatmap.Seat{}, false
		}
		if reserved[seat.Key()] {
			return seatmap.Seat{}, false
		}
		return seat, true
	}

	var picked []seatmap.Seat
	for n := startNumber; n <= maxNumber && len(picked) < count; n++ {
		seat, ok := selectable(n)
		if !ok {
			break
		}
		picked = append(picked, seat)
	}

	// Rightward run fell short: grow leftward from the anchor, prepending so
	// the final order stays left to right.
	for n := startNumber - 1; n >= 1 && len(picked) < count; n-- {
		seat, ok := selectable(n)
		if !ok {
			break
		}
		picked = append([]seatmap.Seat{seat}, picked...)
	}

	if picked == nil {
		return []seatmap.Seat{}
	}
	return picked
}
