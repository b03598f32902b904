package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ShowtimeKey identifies a single screening of a film on a screen.
type ShowtimeKey struct {
	ScreenID string `json:"screen_id"`
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // as supplied by the catalog, e.g. "19:30" or "7:30 PM"
}

func (k ShowtimeKey) String() string {
	return k.ScreenID + "|" + k.Date + "|" + k.Time
}

// SeatKey identifies a seat within a screen. The pair is stable for the
// lifetime of the screen even when geometry is edited.
type SeatKey struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

func (k SeatKey) String() string {
	return k.Row + "-" + strconv.Itoa(k.Number)
}

// ParseSeatKey parses the "D-6" form produced by SeatKey.String.
func ParseSeatKey(s string) (SeatKey, error) {
	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return SeatKey{}, fmt.Errorf("invalid seat key %q", s)
	}
	n, err := strconv.Atoi(s[idx+1:])
	if err != nil || n < 1 {
		return SeatKey{}, fmt.Errorf("invalid seat number in key %q", s)
	}
	return SeatKey{Row: s[:idx], Number: n}, nil
}

// SortSeatKeys orders keys by row then number, in place.
func SortSeatKeys(keys []SeatKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Number < keys[j].Number
	})
}

// SeatState is the reservation state of a seat for one showtime. Free is
// represented by the absence of an entry.
type SeatState string

const (
	StateHeld   SeatState = "held"
	StateBooked SeatState = "booked"
)

// ErrLedgerTimeout is returned when a mutation could not acquire the
// showtime lock within the configured bound. Callers may retry with backoff;
// the ledger guarantees no partial state was left behind.
var ErrLedgerTimeout = errors.New("ledger: lock wait timed out")

// Ledger is the authoritative per-showtime seat reservation state. All
// mutations are atomic across the full seat list passed in one call: either
// every seat transitions or none do, and the conflicting seats are reported.
type Ledger interface {
	// TryHold transitions free->held for every requested seat, or reports
	// the seats already held or booked. Holds expire after ttl unless
	// committed.
	TryHold(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string, ttl time.Duration) ([]SeatKey, error)

	// CommitBooking transitions held->booked for every requested seat,
	// provided each hold belongs to holder. Booked seats never expire.
	CommitBooking(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string) ([]SeatKey, error)

	// Release returns the given seats to free regardless of state.
	Release(ctx context.Context, showtime ShowtimeKey, seats []SeatKey) error

	// Snapshot returns the full set of currently unavailable (held or
	// booked) seats, sorted. A snapshot may be momentarily stale only
	// toward unavailability, never toward availability.
	Snapshot(ctx context.Context, showtime ShowtimeKey) ([]SeatKey, error)
}
