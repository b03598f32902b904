package bookings

import (
	"errors"
	"fmt"

	"cineseat/internal/ledger"
)

// ErrBookingNotFound is returned when a booking ID resolves to nothing.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNotBookingHolder is returned when a holder token does not match the
// booking it tries to act on.
var ErrNotBookingHolder = errors.New("booking belongs to a different holder")

// ErrInvalidTransition is returned when a payment result or cancellation
// arrives for a booking whose status cannot accept it.
var ErrInvalidTransition = errors.New("booking status does not allow this operation")

// SeatConflictError reports the seats that could not be held or committed.
// The rest of the request was rolled back; nothing is partially reserved.
type SeatConflictError struct {
	Seats []ledger.SeatKey
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("%d seat(s) are no longer available", len(e.Seats))
}

// ConflictKeys returns the conflicting seats in client form.
func (e *SeatConflictError) ConflictKeys() []string {
	keys := make([]string, 0, len(e.Seats))
	for _, seat := range e.Seats {
		keys = append(keys, seat.String())
	}
	return keys
}

// StalePrice is one seat whose quoted price no longer matches the catalog.
type StalePrice struct {
	Seat         ledger.SeatKey `json:"seat"`
	QuotedPrice  float64        `json:"quoted_price"`
	CurrentPrice float64        `json:"current_price"`
}

// StalePricingError reports quoted prices that drifted from the current
// seat map. The client must refresh and re-confirm; no hold was taken.
type StalePricingError struct {
	Seats []StalePrice
}

func (e *StalePricingError) Error() string {
	return fmt.Sprintf("pricing changed for %d seat(s)", len(e.Seats))
}

// CancellationBlockedError reports why a cancellation was refused by
// policy rather than by state.
type CancellationBlockedError struct {
	Reason string
}

func (e *CancellationBlockedError) Error() string {
	return "cancellation not allowed: " + e.Reason
}
