package cancellation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidShowtime is returned when a stored show date or time cannot be
// parsed. Cancellation fails closed on it: a booking whose showtime cannot
// be read is never refunded by guesswork.
var ErrInvalidShowtime = errors.New("invalid show date or time")

// Policy holds the refund thresholds. The numbers are business policy, so
// they arrive from configuration rather than being buried in code.
type Policy struct {
	// FullRefundAfterHours: cancelling earlier than this many hours before
	// the show refunds everything.
	FullRefundAfterHours float64

	// LateFeeFraction is withheld when cancelling inside the full-refund
	// window but before the cutoff.
	LateFeeFraction float64

	// CutoffHours: within this many hours of the show, cancellation is
	// blocked entirely.
	CutoffHours float64
}

// DefaultPolicy mirrors the standard house rules: full refund beyond 24
// hours, 10% fee inside that, no cancellation in the final 2 hours.
func DefaultPolicy() Policy {
	return Policy{
		FullRefundAfterHours: 24,
		LateFeeFraction:      0.10,
		CutoffHours:          2,
	}
}

// Decision is the outcome of evaluating a cancellation request.
type Decision struct {
	CanCancel    bool    `json:"can_cancel"`
	FeeFraction  float64 `json:"fee_fraction"`
	FeeAmount    float64 `json:"fee_amount"`
	RefundAmount float64 `json:"refund_amount"`
	HoursToShow  float64 `json:"hours_to_show"`
	Reason       string  `json:"reason,omitempty"`
}

// Evaluate applies the policy to a confirmed booking's total. It is pure:
// the caller supplies both the showtime and the clock. Shows already started
// fall under the cutoff. Amounts are rounded to the nearest currency unit.
func (p Policy) Evaluate(showTime, now time.Time, totalAmount float64) Decision {
	hoursToShow := showTime.Sub(now).Hours()

	if hoursToShow <= p.CutoffHours {
		return Decision{
			CanCancel:   false,
			HoursToShow: hoursToShow,
			Reason:      fmt.Sprintf("cancellation closes %.0f hours before the show", p.CutoffHours),
		}
	}

	fraction := 0.0
	if hoursToShow <= p.FullRefundAfterHours {
		fraction = p.LateFeeFraction
	}

	fee := math.Round(totalAmount * fraction)
	return Decision{
		CanCancel:    true,
		FeeFraction:  fraction,
		FeeAmount:    fee,
		RefundAmount: totalAmount - fee,
		HoursToShow:  hoursToShow,
	}
}

// showTimeLayouts covers the catalog's two time notations. 12-hour forms
// come both with and without a leading zero on the hour.
var showTimeLayouts = []string{
	"15:04",
	"3:04 PM",
	"03:04 PM",
}

// ParseShowDateTime combines a YYYY-MM-DD show date with a clock time in
// either 24-hour ("19:30") or 12-hour ("7:30 PM") notation. Anything it
// cannot parse is ErrInvalidShowtime.
func ParseShowDateTime(date, timeStr string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidShowtime, date)
	}

	clock := strings.ToUpper(strings.TrimSpace(timeStr))
	for _, layout := range showTimeLayouts {
		t, err := time.ParseInLocation(layout, clock, time.Local)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidShowtime, timeStr)
}
