package bookings

import (
	"time"

	"cineseat/internal/ledger"

	"github.com/google/uuid"
)

// Booking statuses. PENDING_PAYMENT is the only state holding seats without
// owning them; every other state is terminal for the hold.
const (
	StatusPendingPayment = "PENDING_PAYMENT"
	StatusConfirmed      = "CONFIRMED"
	StatusCancelled      = "CANCELLED"
	StatusCompleted      = "COMPLETED"
	StatusNoShow         = "NO_SHOW"
)

// BookedSeat is one seat line inside a booking, priced at confirmation time.
type BookedSeat struct {
	Row    string  `json:"row"`
	Number int     `json:"number"`
	Price  float64 `json:"price"`
}

// Key returns the ledger identity of the seat.
func (s BookedSeat) Key() ledger.SeatKey {
	return ledger.SeatKey{Row: s.Row, Number: s.Number}
}

// Booking defines the main booking structure
type Booking struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingRef  string       `gorm:"unique;not null" json:"booking_ref"`
	HolderToken string       `gorm:"index;not null" json:"-"`
	ScreenID    string       `gorm:"index:idx_showtime;not null" json:"screen_id"`
	ShowDate    string       `gorm:"index:idx_showtime;not null" json:"show_date"`
	ShowTime    string       `gorm:"index:idx_showtime;not null" json:"show_time"`
	Seats       []BookedSeat `gorm:"serializer:json" json:"seats"`
	SeatTotal   float64      `gorm:"not null" json:"seat_total"`
	SnackTotal  float64      `gorm:"not null" json:"snack_total"`
	TotalAmount float64      `gorm:"not null" json:"total_amount"`
	Status      string       `gorm:"type:varchar(20);check:status IN ('PENDING_PAYMENT', 'CONFIRMED', 'CANCELLED', 'COMPLETED', 'NO_SHOW');default:'PENDING_PAYMENT'" json:"status"`

	// RefundAmount and FeeAmount are filled on cancellation.
	RefundAmount *float64 `json:"refund_amount,omitempty"`
	FeeAmount    *float64 `json:"fee_amount,omitempty"`

	// PaymentDeadline is when the sweeper may cancel a booking still
	// pending payment. Mirrors the hold TTL in the ledger.
	PaymentDeadline time.Time  `gorm:"index" json:"payment_deadline"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// Showtime returns the ledger key of the booked screening.
func (b *Booking) Showtime() ledger.ShowtimeKey {
	return ledger.ShowtimeKey{ScreenID: b.ScreenID, Date: b.ShowDate, Time: b.ShowTime}
}

// SeatKeys returns the ledger keys of all booked seats.
func (b *Booking) SeatKeys() []ledger.SeatKey {
	keys := make([]ledger.SeatKey, 0, len(b.Seats))
	for _, seat := range b.Seats {
		keys = append(keys, seat.Key())
	}
	return keys
}

// SeatRequest is one requested seat with the price the client saw.
type SeatRequest struct {
	Row         string  `json:"row" binding:"required"`
	Number      int     `json:"number" binding:"required,min=1"`
	QuotedPrice float64 `json:"quoted_price" binding:"min=0"`
}

// ConfirmRequest is the payload of POST /bookings/confirm.
type ConfirmRequest struct {
	ScreenID   string        `json:"screen_id" binding:"required"`
	ShowDate   string        `json:"show_date" binding:"required"`
	ShowTime   string        `json:"show_time" binding:"required"`
	Seats      []SeatRequest `json:"seats" binding:"required,min=1,dive"`
	SnackTotal float64       `json:"snack_total" binding:"min=0"`
}

// Showtime returns the ledger key of the requested screening.
func (r *ConfirmRequest) Showtime() ledger.ShowtimeKey {
	return ledger.ShowtimeKey{ScreenID: r.ScreenID, Date: r.ShowDate, Time: r.ShowTime}
}

// PaymentResultRequest is the payload of POST /bookings/:id/payment-result.
type PaymentResultRequest struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
}

// CancelRequest is the payload of POST /bookings/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}
