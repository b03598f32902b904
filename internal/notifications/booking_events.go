package notifications

import (
	"context"

	"cineseat/internal/bookings"
	"cineseat/pkg/logger"
)

// BookingEventAdapter bridges the booking coordinator to the Kafka
// publisher. It absorbs publish failures: the booking path has already
// committed by the time an event goes out, so the event is best effort.
type BookingEventAdapter struct {
	publisher EventPublisher
	log       *logger.Logger
}

// NewBookingEventAdapter creates the adapter the booking service publishes
// through.
func NewBookingEventAdapter(publisher EventPublisher, log *logger.Logger) *BookingEventAdapter {
	return &BookingEventAdapter{publisher: publisher, log: log}
}

// PublishBookingEvent converts a booking into its wire event and publishes
// it. Errors are logged, never returned.
func (a *BookingEventAdapter) PublishBookingEvent(ctx context.Context, eventType string, booking *bookings.Booking) {
	seats := make([]string, 0, len(booking.Seats))
	for _, seat := range booking.Seats {
		seats = append(seats, seat.Key().String())
	}

	event := BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID.String(),
		BookingRef:  booking.BookingRef,
		Showtime:    booking.Showtime(),
		Seats:       seats,
		TotalAmount: booking.TotalAmount,
	}
	if booking.RefundAmount != nil {
		event.RefundAmount = *booking.RefundAmount
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		a.log.WithError(err).Warn("failed to publish booking event", "type", eventType, "booking_ref", booking.BookingRef)
	}
}
