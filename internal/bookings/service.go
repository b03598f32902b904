package bookings

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"cineseat/internal/cancellation"
	"cineseat/internal/ledger"
	"cineseat/internal/seatmap"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
)

// Notifier receives a wakeup whenever the reservation state of a showtime
// changed. Implemented by the live sync hub.
type Notifier interface {
	Invalidate(showtime ledger.ShowtimeKey)
}

// EventPublisher is the slice of the notifications producer the coordinator
// needs.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, booking *Booking)
}

// Service interface defines the contract for booking business logic
type Service interface {
	Confirm(ctx context.Context, holder string, req ConfirmRequest) (*Booking, error)
	HandlePaymentResult(ctx context.Context, holder string, bookingID uuid.UUID, success bool) (*Booking, error)
	Cancel(ctx context.Context, holder string, bookingID uuid.UUID, reason string) (*Booking, error)
	GetBooking(ctx context.Context, holder string, bookingID uuid.UUID) (*Booking, error)
	GetHolderBookings(ctx context.Context, holder string) ([]Booking, error)

	// StartPaymentSweeper cancels overdue PENDING_PAYMENT bookings until
	// ctx is done. Their holds lapse on their own; the sweeper reconciles
	// the booking records.
	StartPaymentSweeper(ctx context.Context, interval time.Duration)
}

type service struct {
	repo            Repository
	ledger          ledger.Ledger
	seatmaps        seatmap.Service
	policy          cancellation.Policy
	notifier        Notifier
	events          EventPublisher
	holdTTL         time.Duration
	paymentDeadline time.Duration
	log             *logger.Logger
	now             func() time.Time
}

// NewService creates a new booking service
func NewService(
	repo Repository,
	ldg ledger.Ledger,
	seatmaps seatmap.Service,
	policy cancellation.Policy,
	notifier Notifier,
	events EventPublisher,
	holdTTL time.Duration,
	paymentDeadline time.Duration,
	log *logger.Logger,
) Service {
	return &service{
		repo:            repo,
		ledger:          ldg,
		seatmaps:        seatmaps,
		policy:          policy,
		notifier:        notifier,
		events:          events,
		holdTTL:         holdTTL,
		paymentDeadline: paymentDeadline,
		log:             log,
		now:             time.Now,
	}
}

// Confirm re-validates pricing, takes one atomic hold for the whole seat
// list and persists a PENDING_PAYMENT booking. On any conflict nothing is
// reserved and nothing is stored.
func (s *service) Confirm(ctx context.Context, holder string, req ConfirmRequest) (*Booking, error) {
	keys := make([]ledger.SeatKey, 0, len(req.Seats))
	dup := make(map[ledger.SeatKey]bool, len(req.Seats))
	for _, seat := range req.Seats {
		key := ledger.SeatKey{Row: seat.Row, Number: seat.Number}
		if dup[key] {
			return nil, fmt.Errorf("seat %s requested twice", key)
		}
		dup[key] = true
		keys = append(keys, key)
	}

	// Pricing check first: a hold is never taken on numbers the client has
	// not seen.
	prices, err := s.seatmaps.PriceFor(ctx, req.ScreenID, keys)
	if err != nil {
		return nil, err
	}
	var stale []StalePrice
	for _, seat := range req.Seats {
		key := ledger.SeatKey{Row: seat.Row, Number: seat.Number}
		current := prices[key]
		if math.Abs(current-seat.QuotedPrice) > 0.001 {
			stale = append(stale, StalePrice{Seat: key, QuotedPrice: seat.QuotedPrice, CurrentPrice: current})
		}
	}
	if len(stale) > 0 {
		return nil, &StalePricingError{Seats: stale}
	}

	showtime := req.Showtime()
	conflicts, err := s.ledger.TryHold(ctx, showtime, keys, holder, s.holdTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to hold seats: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, &SeatConflictError{Seats: conflicts}
	}

	bookingRef, err := s.generateBookingReference()
	if err != nil {
		s.releaseQuietly(showtime, keys)
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	seatTotal := 0.0
	bookedSeats := make([]BookedSeat, 0, len(keys))
	for _, key := range keys {
		price := prices[key]
		seatTotal += price
		bookedSeats = append(bookedSeats, BookedSeat{Row: key.Row, Number: key.Number, Price: price})
	}

	booking := &Booking{
		ID:              uuid.New(),
		BookingRef:      bookingRef,
		HolderToken:     holder,
		ScreenID:        req.ScreenID,
		ShowDate:        req.ShowDate,
		ShowTime:        req.ShowTime,
		Seats:           bookedSeats,
		SeatTotal:       seatTotal,
		SnackTotal:      req.SnackTotal,
		TotalAmount:     seatTotal + req.SnackTotal,
		Status:          StatusPendingPayment,
		PaymentDeadline: s.now().Add(s.paymentDeadline),
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.releaseQuietly(showtime, keys)
		return nil, err
	}

	s.notifier.Invalidate(showtime)
	s.events.PublishBookingEvent(ctx, "seats.reserved", booking)
	s.log.LogBookingCreated(ctx, booking.BookingRef, showtime.String(), len(keys))
	return booking, nil
}

// HandlePaymentResult settles a pending booking. Success commits the held
// seats; failure releases them. A success arriving after the hold lapsed
// cannot commit and cancels the booking instead.
func (s *service) HandlePaymentResult(ctx context.Context, holder string, bookingID uuid.UUID, success bool) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HolderToken != holder {
		return nil, ErrNotBookingHolder
	}
	if booking.Status != StatusPendingPayment {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidTransition, booking.Status)
	}

	showtime := booking.Showtime()
	keys := booking.SeatKeys()

	if !success {
		if err := s.ledger.Release(ctx, showtime, keys); err != nil {
			s.log.WithError(err).Error("failed to release seats after payment failure", "booking_ref", booking.BookingRef)
		}
		if err := s.markCancelled(ctx, booking, nil, nil); err != nil {
			return nil, err
		}
		s.notifier.Invalidate(showtime)
		s.events.PublishBookingEvent(ctx, "booking.cancelled", booking)
		return booking, nil
	}

	conflicts, err := s.ledger.CommitBooking(ctx, showtime, keys, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to commit seats: %w", err)
	}
	if len(conflicts) > 0 {
		// Hold expired before payment settled; the seats may already belong
		// to someone else, so the booking cannot be honored.
		if err := s.markCancelled(ctx, booking, nil, nil); err != nil {
			return nil, err
		}
		s.notifier.Invalidate(showtime)
		s.events.PublishBookingEvent(ctx, "booking.cancelled", booking)
		return nil, &SeatConflictError{Seats: conflicts}
	}

	booking.Status = StatusConfirmed
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.notifier.Invalidate(showtime)
	s.events.PublishBookingEvent(ctx, "booking.confirmed", booking)
	s.log.InfoWithContext(ctx, "Booking Confirmed", map[string]interface{}{
		"booking_ref": booking.BookingRef,
		"seats":       len(keys),
	})
	return booking, nil
}

// Cancel applies the refund policy to a confirmed booking and frees its
// seats. Bookings in any other status are never cancellable here.
func (s *service) Cancel(ctx context.Context, holder string, bookingID uuid.UUID, reason string) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HolderToken != holder {
		return nil, ErrNotBookingHolder
	}
	if booking.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidTransition, booking.Status)
	}

	showAt, err := cancellation.ParseShowDateTime(booking.ShowDate, booking.ShowTime)
	if err != nil {
		// Fail closed: an unreadable showtime never produces a refund.
		return nil, err
	}

	decision := s.policy.Evaluate(showAt, s.now(), booking.TotalAmount)
	if !decision.CanCancel {
		return nil, &CancellationBlockedError{Reason: decision.Reason}
	}

	showtime := booking.Showtime()
	if err := s.ledger.Release(ctx, showtime, booking.SeatKeys()); err != nil {
		return nil, fmt.Errorf("failed to release seats: %w", err)
	}

	if err := s.markCancelled(ctx, booking, &decision.RefundAmount, &decision.FeeAmount); err != nil {
		return nil, err
	}

	s.notifier.Invalidate(showtime)
	s.events.PublishBookingEvent(ctx, "booking.cancelled", booking)
	s.log.LogBookingCancelled(ctx, booking.BookingRef, decision.RefundAmount)
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, holder string, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HolderToken != holder {
		return nil, ErrNotBookingHolder
	}
	return booking, nil
}

func (s *service) GetHolderBookings(ctx context.Context, holder string) ([]Booking, error) {
	return s.repo.GetByHolder(ctx, holder)
}

// StartPaymentSweeper reconciles bookings whose payment never arrived.
func (s *service) StartPaymentSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepOverdue(ctx)
			}
		}
	}()
}

func (s *service) sweepOverdue(ctx context.Context) {
	overdue, err := s.repo.GetOverduePending(ctx, s.now())
	if err != nil {
		s.log.WithError(err).Error("payment sweep query failed")
		return
	}

	for i := range overdue {
		booking := &overdue[i]
		showtime := booking.Showtime()

		// The hold has usually lapsed already; Release is idempotent and
		// covers the race where it has not.
		if err := s.ledger.Release(ctx, showtime, booking.SeatKeys()); err != nil {
			s.log.WithError(err).Error("payment sweep release failed", "booking_ref", booking.BookingRef)
			continue
		}
		if err := s.markCancelled(ctx, booking, nil, nil); err != nil {
			s.log.WithError(err).Error("payment sweep update failed", "booking_ref", booking.BookingRef)
			continue
		}

		s.notifier.Invalidate(showtime)
		s.events.PublishBookingEvent(ctx, "booking.cancelled", booking)
		s.log.Info("cancelled overdue pending booking", "booking_ref", booking.BookingRef)
	}
}

func (s *service) markCancelled(ctx context.Context, booking *Booking, refund, fee *float64) error {
	now := s.now()
	booking.Status = StatusCancelled
	booking.CancelledAt = &now
	booking.RefundAmount = refund
	booking.FeeAmount = fee
	return s.repo.Update(ctx, booking)
}

// releaseQuietly frees seats on a failed confirm path where the original
// error is the one worth returning.
func (s *service) releaseQuietly(showtime ledger.ShowtimeKey, keys []ledger.SeatKey) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ledger.Release(ctx, showtime, keys); err != nil {
		s.log.WithError(err).Error("failed to roll back seat hold", "showtime", showtime.String())
	}
}

// generateBookingReference generates a unique booking reference
func (s *service) generateBookingReference() (string, error) {
	timestamp := s.now().Format("20060102")

	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)
	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("CNS-%s-%s", timestamp, string(randomPart)), nil
}
