package bookings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"cineseat/internal/cancellation"
	"cineseat/internal/ledger"
	"cineseat/internal/seatmap"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Booking
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*Booking)}
}

func (r *fakeRepo) Create(ctx context.Context, booking *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *booking
	r.byID[booking.ID] = &clone
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.byID[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	clone := *booking
	return &clone, nil
}

func (r *fakeRepo) Update(ctx context.Context, booking *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[booking.ID]; !ok {
		return ErrBookingNotFound
	}
	clone := *booking
	r.byID[booking.ID] = &clone
	return nil
}

func (r *fakeRepo) GetByHolder(ctx context.Context, holderToken string) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, booking := range r.byID {
		if booking.HolderToken == holderToken {
			out = append(out, *booking)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetOverduePending(ctx context.Context, before time.Time) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, booking := range r.byID {
		if booking.Status == StatusPendingPayment && booking.PaymentDeadline.Before(before) {
			out = append(out, *booking)
		}
	}
	return out, nil
}

type fakePricing struct {
	prices map[ledger.SeatKey]float64
}

func (f *fakePricing) GetSeatMap(ctx context.Context, screenID string) (*seatmap.LayoutDocument, error) {
	return nil, errors.New("not used in tests")
}

func (f *fakePricing) SaveLayout(ctx context.Context, screenID string, config seatmap.LayoutConfig) (*seatmap.LayoutDocument, []string, error) {
	return nil, nil, errors.New("not used in tests")
}

func (f *fakePricing) UpsertOverrides(ctx context.Context, screenID string, overrides map[string]seatmap.SeatOverride) (*seatmap.LayoutDocument, error) {
	return nil, errors.New("not used in tests")
}

func (f *fakePricing) ResetOverrides(ctx context.Context, screenID string) (*seatmap.LayoutDocument, error) {
	return nil, errors.New("not used in tests")
}

func (f *fakePricing) PriceFor(ctx context.Context, screenID string, seats []ledger.SeatKey) (map[ledger.SeatKey]float64, error) {
	out := make(map[ledger.SeatKey]float64, len(seats))
	for _, key := range seats {
		price, ok := f.prices[key]
		if !ok {
			return nil, fmt.Errorf("seat %s does not exist or is inactive", key)
		}
		out[key] = price
	}
	return out, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []ledger.ShowtimeKey
}

func (n *fakeNotifier) Invalidate(showtime ledger.ShowtimeKey) {
	n.mu.Lock()
	n.calls = append(n.calls, showtime)
	n.mu.Unlock()
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) PublishBookingEvent(ctx context.Context, eventType string, booking *Booking) {
	e.mu.Lock()
	e.types = append(e.types, eventType)
	e.mu.Unlock()
}

type testEnv struct {
	svc    *service
	repo   *fakeRepo
	ledger *ledger.MemoryLedger
	events *fakeEvents
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	ldg := ledger.NewMemoryLedger(time.Second)
	pricing := &fakePricing{prices: map[ledger.SeatKey]float64{
		{Row: "E", Number: 4}: 180,
		{Row: "E", Number: 5}: 180,
		{Row: "A", Number: 1}: 250,
	}}
	events := &fakeEvents{}

	svc := NewService(
		repo,
		ldg,
		pricing,
		cancellation.DefaultPolicy(),
		&fakeNotifier{},
		events,
		10*time.Minute,
		10*time.Minute,
		logger.GetDefault(),
	).(*service)

	env := &testEnv{svc: svc, repo: repo, ledger: ldg, events: events, now: time.Now()}
	svc.now = func() time.Time { return env.now }
	return env
}

func confirmReq(seats ...SeatRequest) ConfirmRequest {
	return ConfirmRequest{
		ScreenID:   "screen-1",
		ShowDate:   "2026-03-14",
		ShowTime:   "19:30",
		Seats:      seats,
		SnackTotal: 120,
	}
}

var bookingRefPattern = regexp.MustCompile(`^CNS-\d{8}-[A-Z]{6}$`)

func TestConfirmCreatesPendingBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(
		SeatRequest{Row: "E", Number: 4, QuotedPrice: 180},
		SeatRequest{Row: "E", Number: 5, QuotedPrice: 180},
	))
	require.NoError(t, err)

	assert.Equal(t, StatusPendingPayment, booking.Status)
	assert.Regexp(t, bookingRefPattern, booking.BookingRef)
	assert.Equal(t, 360.0, booking.SeatTotal)
	assert.Equal(t, 480.0, booking.TotalAmount)
	assert.Equal(t, env.now.Add(10*time.Minute), booking.PaymentDeadline)

	snapshot, err := env.ledger.Snapshot(ctx, booking.Showtime())
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)

	stored, err := env.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, stored.Status)
}

func TestConfirmRejectsStalePricing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Confirm(ctx, "alice", confirmReq(
		SeatRequest{Row: "E", Number: 4, QuotedPrice: 150}, // price moved to 180
	))
	var staleErr *StalePricingError
	require.ErrorAs(t, err, &staleErr)
	require.Len(t, staleErr.Seats, 1)
	assert.Equal(t, 150.0, staleErr.Seats[0].QuotedPrice)
	assert.Equal(t, 180.0, staleErr.Seats[0].CurrentPrice)

	// No hold was taken on the failed confirm.
	req := confirmReq()
	snapshot, err := env.ledger.Snapshot(ctx, req.Showtime())
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestConfirmConcurrentRaceSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	req := confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, holder := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			_, err := env.svc.Confirm(context.Background(), h, req)
			results <- err
		}(holder)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var conflictErr *SeatConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []ledger.SeatKey{{Row: "E", Number: 4}}, conflictErr.Seats)
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
}

func TestPaymentSuccessConfirmsBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	confirmed, err := env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// The seat is booked now: nobody can hold it even after the hold TTL.
	conflicts, err := env.ledger.TryHold(ctx, booking.Showtime(), booking.SeatKeys(), "bob", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, conflicts)

	assert.Contains(t, env.events.types, "booking.confirmed")
}

func TestPaymentFailureReleasesSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	cancelled, err := env.svc.HandlePaymentResult(ctx, "alice", booking.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	snapshot, err := env.ledger.Snapshot(ctx, booking.Showtime())
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestPaymentSuccessAfterHoldLapsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	// Simulate the hold lapsing before the payment settles.
	require.NoError(t, env.ledger.Release(ctx, booking.Showtime(), booking.SeatKeys()))

	_, err = env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	var conflictErr *SeatConflictError
	require.ErrorAs(t, err, &conflictErr)

	stored, err := env.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestPaymentResultGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	_, err = env.svc.HandlePaymentResult(ctx, "mallory", booking.ID, true)
	assert.ErrorIs(t, err, ErrNotBookingHolder)

	_, err = env.svc.HandlePaymentResult(ctx, "alice", uuid.New(), true)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	require.NoError(t, err)
	_, err = env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// confirmedBookingForShow creates a confirmed booking whose show starts at
// the given offset from the environment clock.
func confirmedBookingForShow(t *testing.T, env *testEnv, offset time.Duration) *Booking {
	t.Helper()
	ctx := context.Background()

	show := env.now.Add(offset)
	req := confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180})
	req.ShowDate = show.Format("2006-01-02")
	req.ShowTime = show.Format("15:04")

	booking, err := env.svc.Confirm(ctx, "alice", req)
	require.NoError(t, err)
	booking, err = env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	require.NoError(t, err)
	return booking
}

func TestCancelWithLateFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	booking := confirmedBookingForShow(t, env, 10*time.Hour)

	cancelled, err := env.svc.Cancel(ctx, "alice", booking.ID, "change of plans")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.RefundAmount)
	require.NotNil(t, cancelled.FeeAmount)
	assert.Equal(t, 270.0, *cancelled.RefundAmount) // 300 total, 10% fee
	assert.Equal(t, 30.0, *cancelled.FeeAmount)
	require.NotNil(t, cancelled.CancelledAt)

	snapshot, err := env.ledger.Snapshot(ctx, booking.Showtime())
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestCancelFullRefund(t *testing.T) {
	env := newTestEnv(t)
	booking := confirmedBookingForShow(t, env, 25*time.Hour)

	cancelled, err := env.svc.Cancel(context.Background(), "alice", booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 300.0, *cancelled.RefundAmount)
	assert.Equal(t, 0.0, *cancelled.FeeAmount)
}

func TestCancelBlockedNearShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	booking := confirmedBookingForShow(t, env, 90*time.Minute)

	_, err := env.svc.Cancel(ctx, "alice", booking.ID, "")
	var blockedErr *CancellationBlockedError
	require.ErrorAs(t, err, &blockedErr)

	// The booking keeps its seats.
	stored, err := env.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)

	snapshot, err := env.ledger.Snapshot(ctx, booking.Showtime())
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot)
}

func TestCancelRequiresConfirmedStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, "alice", booking.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelFailsClosedOnBadShowtime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)
	booking, err = env.svc.HandlePaymentResult(ctx, "alice", booking.ID, true)
	require.NoError(t, err)

	// Corrupt the stored show time.
	booking.ShowTime = "half past eight"
	require.NoError(t, env.repo.Update(ctx, booking))

	_, err = env.svc.Cancel(ctx, "alice", booking.ID, "")
	assert.ErrorIs(t, err, cancellation.ErrInvalidShowtime)
}

func TestSweeperCancelsOverduePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.svc.Confirm(ctx, "alice", confirmReq(SeatRequest{Row: "E", Number: 4, QuotedPrice: 180}))
	require.NoError(t, err)

	env.now = env.now.Add(11 * time.Minute)
	env.svc.sweepOverdue(ctx)

	stored, err := env.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Contains(t, env.events.types, "booking.cancelled")
}
