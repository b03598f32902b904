package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testShowtime = ShowtimeKey{ScreenID: "screen-1", Date: "2026-03-14", Time: "19:30"}

func seatRange(row string, from, to int) []SeatKey {
	var keys []SeatKey
	for n := from; n <= to; n++ {
		keys = append(keys, SeatKey{Row: row, Number: n})
	}
	return keys
}

func TestTryHoldAllOrNothing(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()

	conflicts, err := l.TryHold(ctx, testShowtime, seatRange("D", 4, 6), "alice", time.Minute)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	// D-5 overlaps; the whole request must fail and D-7/D-8 must stay free.
	conflicts, err = l.TryHold(ctx, testShowtime, seatRange("D", 5, 8), "bob", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, seatRange("D", 5, 6), conflicts)

	snapshot, err := l.Snapshot(ctx, testShowtime)
	require.NoError(t, err)
	assert.Equal(t, seatRange("D", 4, 6), snapshot)

	// The non-overlapping part is still free for bob.
	conflicts, err = l.TryHold(ctx, testShowtime, seatRange("D", 7, 8), "bob", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestConcurrentHoldsExactlyOneWinner(t *testing.T) {
	l := NewMemoryLedger(5 * time.Second)
	seats := seatRange("E", 1, 3)

	const holders = 32
	var wg sync.WaitGroup
	winners := make(chan int, holders)

	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			holder := string(rune('a' + id%26))
			conflicts, err := l.TryHold(context.Background(), testShowtime, seats, holder, time.Minute)
			if err == nil && len(conflicts) == 0 {
				winners <- id
			}
		}(i)
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "exactly one holder may win the seats")
}

func TestCommitRequiresMatchingHolder(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()
	seats := seatRange("A", 1, 2)

	_, err := l.TryHold(ctx, testShowtime, seats, "alice", time.Minute)
	require.NoError(t, err)

	conflicts, err := l.CommitBooking(ctx, testShowtime, seats, "mallory")
	require.NoError(t, err)
	assert.Equal(t, seats, conflicts)

	conflicts, err = l.CommitBooking(ctx, testShowtime, seats, "alice")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Booked seats stay taken for everyone else.
	conflicts, err = l.TryHold(ctx, testShowtime, seats, "bob", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, seats, conflicts)
}

func TestHoldExpiryFreesSeats(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()
	seats := seatRange("B", 1, 2)

	clock := time.Now()
	l.now = func() time.Time { return clock }

	_, err := l.TryHold(ctx, testShowtime, seats, "alice", 10*time.Minute)
	require.NoError(t, err)

	clock = clock.Add(11 * time.Minute)

	snapshot, err := l.Snapshot(ctx, testShowtime)
	require.NoError(t, err)
	assert.Empty(t, snapshot, "expired holds must not appear in snapshots")

	// A lapsed hold cannot be committed.
	conflicts, err := l.CommitBooking(ctx, testShowtime, seats, "alice")
	require.NoError(t, err)
	assert.Equal(t, seats, conflicts)

	// And the seats are free for the next holder.
	conflicts, err = l.TryHold(ctx, testShowtime, seats, "bob", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestBookedSeatsNeverExpire(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()
	seats := seatRange("C", 1, 1)

	clock := time.Now()
	l.now = func() time.Time { return clock }

	_, err := l.TryHold(ctx, testShowtime, seats, "alice", time.Minute)
	require.NoError(t, err)
	_, err = l.CommitBooking(ctx, testShowtime, seats, "alice")
	require.NoError(t, err)

	clock = clock.Add(48 * time.Hour)

	snapshot, err := l.Snapshot(ctx, testShowtime)
	require.NoError(t, err)
	assert.Equal(t, seats, snapshot)
}

func TestReleaseFreesAnyState(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()

	held := seatRange("F", 1, 1)
	booked := seatRange("F", 2, 2)
	_, err := l.TryHold(ctx, testShowtime, held, "alice", time.Minute)
	require.NoError(t, err)
	_, err = l.TryHold(ctx, testShowtime, booked, "bob", time.Minute)
	require.NoError(t, err)
	_, err = l.CommitBooking(ctx, testShowtime, booked, "bob")
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, testShowtime, append(held, booked...)))

	snapshot, err := l.Snapshot(ctx, testShowtime)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestShowtimesAreIndependent(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()
	seats := seatRange("D", 6, 6)
	other := ShowtimeKey{ScreenID: "screen-1", Date: "2026-03-14", Time: "22:00"}

	_, err := l.TryHold(ctx, testShowtime, seats, "alice", time.Minute)
	require.NoError(t, err)

	conflicts, err := l.TryHold(ctx, other, seats, "bob", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "the same seat is free on a different showtime")
}

func TestJanitorSweepNotifies(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()

	clock := time.Now()
	l.now = func() time.Time { return clock }

	var mu sync.Mutex
	var notified []ShowtimeKey
	l.SetOnChange(func(showtime ShowtimeKey) {
		mu.Lock()
		notified = append(notified, showtime)
		mu.Unlock()
	})

	_, err := l.TryHold(ctx, testShowtime, seatRange("G", 1, 2), "alice", time.Minute)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	l.sweep()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, notified, testShowtime)
}

func TestSnapshotSorted(t *testing.T) {
	l := NewMemoryLedger(time.Second)
	ctx := context.Background()

	seats := []SeatKey{{Row: "D", Number: 10}, {Row: "A", Number: 2}, {Row: "D", Number: 2}}
	_, err := l.TryHold(ctx, testShowtime, seats, "alice", time.Minute)
	require.NoError(t, err)

	snapshot, err := l.Snapshot(ctx, testShowtime)
	require.NoError(t, err)
	assert.Equal(t, []SeatKey{{Row: "A", Number: 2}, {Row: "D", Number: 2}, {Row: "D", Number: 10}}, snapshot)
}

func TestParseSeatKey(t *testing.T) {
	key, err := ParseSeatKey("D-6")
	require.NoError(t, err)
	assert.Equal(t, SeatKey{Row: "D", Number: 6}, key)

	_, err = ParseSeatKey("D")
	assert.Error(t, err)
	_, err = ParseSeatKey("D-")
	assert.Error(t, err)
	_, err = ParseSeatKey("-6")
	assert.Error(t, err)
	_, err = ParseSeatKey("D-0")
	assert.Error(t, err)
}
