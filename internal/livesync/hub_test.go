package livesync

import (
	"context"
	"testing"
	"time"

	"cineseat/internal/ledger"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hubShowtime = ledger.ShowtimeKey{ScreenID: "screen-1", Date: "2026-03-14", Time: "19:30"}

func newTestHub(t *testing.T) (*Hub, *ledger.MemoryLedger) {
	t.Helper()
	ldg := ledger.NewMemoryLedger(time.Second)
	hub := NewHub(ldg, cache.NewService(nil), 50*time.Millisecond, 2, logger.GetDefault())
	return hub, ldg
}

func recv(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	hub, ldg := newTestHub(t)

	seats := []ledger.SeatKey{{Row: "D", Number: 6}}
	_, err := ldg.TryHold(context.Background(), hubShowtime, seats, "alice", time.Minute)
	require.NoError(t, err)

	sub := hub.Subscribe(hubShowtime)
	defer sub.Close()

	snap := recv(t, sub)
	assert.Equal(t, seats, snap.Reserved)
}

func TestInvalidatePushesFullSet(t *testing.T) {
	hub, ldg := newTestHub(t)
	ctx := context.Background()

	sub := hub.Subscribe(hubShowtime)
	defer sub.Close()
	assert.Empty(t, recv(t, sub).Reserved)

	_, err := ldg.TryHold(ctx, hubShowtime, []ledger.SeatKey{{Row: "D", Number: 6}}, "alice", time.Minute)
	require.NoError(t, err)
	hub.Invalidate(hubShowtime)
	assert.Equal(t, []ledger.SeatKey{{Row: "D", Number: 6}}, recv(t, sub).Reserved)

	// The next update carries the whole set again, not a delta.
	_, err = ldg.TryHold(ctx, hubShowtime, []ledger.SeatKey{{Row: "D", Number: 7}}, "bob", time.Minute)
	require.NoError(t, err)
	hub.Invalidate(hubShowtime)
	assert.Equal(t, []ledger.SeatKey{{Row: "D", Number: 6}, {Row: "D", Number: 7}}, recv(t, sub).Reserved)
}

func TestInvalidateSuppressesIdenticalSets(t *testing.T) {
	hub, _ := newTestHub(t)

	sub := hub.Subscribe(hubShowtime)
	defer sub.Close()
	recv(t, sub)

	hub.Invalidate(hubShowtime)
	hub.Invalidate(hubShowtime)

	select {
	case snap := <-sub.C:
		t.Fatalf("expected no update for unchanged set, got %v", snap.Reserved)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	hub, ldg := newTestHub(t)
	ctx := context.Background()

	sub := hub.Subscribe(hubShowtime) // buffer of 2, never drained until the end
	defer sub.Close()

	for n := 1; n <= 5; n++ {
		_, err := ldg.TryHold(ctx, hubShowtime, []ledger.SeatKey{{Row: "D", Number: n}}, "alice", time.Minute)
		require.NoError(t, err)
		hub.Invalidate(hubShowtime)
	}

	// Drain: the last buffered snapshot must be the newest state.
	var last Snapshot
	for {
		var done bool
		select {
		case snap := <-sub.C:
			last = snap
		default:
			done = true
		}
		if done {
			break
		}
	}
	assert.Len(t, last.Reserved, 5, "latest snapshot must survive the drops")
}

func TestCloseStopsDelivery(t *testing.T) {
	hub, _ := newTestHub(t)

	sub := hub.Subscribe(hubShowtime)
	recv(t, sub)
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok, "channel must be closed")

	// Publishing after close must not panic.
	hub.Invalidate(hubShowtime)
}

func TestRebroadcastTickerRefreshes(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)

	sub := hub.Subscribe(hubShowtime)
	defer sub.Close()
	recv(t, sub)

	// Even with no mutations the ticker re-sends the current set.
	recv(t, sub)
}
