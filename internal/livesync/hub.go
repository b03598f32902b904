package livesync

import (
	"context"
	"sync"
	"time"

	"cineseat/internal/ledger"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"
)

const liveReservedKeyPrefix = "cineseat:live:reserved:"

// Snapshot is one full-state update for a showtime. Subscribers always get
// the complete reserved set, never a delta, so a missed update can only make
// a view stale, not wrong.
type Snapshot struct {
	Showtime ledger.ShowtimeKey `json:"showtime"`
	Reserved []ledger.SeatKey   `json:"reserved"`
}

// Subscription is one subscriber's feed of snapshots. Close it when done;
// the hub drops the subscriber and closes C.
type Subscription struct {
	C <-chan Snapshot

	ch  chan Snapshot
	key string
	hub *Hub
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

type topic struct {
	showtime ledger.ShowtimeKey
	subs     map[*Subscription]bool
	last     []ledger.SeatKey
	hasLast  bool
}

// Hub fans reservation state out to live viewers, one topic per showtime.
// Publishing never blocks on a subscriber: each subscription has a small
// buffer and the oldest snapshot is dropped on overflow. Consecutive
// identical sets are suppressed; a periodic rebroadcast bounds how stale a
// subscriber view can get regardless.
type Hub struct {
	ledger    ledger.Ledger
	mirror    cache.Service
	log       *logger.Logger
	buffer    int
	interval  time.Duration
	mirrorTTL time.Duration

	mu     sync.Mutex
	topics map[string]*topic
}

// NewHub creates a hub reading state from ldg. The cache service mirrors the
// current reserved set to Redis for cross-instance readers; pass a noop
// cache service when Redis is disabled.
func NewHub(ldg ledger.Ledger, mirror cache.Service, interval time.Duration, buffer int, log *logger.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		ledger:    ldg,
		mirror:    mirror,
		log:       log,
		buffer:    buffer,
		interval:  interval,
		mirrorTTL: 4 * interval,
		topics:    make(map[string]*topic),
	}
}

// Start runs the rebroadcast ticker until ctx is cancelled. Rebroadcasts
// bypass deduplication: their whole point is to refresh views whose wakeup
// was lost.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, showtime := range h.activeShowtimes() {
					h.publish(ctx, showtime, true)
				}
			}
		}
	}()
}

// Subscribe attaches a live viewer to a showtime. The current snapshot is
// delivered immediately so the viewer never starts blind.
func (h *Hub) Subscribe(showtime ledger.ShowtimeKey) *Subscription {
	key := showtime.String()
	sub := &Subscription{ch: make(chan Snapshot, h.buffer), key: key, hub: h}
	sub.C = sub.ch

	h.mu.Lock()
	t, ok := h.topics[key]
	if !ok {
		t = &topic{showtime: showtime, subs: make(map[*Subscription]bool)}
		h.topics[key] = t
	}
	t.subs[sub] = true
	h.mu.Unlock()

	h.publish(context.Background(), showtime, true)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[sub.key]
	if !ok || !t.subs[sub] {
		return
	}
	delete(t.subs, sub)
	close(sub.ch)
	if len(t.subs) == 0 {
		delete(h.topics, sub.key)
	}
}

// Invalidate tells the hub that the reservation state of a showtime may
// have changed. Safe to call from any goroutine, including ledger janitor
// callbacks.
func (h *Hub) Invalidate(showtime ledger.ShowtimeKey) {
	h.publish(context.Background(), showtime, false)
}

func (h *Hub) activeShowtimes() []ledger.ShowtimeKey {
	h.mu.Lock()
	defer h.mu.Unlock()

	showtimes := make([]ledger.ShowtimeKey, 0, len(h.topics))
	for _, t := range h.topics {
		showtimes = append(showtimes, t.showtime)
	}
	return showtimes
}

// publish recomputes the full reserved set and fans it out. With force off,
// a set identical to the last published one is suppressed.
func (h *Hub) publish(ctx context.Context, showtime ledger.ShowtimeKey, force bool) {
	reserved, err := h.ledger.Snapshot(ctx, showtime)
	if err != nil {
		h.log.WithError(err).Warn("live sync snapshot failed", "showtime", showtime.String())
		return
	}

	snap := Snapshot{Showtime: showtime, Reserved: reserved}

	h.mu.Lock()
	t, ok := h.topics[showtime.String()]
	if !ok {
		h.mu.Unlock()
		h.writeMirror(ctx, showtime, reserved)
		return
	}
	if !force && t.hasLast && equalKeys(t.last, reserved) {
		h.mu.Unlock()
		return
	}
	t.last = reserved
	t.hasLast = true
	subs := make([]*Subscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.deliver(sub, snap)
	}
	h.writeMirror(ctx, showtime, reserved)
}

// deliver pushes without blocking. On a full buffer the oldest snapshot is
// evicted; slow viewers lose intermediate states, never the latest one.
func (h *Hub) deliver(sub *Subscription, snap Snapshot) {
	defer func() {
		// Subscription closed concurrently; a lost delivery to a gone
		// viewer is fine.
		_ = recover()
	}()

	select {
	case sub.ch <- snap:
		return
	default:
	}

	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}

func (h *Hub) writeMirror(ctx context.Context, showtime ledger.ShowtimeKey, reserved []ledger.SeatKey) {
	keys := make([]string, 0, len(reserved))
	for _, seat := range reserved {
		keys = append(keys, seat.String())
	}
	if err := h.mirror.Set(ctx, liveReservedKeyPrefix+showtime.String(), keys, h.mirrorTTL); err != nil {
		h.log.WithError(err).Warn("live sync mirror write failed", "showtime", showtime.String())
	}
}

func equalKeys(a, b []ledger.SeatKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
