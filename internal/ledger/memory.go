package ledger

import (
	"context"
	"strings"
	"sync"
	"time"
)

type seatEntry struct {
	state     SeatState
	holder    string
	expiresAt time.Time
}

func (e seatEntry) expired(now time.Time) bool {
	return e.state == StateHeld && now.After(e.expiresAt)
}

// showtimeShard holds the seat entries of one showtime behind a semaphore
// that supports bounded waits.
type showtimeShard struct {
	sem   chan struct{}
	seats map[SeatKey]seatEntry
}

func newShowtimeShard() *showtimeShard {
	sh := &showtimeShard{
		sem:   make(chan struct{}, 1),
		seats: make(map[SeatKey]seatEntry),
	}
	sh.sem <- struct{}{}
	return sh
}

// MemoryLedger is the in-process Ledger implementation. One lock per
// showtime makes the all-or-nothing property across a seat list trivial;
// seats of different showtimes never contend.
type MemoryLedger struct {
	mu          sync.RWMutex
	shards      map[string]*showtimeShard
	lockTimeout time.Duration
	onChange    func(ShowtimeKey)
	now         func() time.Time
}

// NewMemoryLedger creates a ledger whose mutations wait at most lockTimeout
// for the showtime lock before failing with ErrLedgerTimeout.
func NewMemoryLedger(lockTimeout time.Duration) *MemoryLedger {
	return &MemoryLedger{
		shards:      make(map[string]*showtimeShard),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// SetOnChange registers a callback fired after every effective mutation,
// including janitor expiries. Used by the live sync broadcaster.
func (l *MemoryLedger) SetOnChange(fn func(ShowtimeKey)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *MemoryLedger) shard(showtime ShowtimeKey) *showtimeShard {
	key := showtime.String()

	l.mu.RLock()
	sh, ok := l.shards[key]
	l.mu.RUnlock()
	if ok {
		return sh
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if sh, ok = l.shards[key]; ok {
		return sh
	}
	sh = newShowtimeShard()
	l.shards[key] = sh
	return sh
}

// acquire takes the shard lock with a bounded wait.
func (l *MemoryLedger) acquire(ctx context.Context, sh *showtimeShard) error {
	timer := time.NewTimer(l.lockTimeout)
	defer timer.Stop()

	select {
	case <-sh.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLedgerTimeout
	}
}

func (l *MemoryLedger) release(sh *showtimeShard) {
	sh.sem <- struct{}{}
}

// purgeExpiredLocked removes lapsed holds. Caller holds the shard lock.
func (l *MemoryLedger) purgeExpiredLocked(sh *showtimeShard) bool {
	now := l.now()
	changed := false
	for key, entry := range sh.seats {
		if entry.expired(now) {
			delete(sh.seats, key)
			changed = true
		}
	}
	return changed
}

func (l *MemoryLedger) notify(showtime ShowtimeKey) {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn(showtime)
	}
}

// TryHold implements Ledger. The conflict check runs over the whole list
// before any entry is written, so a partial hold can never leak out.
func (l *MemoryLedger) TryHold(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string, ttl time.Duration) ([]SeatKey, error) {
	sh := l.shard(showtime)
	if err := l.acquire(ctx, sh); err != nil {
		return nil, err
	}
	defer l.release(sh)

	l.purgeExpiredLocked(sh)

	var conflicts []SeatKey
	for _, seat := range seats {
		if _, taken := sh.seats[seat]; taken {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		SortSeatKeys(conflicts)
		return conflicts, nil
	}

	expiresAt := l.now().Add(ttl)
	for _, seat := range seats {
		sh.seats[seat] = seatEntry{state: StateHeld, holder: holder, expiresAt: expiresAt}
	}

	go l.notify(showtime)
	return nil, nil
}

// CommitBooking implements Ledger. Every seat must be held by holder; a
// lapsed or foreign hold is a conflict and nothing transitions.
func (l *MemoryLedger) CommitBooking(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string) ([]SeatKey, error) {
	sh := l.shard(showtime)
	if err := l.acquire(ctx, sh); err != nil {
		return nil, err
	}
	defer l.release(sh)

	l.purgeExpiredLocked(sh)

	var conflicts []SeatKey
	for _, seat := range seats {
		entry, ok := sh.seats[seat]
		if !ok || entry.state != StateHeld || entry.holder != holder {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		SortSeatKeys(conflicts)
		return conflicts, nil
	}

	for _, seat := range seats {
		entry := sh.seats[seat]
		entry.state = StateBooked
		sh.seats[seat] = entry
	}

	go l.notify(showtime)
	return nil, nil
}

// Release implements Ledger.
func (l *MemoryLedger) Release(ctx context.Context, showtime ShowtimeKey, seats []SeatKey) error {
	sh := l.shard(showtime)
	if err := l.acquire(ctx, sh); err != nil {
		return err
	}

	changed := l.purgeExpiredLocked(sh)
	for _, seat := range seats {
		if _, ok := sh.seats[seat]; ok {
			delete(sh.seats, seat)
			changed = true
		}
	}
	l.release(sh)

	if changed {
		go l.notify(showtime)
	}
	return nil
}

// Snapshot implements Ledger.
func (l *MemoryLedger) Snapshot(ctx context.Context, showtime ShowtimeKey) ([]SeatKey, error) {
	sh := l.shard(showtime)
	if err := l.acquire(ctx, sh); err != nil {
		return nil, err
	}
	defer l.release(sh)

	now := l.now()
	keys := make([]SeatKey, 0, len(sh.seats))
	for key, entry := range sh.seats {
		if entry.expired(now) {
			continue
		}
		keys = append(keys, key)
	}
	SortSeatKeys(keys)
	return keys, nil
}

// StartJanitor sweeps expired holds until ctx is cancelled, so seats of
// abandoned holds become visible as free even without traffic on their
// showtime.
func (l *MemoryLedger) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *MemoryLedger) sweep() {
	l.mu.RLock()
	shards := make(map[string]*showtimeShard, len(l.shards))
	for key, sh := range l.shards {
		shards[key] = sh
	}
	l.mu.RUnlock()

	for key, sh := range shards {
		select {
		case <-sh.sem:
		default:
			continue // busy shard, lazy expiry will cover it
		}
		changed := l.purgeExpiredLocked(sh)
		l.release(sh)

		if changed {
			if showtime, ok := parseShowtimeKey(key); ok {
				l.notify(showtime)
			}
		}
	}
}

func parseShowtimeKey(s string) (ShowtimeKey, bool) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return ShowtimeKey{}, false
	}
	return ShowtimeKey{ScreenID: parts[0], Date: parts[1], Time: parts[2]}, true
}
