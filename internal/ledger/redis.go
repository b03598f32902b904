package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a Ledger backed by Redis Lua scripts, for deployments
// running more than one API instance. Each seat lives at its own key so
// holds expire via native TTLs; a per-showtime set supports snapshots and
// is reconciled against the seat keys inside the snapshot script, keeping
// any staleness biased toward unavailability.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func seatStateKey(showtime ShowtimeKey, seat SeatKey) string {
	return "cineseat:seat:" + showtime.String() + ":" + seat.String()
}

func reservedSetKey(showtime ShowtimeKey) string {
	return "cineseat:reserved:" + showtime.String()
}

// Lua script for atomic multi-seat hold. Values are "held:<holder>" or
// "booked:<holder>"; any existing value is a conflict.
const luaTryHold = `
-- KEYS[1]   = reserved set key
-- KEYS[2..] = seat state keys
-- ARGV[1]   = holder token
-- ARGV[2]   = ttl seconds
-- ARGV[3..] = seat key strings (same order as KEYS[2..])

local conflicts = {}
for i = 2, #KEYS do
    if redis.call("EXISTS", KEYS[i]) == 1 then
        conflicts[#conflicts + 1] = ARGV[i + 1]
    end
end
if #conflicts > 0 then
    return conflicts
end

local holder = ARGV[1]
local ttl = tonumber(ARGV[2])
for i = 2, #KEYS do
    redis.call("SETEX", KEYS[i], ttl, "held:" .. holder)
    redis.call("SADD", KEYS[1], ARGV[i + 1])
end
return {}
`

// Lua script for atomic held->booked transition.
const luaCommit = `
-- KEYS layout matches luaTryHold; ARGV[1] = holder, ARGV[2..] = seat keys.
local holder = ARGV[1]
local conflicts = {}
for i = 2, #KEYS do
    if redis.call("GET", KEYS[i]) ~= ("held:" .. holder) then
        conflicts[#conflicts + 1] = ARGV[i]
    end
end
if #conflicts > 0 then
    return conflicts
end

for i = 2, #KEYS do
    redis.call("SET", KEYS[i], "booked:" .. holder)
    redis.call("PERSIST", KEYS[i])
    redis.call("SADD", KEYS[1], ARGV[i])
end
return {}
`

// Lua script for release.
const luaRelease = `
for i = 2, #KEYS do
    redis.call("DEL", KEYS[i])
    redis.call("SREM", KEYS[1], ARGV[i - 1])
end
return 1
`

// Lua script for snapshot: list the reserved set, dropping members whose
// seat key has expired.
const luaSnapshot = `
-- KEYS[1] = reserved set key
-- ARGV[1] = seat state key prefix
local members = redis.call("SMEMBERS", KEYS[1])
local live = {}
for i = 1, #members do
    if redis.call("EXISTS", ARGV[1] .. members[i]) == 1 then
        live[#live + 1] = members[i]
    else
        redis.call("SREM", KEYS[1], members[i])
    end
end
return live
`

var (
	scriptTryHold  = redis.NewScript(luaTryHold)
	scriptCommit   = redis.NewScript(luaCommit)
	scriptRelease  = redis.NewScript(luaRelease)
	scriptSnapshot = redis.NewScript(luaSnapshot)
)

// eval runs a script via EVALSHA, falling back to EVAL when the script is
// not cached server-side yet.
func (l *RedisLedger) eval(ctx context.Context, script *redis.Script, keys []string, args []interface{}) (interface{}, error) {
	return script.Run(ctx, l.client, keys, args...).Result()
}

func (l *RedisLedger) seatArgs(showtime ShowtimeKey, seats []SeatKey, fixed ...interface{}) ([]string, []interface{}) {
	keys := make([]string, 0, len(seats)+1)
	keys = append(keys, reservedSetKey(showtime))
	args := append([]interface{}{}, fixed...)
	for _, seat := range seats {
		keys = append(keys, seatStateKey(showtime, seat))
		args = append(args, seat.String())
	}
	return keys, args
}

func parseConflicts(result interface{}) ([]SeatKey, error) {
	raw, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected ledger script result: %v", result)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	conflicts := make([]SeatKey, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected conflict entry: %v", item)
		}
		key, err := ParseSeatKey(s)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, key)
	}
	SortSeatKeys(conflicts)
	return conflicts, nil
}

// TryHold implements Ledger.
func (l *RedisLedger) TryHold(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string, ttl time.Duration) ([]SeatKey, error) {
	ttlSeconds := int(ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	keys, args := l.seatArgs(showtime, seats, holder, strconv.Itoa(ttlSeconds))
	result, err := l.eval(ctx, scriptTryHold, keys, args)
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat hold: %w", err)
	}
	return parseConflicts(result)
}

// CommitBooking implements Ledger.
func (l *RedisLedger) CommitBooking(ctx context.Context, showtime ShowtimeKey, seats []SeatKey, holder string) ([]SeatKey, error) {
	keys, args := l.seatArgs(showtime, seats, holder)
	result, err := l.eval(ctx, scriptCommit, keys, args)
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic booking commit: %w", err)
	}
	return parseConflicts(result)
}

// Release implements Ledger.
func (l *RedisLedger) Release(ctx context.Context, showtime ShowtimeKey, seats []SeatKey) error {
	keys, args := l.seatArgs(showtime, seats)
	if _, err := l.eval(ctx, scriptRelease, keys, args); err != nil {
		return fmt.Errorf("failed to execute seat release: %w", err)
	}
	return nil
}

// Snapshot implements Ledger.
func (l *RedisLedger) Snapshot(ctx context.Context, showtime ShowtimeKey) ([]SeatKey, error) {
	prefix := "cineseat:seat:" + showtime.String() + ":"
	result, err := l.eval(ctx, scriptSnapshot, []string{reservedSetKey(showtime)}, []interface{}{prefix})
	if err != nil {
		return nil, fmt.Errorf("failed to read reservation snapshot: %w", err)
	}
	return parseConflicts(result)
}

// PreloadScripts loads the Lua scripts into Redis at boot so the hot path
// can use EVALSHA.
func (l *RedisLedger) PreloadScripts(ctx context.Context) error {
	for _, script := range []*redis.Script{scriptTryHold, scriptCommit, scriptRelease, scriptSnapshot} {
		if err := script.Load(ctx, l.client).Err(); err != nil {
			return fmt.Errorf("failed to load ledger script: %w", err)
		}
	}
	return nil
}
