package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/flightbook/internal/redis"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBookingLimit  = 10
	defaultBookingWindow = time.Minute
)

// bookingWindowScript admits one booking attempt if fewer than limit
// attempts were admitted within the window ending now. Refused attempts are
// not recorded, so retrying while limited does not push the window forward.
//
//	KEYS[1]  per-user attempt set, scored by admission time in ms
//	ARGV     now_ms, window_ms, limit, attempt_id
//
// Returns {admitted, admitted_in_window, retry_after_ms}.
const bookingWindowScript = `
local now, window, limit = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local admitted = redis.call('ZCARD', KEYS[1])

if admitted >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local wait = window
  if oldest[2] then
    wait = tonumber(oldest[2]) + window - now
  end
  return {0, admitted, math.max(wait, 0)}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, admitted + 1, 0}
`

// LimiterConfig bounds booking attempts per user. Zero values fall back to
// 10 attempts per minute.
type LimiterConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// BookingLimiter caps how many bookings one user may start within a sliding
// window. It backs booking.Limiter; callers decide what an outage means.
type BookingLimiter struct {
	rdb    *redis.Client
	cfg    LimiterConfig
	script *redis.Script
	now    func() time.Time
}

func NewBookingLimiter(rdb *redis.Client, cfg LimiterConfig) *BookingLimiter {
	if cfg.Scope == "" {
		cfg.Scope = "bookings"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultBookingLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultBookingWindow
	}

	return &BookingLimiter{
		rdb:    rdb,
		cfg:    cfg,
		script: redis.NewScript(bookingWindowScript),
		now:    time.Now,
	}
}

// Allow admits one attempt for the user behind suffix.
//
// Returns:
//   - allowed: whether the attempt fits the window.
//   - current: attempts admitted in the window, this one included when allowed.
//   - retryAfter: time until the oldest admitted attempt leaves the window.
func (l *BookingLimiter) Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	const op = "redisrepo.BookingLimiter.Allow"

	res, err := l.script.Run(ctx, l.rdb,
		[]string{redisx.KeyRateLimit(l.cfg.Scope, suffix)},
		l.now().UnixMilli(), l.cfg.Window.Milliseconds(), l.cfg.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}
