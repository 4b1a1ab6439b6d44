package httpmiddleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
}

// MemoryLimiter is a per-process sliding window limiter. The previous window
// is weighted by how much of it still overlaps the sliding window.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

type slidingWindow struct {
	prev, curr float64
	currStart  time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter allows limit requests per window and key.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     limit,
		window:  window,
		windows: make(map[string]*slidingWindow),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw, ok := l.windows[key]
	if !ok {
		sw = &slidingWindow{currStart: now.Truncate(l.window)}
		l.windows[key] = sw
	}
	if elapsed := now.Sub(sw.currStart); elapsed >= l.window {
		if elapsed >= 2*l.window {
			sw.prev = 0
		} else {
			sw.prev = sw.curr
		}
		sw.curr = 0
		sw.currStart = now.Truncate(l.window)
	}

	overlap := max(0, 1-now.Sub(sw.currStart).Seconds()/l.window.Seconds())
	count := sw.prev*overlap + sw.curr
	d := Decision{Limit: l.max, ResetAt: sw.currStart.Add(l.window)}
	if count >= float64(l.max) {
		return d, nil
	}
	sw.curr++
	d.Allowed = true
	d.Remaining = max(0, int(float64(l.max)-count-1))
	return d, nil
}

// Sweep drops keys idle for two windows.
func (l *MemoryLimiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, sw := range l.windows {
		if now.Sub(sw.currStart) >= 2*l.window {
			delete(l.windows, key)
		}
	}
}

// RunSweeper calls Sweep every two windows until ctx is done.
func (l *MemoryLimiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// RedisLimiter is a sliding log limiter shared by every replica. Each key is
// a sorted set of allowed request timestamps. Rejected requests are not
// logged, so a client that keeps retrying regains access once its window
// slides past.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// slidingLog trims the log, and records the request only when the log is
// below the limit. Returns {allowed, entries}.
var slidingLog = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local n = redis.call('ZCARD', KEYS[1])
if n >= tonumber(ARGV[3]) then
	return {0, n}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, n + 1}
`)

// NewRedisLimiter allows limit requests per window and key.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, max: limit, window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	d := Decision{Limit: l.max, ResetAt: now.Add(l.window)}

	res, err := slidingLog.Run(ctx, l.client, []string{l.prefix + key},
		now.Add(-l.window).UnixNano(),
		now.UnixNano(),
		l.max,
		fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString()),
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return d, errors.Wrap(err, "rate limit script")
	}
	if len(res) != 2 {
		return d, errors.Errorf("rate limit script: unexpected reply %v", res)
	}

	d.Allowed = res[0] == 1
	d.Remaining = max(0, l.max-int(res[1]))
	return d, nil
}

// KeyFunc derives the rate limit key of a request.
type KeyFunc func(*http.Request) string

// ClientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limit with 429. Every response carries
// X-RateLimit-* headers. Limiter failures let the request through.
func RateLimit(l Limiter, key KeyFunc) Middleware {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d, err := l.Allow(r.Context(), key(r), now)
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				retry := max(0, d.ResetAt.Sub(now).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
