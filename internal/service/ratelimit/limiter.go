package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "RateCast/pkg/http"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key (client IP for ingestion).
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*entry
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time
}

// New returns a limiter refilling rps tokens per second up to burst. rps <= 0 disables limiting.
func New(rps float64, burst int) *Limiter {
	lim := rate.Inf
	if rps > 0 {
		lim = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*entry), rps: lim, burst: burst, idle: 10 * time.Minute, now: time.Now}
}

// Allow reports whether one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	if len(l.m) > 1024 {
		l.evict(now)
	}
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// evict drops buckets idle for longer than l.idle. Caller holds l.mu.
func (l *Limiter) evict(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.seen) > l.idle {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("ingestion rate limit exceeded"))
			}
			return next(c)
		}
	}
}
