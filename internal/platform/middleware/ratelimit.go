package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/occhealth/occhealth/internal/platform/auth"
)

// RateLimitConfig sets the sustained rate and the burst allowed per caller.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL drops limiters of callers not seen for this long. Zero keeps them.
	IdleTTL time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		IdleTTL:           10 * time.Minute,
	}
}

type callerLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiters maps a caller key to its limiter and sweeps idle callers lazily.
type limiters struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	byKey     map[string]*callerLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newLimiters(cfg RateLimitConfig) *limiters {
	return &limiters{
		cfg:   cfg,
		byKey: make(map[string]*callerLimiter),
		now:   time.Now,
	}
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	cl, ok := l.byKey[key]
	if !ok {
		cl = &callerLimiter{lim: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.BurstSize)}
		l.byKey[key] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

// sweep runs at most once per IdleTTL. Caller holds mu.
func (l *limiters) sweep(now time.Time) {
	ttl := l.cfg.IdleTTL
	if ttl <= 0 || now.Sub(l.lastSweep) < ttl {
		return
	}
	l.lastSweep = now
	for k, cl := range l.byKey {
		if now.Sub(cl.lastSeen) > ttl {
			delete(l.byKey, k)
		}
	}
}

func (l *limiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

// retryAfter is the whole number of seconds until lim admits one more request.
func retryAfter(lim *rate.Limiter) int {
	r := lim.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 1
	}
	d := r.Delay()
	if d == rate.InfDuration || d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}

// rateLimitKey buckets authenticated callers by tenant and user, and everyone
// else by tenant and client IP.
func rateLimitKey(c echo.Context) string {
	tenantID, _ := c.Get("jwt_tenant_id").(string)
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		return tenantID + ":user:" + user
	}
	return tenantID + ":ip:" + c.RealIP()
}

// RateLimit answers 429 with Retry-After once a caller exhausts its burst.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiters(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lim := store.get(rateLimitKey(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			if !lim.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(lim)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
