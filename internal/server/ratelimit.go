package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jimdaga/interview-ace/internal/auth"
)

// idleLimiterTTL is how long an unused per-key limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

// NewRateLimiter allows perMinute requests per caller, with bursts of the
// same size. A non-positive perMinute disables limiting and returns nil.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.reserve(key) == 0
}

// reserve consumes a token for key, returning how long the caller must wait
// when none is available.
func (l *RateLimiter) reserve(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return 0
	}
	r := entry.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

func (l *RateLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < idleLimiterTTL {
		return
	}
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(l.limiters, key)
		}
	}
	l.lastPrune = now
}

// Middleware rejects callers over their budget with 429. Authenticated
// requests are keyed by user, others by client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if userID, ok := auth.CurrentUserID(c); ok {
			key = "user:" + strconv.FormatUint(uint64(userID), 10)
		}

		if wait := l.reserve(key); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
