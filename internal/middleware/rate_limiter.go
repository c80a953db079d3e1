package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ── Per-IP rate limiter ───────────────────────────────────────────────────────

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	limiters   = make(map[string]*limiterEntry)
	limitersMu sync.Mutex
)

// RateLimiter returns a token-bucket rate limiter keyed by client IP.
// limit is requests per window; bursts up to limit are allowed.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	perSecond := rate.Limit(float64(limit) / window.Seconds())
	return func(c *gin.Context) {
		ip := c.ClientIP()

		limitersMu.Lock()
		entry, exists := limiters[ip]
		if !exists {
			entry = &limiterEntry{limiter: rate.NewLimiter(perSecond, limit)}
			limiters[ip] = entry
		}
		entry.lastSeen = time.Now()
		limitersMu.Unlock()

		if !entry.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, retry shortly"))
			return
		}
		c.Next()
	}
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically removes idle entries so IPs that never return do not
// accumulate forever.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeIdleLimiters()
}

func purgeIdleLimiters() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-purgeInterval)

		limitersMu.Lock()
		purged := 0
		for ip, entry := range limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(limiters, ip)
				purged++
			}
		}
		remaining := len(limiters)
		limitersMu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("entries_purged", purged).
				Int("entries_remaining", remaining).
				Msg("rate limiter map purged")
		}
	}
}
