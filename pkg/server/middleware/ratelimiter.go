package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig encapsulates both configuration and runtime state for per-IP rate limiting.
type RateLimitConfig struct {
	Enabled         bool
	RPS             float64
	Burst           int
	CleanupInterval time.Duration

	limit   rate.Limit
	clients sync.Map // map[string]*client
}

// client pairs a limiter with its last activity so idle entries can be
// dropped. Availability traffic is bursty per visitor, so the map would
// otherwise grow with every IP ever seen.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitConfig creates a new RateLimitConfig and initializes runtime state.
func NewRateLimitConfig(enabled bool, rps float64, burst int, cleanupInterval time.Duration) *RateLimitConfig {
	rl := &RateLimitConfig{
		Enabled:         enabled,
		RPS:             rps,
		Burst:           burst,
		CleanupInterval: cleanupInterval,
		limit:           rate.Limit(rps),
	}
	if cleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// getLimiter returns the rate limiter for the given IP, creating one if needed.
func (rl *RateLimitConfig) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	if v, ok := rl.clients.Load(ip); ok {
		cl := v.(*client)
		cl.lastSeen = now
		return cl.limiter
	}
	cl := &client{limiter: rate.NewLimiter(rl.limit, rl.Burst), lastSeen: now}
	rl.clients.Store(ip, cl)
	return cl.limiter
}

// cleanupLoop drops limiters idle for more than two cleanup intervals.
func (rl *RateLimitConfig) cleanupLoop() {
	t := time.NewTicker(rl.CleanupInterval)
	defer t.Stop()
	for range t.C {
		cutoff := time.Now().Add(-2 * rl.CleanupInterval)
		rl.clients.Range(func(key, value interface{}) bool {
			if value.(*client).lastSeen.Before(cutoff) {
				rl.clients.Delete(key)
			}
			return true
		})
	}
}

// getRemoteIP attempts to obtain a reliable client IP
func getRemoteIP(c *gin.Context) string {
	// X-Forwarded-For may contain a comma separated chain; the first entry
	// is the original client.
	if xff := c.Request.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err == nil {
		return host
	}
	return c.ClientIP()
}

// Middleware returns the gin middleware enforcing per-IP rate limits.
// Returns 429 if limiter.Allow() is false.
func (rl *RateLimitConfig) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Enabled {
			c.Next()
			return
		}
		ip := getRemoteIP(c)
		lim := rl.getLimiter(ip)
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
