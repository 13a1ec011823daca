package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Idle entries older than this are evicted so a scan of the public resolve
// endpoint cannot grow the limiter map without bound.
const limiterIdleTTL = 3 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	mu        sync.Mutex
	clients   map[string]*ipLimiter
	perMinute int
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(perMinute, burst int, ttl time.Duration) *ipLimiters {
	return &ipLimiters{
		clients:   make(map[string]*ipLimiter),
		perMinute: perMinute,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) >= l.ttl {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// RateLimit throttles per client IP. Used on the resolution endpoint, which
// is reachable without a session.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}

	limiters := newIPLimiters(perMinute, burst, limiterIdleTTL)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
