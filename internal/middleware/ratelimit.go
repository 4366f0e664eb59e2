package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	limiterIdle  = 5 * time.Minute
	limiterSweep = 3 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CredentialLimiter throttles the password-bearing routes (register, login,
// password change) per client IP. Refused requests get 429 with Retry-After.
type CredentialLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewCredentialLimiter builds a limiter from the login_rps and login_burst
// settings. Non-positive values fall back to one request per second with a
// burst of one.
func NewCredentialLimiter(cfg config.AuthConfig) *CredentialLimiter {
	rps, burst := cfg.LoginRPS, cfg.LoginBurst
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &CredentialLimiter{
		buckets:   make(map[string]*clientBucket),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// reserve takes one token for key and reports how long the caller would have
// to wait for it. A positive wait means the request is refused and the token
// is handed back.
func (l *CredentialLimiter) reserve(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweep {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > limiterIdle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	if wait > 0 {
		r.CancelAt(now)
	}
	return wait
}

// Middleware returns the gin handler enforcing the limit.
func (l *CredentialLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if wait := l.reserve(ip); wait > 0 {
			logger.For(c).Warn().Str("ip", ip).Str("path", c.FullPath()).Dur("retry_after", wait).Msg("credential route throttled")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many attempts, please try again later",
			})
			return
		}
		c.Next()
	}
}
