package session

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Limiter throttles challenge starts per user with a token bucket.
type Limiter struct {
	limiterByUser *ttlcache.Cache[string, *rate.Limiter]
	perMinute     int
	burst         int
}

// NewLimiter returns a limiter refilling perMinute tokens per minute. A non-positive
// perMinute disables limiting. The returned func stops the cache loop.
func NewLimiter(perMinute, burst int) (*Limiter, func()) {
	if burst <= 0 {
		burst = 1
	}
	limiterTTLCache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](30 * time.Minute),
	)
	go limiterTTLCache.Start()

	return &Limiter{
		limiterByUser: limiterTTLCache,
		perMinute:     perMinute,
		burst:         burst,
	}, limiterTTLCache.Stop
}

// Allow consumes one token for key, reporting whether the call may proceed.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}
	limiter, _ := l.limiterByUser.GetOrSet(key, rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.burst))
	return limiter.Value().Allow()
}
