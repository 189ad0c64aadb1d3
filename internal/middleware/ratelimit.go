package middleware

import (
	"sync"
	"time"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter gates how often a single user can trigger a reply.
type RateLimiter interface {
	Allow(userID int64) bool
	Reset(userID int64)
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter implements per-user rate limiting on token buckets.
type UserRateLimiter struct {
	enabled bool
	mu      sync.Mutex
	users   map[int64]*userLimiter
	rps     rate.Limit
	burst   int
	logger  *logrus.Logger
}

// NewRateLimiter creates a rate limiter from config. When disabled it
// allows everything.
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) RateLimiter {
	if !cfg.RateLimit.Enabled {
		return &UserRateLimiter{enabled: false}
	}

	rl := &UserRateLimiter{
		enabled: true,
		users:   make(map[int64]*userLimiter),
		rps:     rate.Limit(float64(cfg.RateLimit.RequestsPerMinute) / 60.0),
		burst:   cfg.RateLimit.Burst,
		logger:  logger,
	}

	go rl.cleanup(time.Hour)

	return rl
}

// Allow reports whether the user may trigger another reply now.
func (r *UserRateLimiter) Allow(userID int64) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	u, ok := r.users[userID]
	if !ok {
		u = &userLimiter{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.users[userID] = u
	}
	u.lastSeen = time.Now()
	r.mu.Unlock()

	allowed := u.limiter.Allow()
	if !allowed {
		r.logger.WithField("user_id", userID).Warn("Rate limit exceeded")
	}
	return allowed
}

// Reset forgets a user's bucket.
func (r *UserRateLimiter) Reset(userID int64) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}

// cleanup drops buckets for users not seen within maxIdle.
func (r *UserRateLimiter) cleanup(maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-maxIdle)
		r.mu.Lock()
		for id, u := range r.users {
			if u.lastSeen.Before(cutoff) {
				delete(r.users, id)
			}
		}
		r.mu.Unlock()
	}
}
