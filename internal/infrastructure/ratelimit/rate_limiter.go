package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
	ActionSearch      = "search"
	ActionHTTP        = "http"
)

// Policy is the bucket shape of one action: PerMinute tokens refilled
// evenly, Burst tokens of capacity.
type Policy struct {
	PerMinute int
	Burst     int
}

func (p Policy) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(p.PerMinute)/60.0), p.Burst)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for different users and actions
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	entries  map[string]*entry
	mutex    sync.Mutex
}

// NewRateLimiter creates a limiter where sending is capped at sendPerMinute.
func NewRateLimiter(sendPerMinute int) *RateLimiter {
	if sendPerMinute <= 0 {
		sendPerMinute = 30
	}
	return &RateLimiter{
		policies: map[string]Policy{
			ActionSendMessage: {PerMinute: sendPerMinute, Burst: sendPerMinute},
			ActionTyping:      {PerMinute: 60, Burst: 10},
			ActionSearch:      {PerMinute: 30, Burst: 5},
			ActionHTTP:        {PerMinute: 300, Burst: 60},
		},
		fallback: Policy{PerMinute: 20, Burst: 20},
		entries:  make(map[string]*entry),
	}
}

// Allow checks if a user action is allowed and consumes a token if so.
// When it is not, the returned duration is the wait until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mutex.Lock()
	e, exists := rl.entries[key]
	if !exists {
		policy, ok := rl.policies[action]
		if !ok {
			policy = rl.fallback
		}
		e = &entry{limiter: policy.limiter()}
		rl.entries[key] = e
	}
	e.lastSeen = time.Now()
	rl.mutex.Unlock()

	r := e.limiter.Reserve()
	if !r.OK() {
		return false, 0
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

// Tokens returns the tokens currently available for a user action.
func (rl *RateLimiter) Tokens(userID, action string) float64 {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	e, exists := rl.entries[userID+":"+action]
	if !exists {
		if policy, ok := rl.policies[action]; ok {
			return float64(policy.Burst)
		}
		return float64(rl.fallback.Burst)
	}
	return e.limiter.Tokens()
}

// Cleanup removes limiters that have not been used for idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-idle)
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
}

// StartCleanupRoutine periodically drops limiters idle for an hour until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
