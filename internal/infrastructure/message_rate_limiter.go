package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ChatRateLimiter throttles inbound messages per chat so a flood of
// updates cannot tie up the bot. It is independent of the guest print
// cooldown.
type ChatRateLimiter struct {
	mu          sync.Mutex
	limiters    map[int64]*chatLimiter
	limit       rate.Limit
	burst       int
	idleTTL     time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewChatRateLimiter allows perMinute messages per chat with the given burst.
func NewChatRateLimiter(perMinute float64, burst int) *ChatRateLimiter {
	return &ChatRateLimiter{
		limiters: make(map[int64]*chatLimiter),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one token for chatID.
func (rl *ChatRateLimiter) Allow(chatID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanupLocked(now)

	cl, ok := rl.limiters[chatID]
	if !ok {
		cl = &chatLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[chatID] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked chats.
func (rl *ChatRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// cleanupLocked drops chats idle for longer than idleTTL. It runs at most
// once per idleTTL, on the request path.
func (rl *ChatRateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < rl.idleTTL {
		return
	}
	rl.lastCleanup = now
	for id, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > rl.idleTTL {
			delete(rl.limiters, id)
		}
	}
}
