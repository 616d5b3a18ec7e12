package bridge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// tgRateLimit is Telegram's per-chat flood limit per minute; each chat's
// limiter allows tgRateLimit-1 calls per minute before Wait starts blocking.
const tgRateLimit = 20

// chatRateLimiter hands out one token-bucket limiter per Telegram chat id,
// creating it lazily on first use. golang.org/x/time/rate has no built-in
// keyed variant, so the keying is done by hand with a guarded map, matching
// the style already used for onebot.Server's connection and pending-call
// tables.
type chatRateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

func newChatRateLimiter() *chatRateLimiter {
	return &chatRateLimiter{limiters: make(map[int64]*rate.Limiter)}
}

func (c *chatRateLimiter) limiterFor(chatID int64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[chatID]
	if !ok {
		// tgRateLimit-1 per 60s, burst tgRateLimit-1: leaves headroom below
		// Telegram's per-chat flood limit while letting a freshly (re)created
		// bucket send its first burst immediately, same as a quota starting
		// full.
		l = rate.NewLimiter(rate.Every(60*time.Second/(tgRateLimit-1)), tgRateLimit-1)
		c.limiters[chatID] = l
	}
	return l
}

// Wait blocks until chatID's bucket has a token, or ctx is done.
func (c *chatRateLimiter) Wait(ctx context.Context, chatID int64) error {
	return c.limiterFor(chatID).Wait(ctx)
}
