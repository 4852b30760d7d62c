package market

import (
	"time"
)

// RateLimiter is a token bucket refilled once per second. The public market
// endpoints allow far more than we ever request; the limiter exists so that
// asset-list refreshes and order-book polling cannot starve each other.
type RateLimiter struct {
	tokens chan struct{}
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	rl := &RateLimiter{
		tokens: make(chan struct{}, requestsPerSecond),
	}

	for i := 0; i < requestsPerSecond; i++ {
		rl.tokens <- struct{}{}
	}

	go rl.refill(requestsPerSecond)

	return rl
}

func (rl *RateLimiter) refill(requestsPerSecond int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for i := 0; i < requestsPerSecond; i++ {
			select {
			case rl.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a request token is available.
func (rl *RateLimiter) Wait() {
	<-rl.tokens
}
