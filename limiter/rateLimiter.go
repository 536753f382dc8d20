package limiter

import "time"

// RateLimiter paces outbound requests against the upstream quota with two
// independent brakes: a minimum interval between consecutive calls and a
// fixed request-count window. One instance is shared by all callers of a
// run; the pipeline is sequential, so access is single-owner and
// unsynchronized. A concurrent caller pool would need this rebuilt as a
// locked token bucket first.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	minInterval time.Duration

	requestCount int
	windowStart  time.Time
	lastCall     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewRateLimiter(maxRequests int, window, minInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		minInterval: minInterval,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	rl.windowStart = rl.now()
	return rl
}

// Acquire blocks until the caller may issue one upstream request. It never
// fails, it only waits.
func (rl *RateLimiter) Acquire() {
	rl.requestCount++

	if !rl.lastCall.IsZero() {
		if since := rl.now().Sub(rl.lastCall); since < rl.minInterval {
			rl.sleep(rl.minInterval - since)
		}
	}

	if rl.requestCount >= rl.maxRequests {
		if elapsed := rl.now().Sub(rl.windowStart); elapsed < rl.window {
			rl.sleep(rl.window - elapsed)
		}
		rl.requestCount = 0
		rl.windowStart = rl.now()
	}

	rl.lastCall = rl.now()
}
