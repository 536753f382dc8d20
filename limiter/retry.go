package limiter

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cryptodash/market-ingestor-go/coingecko"
)

// RetryPolicy wraps one upstream call with bounded exponential backoff.
// Only quota rejections (HTTP 429) are retried; every other failure is
// permanent and surfaces to the caller immediately so the per-entity loop
// can skip and continue without burning retry budget.
type RetryPolicy struct {
	limiter    *RateLimiter
	maxRetries uint64
	baseDelay  time.Duration
}

func NewRetryPolicy(rl *RateLimiter, maxRetries uint64, baseDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{limiter: rl, maxRetries: maxRetries, baseDelay: baseDelay}
}

// Execute runs op through the rate limiter, retrying quota errors with
// delays baseDelay, 2*baseDelay, 4*baseDelay, ... up to maxRetries extra
// attempts.
func Execute[T any](p *RetryPolicy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.baseDelay << p.maxRetries
	b.MaxElapsedTime = 0

	return backoff.RetryWithData(func() (T, error) {
		p.limiter.Acquire()
		result, err := op()
		if err != nil && !errors.Is(err, coingecko.ErrRateLimited) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, backoff.WithMaxRetries(b, p.maxRetries))
}
