// Package retry runs an operation a bounded number of times with
// exponential backoff and random jitter between attempts.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"sjsage522/productbot/logger"
	perrors "sjsage522/productbot/pkg/errors"
)

const (
	DefaultAttempts = 5
	DefaultBase     = 2.0
)

// Retrier invokes an operation until it succeeds or the attempt bound is hit
type Retrier struct {
	Attempts int
	Base     float64

	// Jitter returns a value in [0, 1) added to every delay, in seconds
	Jitter func() float64
	// Sleep waits for d or until ctx is done
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned once every attempt has failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// New returns a Retrier using real time and math/rand jitter
func New(attempts int, base float64) *Retrier {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if base <= 1 {
		base = DefaultBase
	}
	return &Retrier{
		Attempts: attempts,
		Base:     base,
		Jitter:   rand.Float64,
		Sleep:    sleepContext,
	}
}

// Backoff returns the delay after the given zero-based attempt:
// Base^attempt + jitter seconds.
func (r *Retrier) Backoff(attempt int) time.Duration {
	jitter := 0.0
	if r.Jitter != nil {
		jitter = r.Jitter()
	}
	seconds := math.Pow(r.Base, float64(attempt)) + jitter
	return time.Duration(seconds * float64(time.Second))
}

// Do calls op until it returns nil. It stops early when ctx is done or op
// returns an error that is not retryable.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	log := logger.ForWorker()
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !perrors.IsRetryable(err) {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("Giving up on non-retryable error")
			return zero, err
		}

		if attempt == r.Attempts-1 {
			break
		}

		delay := r.Backoff(attempt)
		log.Info().
			Err(err).
			Dur("delay", delay).
			Msgf("Retrying... Attempt %d of %d", attempt+1, r.Attempts)

		if err := r.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: r.Attempts, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
