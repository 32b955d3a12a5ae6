package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	perrors "sjsage522/productbot/pkg/errors"
)

// recorder captures sleeps instead of waiting
type recorder struct {
	delays []time.Duration
}

func (r *recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestRetrier(attempts int, jitter float64) (*Retrier, *recorder) {
	rec := &recorder{}
	r := New(attempts, 2)
	r.Jitter = func() float64 { return jitter }
	r.Sleep = rec.Sleep
	return r, rec
}

func TestBackoff(t *testing.T) {
	r, _ := newTestRetrier(5, 0.5)

	assert.Equal(t, 1500*time.Millisecond, r.Backoff(0))
	assert.Equal(t, 2500*time.Millisecond, r.Backoff(1))
	assert.Equal(t, 4500*time.Millisecond, r.Backoff(2))
	assert.Equal(t, 16500*time.Millisecond, r.Backoff(4))
}

func TestBackoffJitterRange(t *testing.T) {
	r := New(5, 2)
	for i := 0; i < 100; i++ {
		d := r.Backoff(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestDoStopsAtFirstSuccess(t *testing.T) {
	r, rec := newTestRetrier(5, 0)
	calls := 0

	got, err := Do(context.Background(), r, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", perrors.NewNetwork("test", "flaky", nil)
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDoExhausted(t *testing.T) {
	r, rec := newTestRetrier(5, 0)
	calls := 0
	last := perrors.NewHTTPStatus("test", 503)

	_, err := Do(context.Background(), r, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, last
	})

	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 5, calls)
	// No sleep after the final attempt
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
}

func TestDoNonRetryable(t *testing.T) {
	r, rec := newTestRetrier(5, 0)
	calls := 0

	_, err := Do(context.Background(), r, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, perrors.NewBlocked("test", time.Minute)
	})

	assert.True(t, perrors.IsType(err, perrors.ErrorTypeBlocked))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoContextCanceled(t *testing.T) {
	r, _ := newTestRetrier(5, 0)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, r, func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewDefaults(t *testing.T) {
	r := New(0, 0)
	assert.Equal(t, DefaultAttempts, r.Attempts)
	assert.Equal(t, DefaultBase, r.Base)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
