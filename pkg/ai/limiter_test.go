package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterEnforcesMinimumDelay(t *testing.T) {
	limiter := NewLimiter(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))

	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiterZeroDelayNeverWaits(t *testing.T) {
	limiter := NewLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterReturnsContextError(t *testing.T) {
	limiter := NewLimiter(time.Minute)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterSerializesConcurrentCallers(t *testing.T) {
	limiter := NewLimiter(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		go func() {
			_ = limiter.Acquire(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}

	// three acquisitions need at least two full delays between them
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
