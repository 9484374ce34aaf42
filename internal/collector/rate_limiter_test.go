package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateLimiterUpdateLimit(t *testing.T) {
	limiter := NewRateLimiter(0, zap.NewNop())
	reset := time.Now().Add(10 * time.Minute)
	limiter.UpdateLimit(42, reset)

	remaining, resetTime, err := limiter.CheckLimit()
	require.NoError(t, err)
	assert.Equal(t, 42, remaining)
	assert.Equal(t, reset, resetTime)
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(0, zap.NewNop())
	limiter.UpdateLimit(1, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterResetsAfterExpiredWindow(t *testing.T) {
	limiter := NewRateLimiter(0, zap.NewNop())
	limiter.UpdateLimit(0, time.Now().Add(-time.Second))

	require.NoError(t, limiter.Wait(context.Background()))
	remaining, _, _ := limiter.CheckLimit()
	assert.Equal(t, 5000, remaining)
}

func TestRateLimiterSpacesConcurrentCallers(t *testing.T) {
	const callers = 5
	minDelay := 20 * time.Millisecond
	limiter := NewRateLimiter(minDelay, zap.NewNop())

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, limiter.Wait(context.Background()))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), time.Duration(callers-1)*minDelay)
}
