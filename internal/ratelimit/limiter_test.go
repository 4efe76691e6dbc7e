package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerMin: 60, Burst: 5})
	defer limiter.Close()

	for i := 0; i < 5; i++ {
		result := limiter.AllowIP("203.0.113.7")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 60, result.Limit)
	}

	result := limiter.AllowIP("203.0.113.7")
	assert.False(t, result.Allowed, "request past burst should be blocked")
	assert.GreaterOrEqual(t, result.RetryAfter, time.Second)
	assert.False(t, result.ResetAt.IsZero())
}

func TestRateLimiterIndependentClients(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerMin: 60, Burst: 2})
	defer limiter.Close()

	require.True(t, limiter.AllowIP("10.0.0.1").Allowed)
	require.True(t, limiter.AllowIP("10.0.0.1").Allowed)
	assert.False(t, limiter.AllowIP("10.0.0.1").Allowed)

	assert.True(t, limiter.AllowIP("10.0.0.2").Allowed, "second client has its own bucket")
}

func TestRateLimiterRemainingDecreases(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerMin: 60, Burst: 3})
	defer limiter.Close()

	first := limiter.AllowIP("198.51.100.4")
	require.True(t, first.Allowed)
	assert.Equal(t, 2, first.Remaining)

	second := limiter.AllowIP("198.51.100.4")
	require.True(t, second.Allowed)
	assert.Equal(t, 1, second.Remaining)
}

func TestRateLimiterEndpointBudgetIsSeparate(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerMin: 60, Burst: 10})
	defer limiter.Close()

	// Exhaust a 2-per-minute endpoint budget without touching the IP budget.
	key := "endpoint:refresh:10.0.0.9"
	require.True(t, limiter.allow(key, 2, 2).Allowed)
	require.True(t, limiter.allow(key, 2, 2).Allowed)

	blocked := limiter.allow(key, 2, 2)
	assert.False(t, blocked.Allowed)
	assert.Equal(t, 2, blocked.Limit)

	assert.True(t, limiter.AllowIP("10.0.0.9").Allowed)
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(Config{})
	defer limiter.Close()

	stats := limiter.GetStats()
	assert.Equal(t, 60, stats["requests_per_min"])
	assert.Equal(t, 10, stats["burst"])
	assert.Equal(t, 0, stats["tracked_clients"])

	limiter.AllowIP("10.1.1.1")
	limiter.AllowIP("10.1.1.2")

	stats = limiter.GetStats()
	assert.Equal(t, 2, stats["tracked_clients"])
}

func TestRateLimiterCleanupRemovesIdleClients(t *testing.T) {
	limiter := NewRateLimiter(Config{
		RequestsPerMin:  60,
		Burst:           5,
		CleanupInterval: time.Hour,
		MaxIdle:         10 * time.Millisecond,
	})
	defer limiter.Close()

	limiter.AllowIP("10.2.0.1")
	limiter.AllowIP("10.2.0.2")
	limiter.AllowIP("10.2.0.3")

	time.Sleep(25 * time.Millisecond)
	limiter.cleanup()

	stats := limiter.GetStats()
	assert.Equal(t, 0, stats["tracked_clients"])
}

func TestRateLimiterCleanupKeepsActiveClients(t *testing.T) {
	limiter := NewRateLimiter(Config{
		RequestsPerMin:  60,
		Burst:           5,
		CleanupInterval: time.Hour,
		MaxIdle:         time.Hour,
	})
	defer limiter.Close()

	limiter.AllowIP("10.3.0.1")
	limiter.cleanup()

	stats := limiter.GetStats()
	assert.Equal(t, 1, stats["tracked_clients"])
}

func TestRateLimiterConcurrency(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerMin: 6000, Burst: 1000})
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result := limiter.AllowIP("10.4.0.1")
				assert.NotNil(t, result)
			}
		}()
	}
	wg.Wait()

	stats := limiter.GetStats()
	assert.Equal(t, 1, stats["tracked_clients"])
}

func TestRateLimiterCloseIsIdempotent(t *testing.T) {
	limiter := NewRateLimiter(Config{})
	limiter.Close()
	limiter.Close()
}
