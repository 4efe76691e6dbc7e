package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMin  int           // per-client request budget per minute
	Burst           int           // burst capacity above the steady rate
	CleanupInterval time.Duration // how often idle client entries are swept
	MaxIdle         time.Duration // how long a client may be idle before its entry is dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMin:  60,
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		MaxIdle:         10 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides in-memory per-client rate limiting using token buckets.
type RateLimiter struct {
	config Config

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(config Config) *RateLimiter {
	defaults := DefaultConfig()
	if config.RequestsPerMin <= 0 {
		config.RequestsPerMin = defaults.RequestsPerMin
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxIdle <= 0 {
		config.MaxIdle = defaults.MaxIdle
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// AllowIP checks whether the given client IP may make another request.
func (rl *RateLimiter) AllowIP(ip string) *Result {
	return rl.allow("ip:"+ip, rl.config.RequestsPerMin, rl.config.Burst)
}

// allow performs the token bucket check for a single client key.
func (rl *RateLimiter) allow(key string, requestsPerMin, burst int) *Result {
	now := time.Now()

	rl.mu.Lock()
	client, exists := rl.clients[key]
	if !exists {
		rps := rate.Limit(float64(requestsPerMin) / 60.0)
		client = &clientLimiter{limiter: rate.NewLimiter(rps, burst)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	limiter := client.limiter
	rl.mu.Unlock()

	allowed := limiter.Allow()

	remaining := int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Limit:     requestsPerMin,
		Remaining: remaining,
		ResetAt:   now.Add(time.Minute),
	}

	if !allowed {
		// Reserve-and-cancel reveals how long until the next token accrues.
		reservation := limiter.Reserve()
		if reservation.OK() {
			result.RetryAfter = reservation.Delay()
			reservation.Cancel()
		} else {
			result.RetryAfter = time.Minute
		}
		if result.RetryAfter < time.Second {
			result.RetryAfter = time.Second
		}
		result.ResetAt = now.Add(result.RetryAfter)
	}

	return result
}

// cleanupLoop periodically removes limiters for clients that went quiet.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.MaxIdle)

	rl.mu.Lock()
	for key, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	rl.mu.Unlock()
}

// Close stops the background cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	trackedClients := len(rl.clients)
	rl.mu.Unlock()

	return map[string]interface{}{
		"tracked_clients":  trackedClients,
		"requests_per_min": rl.config.RequestsPerMin,
		"burst":            rl.config.Burst,
	}
}
