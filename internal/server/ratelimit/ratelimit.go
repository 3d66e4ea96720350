// Package ratelimit limits requests per client and endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time

// TokenBucket allows capacity requests at once and refills at refillRate tokens per second.
type TokenBucket struct {
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
	now        Clock
	mu         sync.Mutex
}

func newTokenBucket(capacity int, refillRate float64, now Clock) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now(),
		now:        now,
	}
}

// refill must be called with mu held
func (tb *TokenBucket) refill() time.Time {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed > 0 {
		tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
		tb.lastRefill = now
	}
	return now
}

// take consumes a token if one is available and reports the bucket state afterwards.
// wait is how long until the next token when the request was refused.
func (tb *TokenBucket) take() (allowed bool, remaining int, resetTime time.Time, wait time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		allowed = true
	} else if tb.refillRate > 0 {
		wait = time.Duration((1.0 - tb.tokens) / tb.refillRate * float64(time.Second))
	}

	remaining = int(tb.tokens)
	resetTime = now
	if missing := float64(tb.capacity) - tb.tokens; missing > 0 && tb.refillRate > 0 {
		resetTime = now.Add(time.Duration(missing / tb.refillRate * float64(time.Second)))
	}
	return allowed, remaining, resetTime, wait
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration // Buckets untouched this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

type entry struct {
	bucket     *TokenBucket
	lastAccess time.Time
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	config  *Config
	now     Clock
	mu      sync.Mutex
	buckets map[string]*entry
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter. A nil config selects a 1000 requests per minute default.
func NewLimiter(config *Config) *Limiter {
	return NewLimiterWithClock(config, time.Now)
}

// NewLimiterWithClock is NewLimiter with a custom time source
func NewLimiterWithClock(config *Config, now Clock) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    DefaultLimit,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = time.Hour
	}

	l := &Limiter{
		config:  config,
		now:     now,
		buckets: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if ec.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + ":" + endpoint + ":" + method
	allowed, remaining, resetTime, retryAfter := l.bucket(key, ec).take()

	return allowed, Info{
		Allowed:    allowed,
		Limit:      ec.Limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: retryAfter,
	}
}

func (l *Limiter) bucket(key string, ec *EndpointConfig) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.buckets[key]; ok {
		e.lastAccess = now
		return e.bucket
	}

	capacity := ec.Burst
	if capacity <= 0 {
		capacity = ec.Limit
	}
	window := ec.Window
	if window <= 0 {
		window = time.Minute
	}
	b := newTokenBucket(capacity, float64(ec.Limit)/window.Seconds(), l.now)
	l.buckets[key] = &entry{bucket: b, lastAccess: now}
	return b
}

// Len reports how many buckets are tracked
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stop:
			return
		}
	}
}

// Cleanup drops buckets that have been idle longer than IdleTimeout
func (l *Limiter) Cleanup() {
	cutoff := l.now().Add(-l.config.IdleTimeout)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.buckets {
		if e.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
