package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator identifies the client, the remote IP by default
	KeyGenerator func(c *fiber.Ctx) string
	// CleanupInterval is how often idle clients are forgotten
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    60,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		CleanupInterval: 5 * time.Minute,
	}
}

// clientWindow tracks the fixed window of one client
type clientWindow struct {
	count      int
	windowEnd  time.Time
	lastAccess time.Time
}

// RateLimiter implements a fixed window limit per client
type RateLimiter struct {
	config  RateLimiterConfig
	clients map[string]*clientWindow
	mu      sync.Mutex
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = defaults.Max
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Stop shuts down the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}

// Handler returns the Fiber middleware handler
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		now := rl.now()

		rl.mu.Lock()
		client, exists := rl.clients[key]
		if !exists || now.After(client.windowEnd) {
			client = &clientWindow{windowEnd: now.Add(rl.config.Window)}
			rl.clients[key] = client
		}
		client.count++
		client.lastAccess = now
		count := client.count
		windowEnd := client.windowEnd
		rl.mu.Unlock()

		remaining := max(rl.config.Max-count, 0)
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", windowEnd.Format(time.RFC3339))

		if count > rl.config.Max {
			retryAfter := int(windowEnd.Sub(now).Seconds())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(retryAfter, 1)))
			return domain.ErrRateLimitExceeded
		}

		return c.Next()
	}
}

// cleanup removes stale entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle forgets clients idle for more than two windows
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, client := range rl.clients {
		if now.Sub(client.lastAccess) > 2*rl.config.Window {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}
