package spawn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks per-actor claim attempts so the cooldown survives
// process restarts and works across concurrent handler instances.
type CooldownStore interface {
	// TouchAttempt records an attempt at now unless one already exists within
	// the window, and reports whether the actor is still cooling down.
	TouchAttempt(ctx context.Context, actorID string, now time.Time, window time.Duration) (bool, error)
}

// RedisCooldowns keeps attempt records in redis with the window as TTL.
type RedisCooldowns struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCooldowns(client *redis.Client) *RedisCooldowns {
	logger := slog.With("component", "claim_cooldowns", "backend", "redis")
	logger.Debug("Initializing redis claim cooldown store")
	return &RedisCooldowns{client: client, logger: logger}
}

func (c *RedisCooldowns) TouchAttempt(ctx context.Context, actorID string, now time.Time, window time.Duration) (bool, error) {
	key := "claim_cooldown:" + actorID

	// SET NX records the attempt and checks the window in one round trip; an
	// existing key means a prior attempt is still inside the window.
	set, err := c.client.SetNX(ctx, key, now.Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to touch claim cooldown: %w", err)
	}

	return !set, nil
}

// MemoryCooldowns is the in-process fallback when redis is disabled. Stale
// entries are evicted by a background janitor.
type MemoryCooldowns struct {
	mu        sync.Mutex
	attempts  map[string]time.Time
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func NewMemoryCooldowns(evictionInterval time.Duration) *MemoryCooldowns {
	logger := slog.With("component", "claim_cooldowns", "backend", "memory")
	logger.Info("Redis disabled, using in-memory claim cooldown store")

	c := &MemoryCooldowns{
		attempts: make(map[string]time.Time),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go c.evictStale(evictionInterval)
	return c
}

// Close stops the eviction janitor. Safe to call more than once.
func (c *MemoryCooldowns) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *MemoryCooldowns) TouchAttempt(ctx context.Context, actorID string, now time.Time, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.attempts[actorID]; ok && now.Sub(last) < window {
		return true, nil
	}

	c.attempts[actorID] = now
	return false, nil
}

func (c *MemoryCooldowns) evictStale(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-interval)
			c.mu.Lock()
			for actorID, last := range c.attempts {
				if last.Before(cutoff) {
					delete(c.attempts, actorID)
				}
			}
			c.mu.Unlock()
		}
	}
}
