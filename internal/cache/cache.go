// Package cache memoizes completion outcomes by request identity.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tjfontaine/tutorai/internal/domain"
	"github.com/tjfontaine/tutorai/internal/session"
)

// Scope selects how cache entries are shared.
type Scope string

const (
	// ScopeShared shares entries across every caller of the process.
	ScopeShared Scope = "shared"
	// ScopeSession partitions entries by the session id in the context.
	ScopeSession Scope = "session"
)

// ParseScope validates a configured scope. Empty means shared.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeShared:
		return ScopeShared, nil
	case ScopeSession:
		return ScopeSession, nil
	default:
		return "", fmt.Errorf("unknown cache scope %q (want %q or %q)", s, ScopeShared, ScopeSession)
	}
}

// Options configures a Cache.
type Options struct {
	// Size bounds the number of entries; zero or negative means unbounded.
	Size int
	// TTL expires entries after the given age; zero means entries never expire.
	TTL time.Duration
	// Scope selects shared or per-session entries.
	Scope Scope
	// CacheFailures stores Failure outcomes as well as Success and Empty.
	CacheFailures bool
	Logger        *slog.Logger
}

// Stats reports cache activity.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Cache maps request keys to completion outcomes. It is safe for concurrent use.
type Cache struct {
	lru    *expirable.LRU[string, domain.CompletionOutcome]
	opts   Options
	logger *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache.
func New(opts Options) *Cache {
	if opts.Scope == "" {
		opts.Scope = ScopeShared
	}
	c := &Cache{
		opts:   opts,
		logger: opts.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	size := opts.Size
	if size < 0 {
		size = 0
	}
	c.lru = expirable.NewLRU[string, domain.CompletionOutcome](size, c.onEvict, opts.TTL)
	return c
}

func (c *Cache) onEvict(key string, _ domain.CompletionOutcome) {
	c.evictions.Add(1)
	c.logger.Debug("cache entry evicted", slog.String("key", key))
}

// Key returns the cache key for req within ctx's scope.
func (c *Cache) Key(ctx context.Context, req *domain.CompletionRequest) string {
	key := req.Key()
	if c.opts.Scope == ScopeSession {
		return session.FromContext(ctx) + ":" + key
	}
	return key
}

// Get returns the stored outcome for req.
func (c *Cache) Get(ctx context.Context, req *domain.CompletionRequest) (domain.CompletionOutcome, bool) {
	outcome, ok := c.lru.Get(c.Key(ctx, req))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return outcome, ok
}

// Peek returns the stored outcome without touching recency or hit counters.
func (c *Cache) Peek(ctx context.Context, req *domain.CompletionRequest) (domain.CompletionOutcome, bool) {
	return c.lru.Peek(c.Key(ctx, req))
}

// Put stores outcome for req and reports whether it was stored.
// Failures are skipped unless CacheFailures is set.
func (c *Cache) Put(ctx context.Context, req *domain.CompletionRequest, outcome domain.CompletionOutcome) bool {
	if outcome.Kind == domain.OutcomeFailure && !c.opts.CacheFailures {
		return false
	}
	c.lru.Add(c.Key(ctx, req), outcome)
	return true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:   c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Scope returns the configured scope.
func (c *Cache) Scope() Scope {
	return c.opts.Scope
}
