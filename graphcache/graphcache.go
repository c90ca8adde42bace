// Package graphcache keeps compiled constraint graphs warm, keyed by
// configuration identity. A lookup reuses the cached graph as long as the
// stored fingerprint matches the fingerprint of the configuration presented;
// a mismatch recompiles and atomically replaces the entry. Concurrent
// lookups for the same identity and fingerprint coalesce into a single
// compilation.
//
// Eviction and replacement never invalidate a graph already handed out:
// callers hold their own reference and the runtime reclaims the old graph
// once the last evaluation finishes.
package graphcache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/riffus/hyperswitch/audit"
	"github.com/riffus/hyperswitch/graphcache/metrics"
	"github.com/riffus/hyperswitch/kgraph"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// DefaultMaxEntries bounds the cache by identity count unless overridden.
const DefaultMaxEntries = 512

// CompileFunc produces a compiled graph for a configuration. The kgraph
// Compiler's Compile method satisfies it.
type CompileFunc func(ctx context.Context, cfg *ruleset.Configuration) (*kgraph.CompiledGraph, error)

type entry struct {
	identity    ruleset.Identity
	fingerprint string
	graph       *kgraph.CompiledGraph
	err         error
	lastUsed    atomic.Int64
}

// Cache is an identity-keyed cache of compiled graphs. Reads take a shared
// lock and run in parallel; compilation and replacement for one identity
// never block readers of other identities. Compile failures are cached per
// (identity, fingerprint), so a known-bad configuration is not recompiled
// until its content changes.
type Cache struct {
	compile    CompileFunc
	maxEntries int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      audit.Emitter
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	flight  singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	compiles  atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached identities. Values below one
// fall back to the default.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithLogger attaches a logger for cache lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithAuditEmitter routes graph lifecycle events (compilations,
// invalidations) to the audit trail.
func WithAuditEmitter(e audit.Emitter) Option {
	return func(c *Cache) { c.audit = e }
}

// WithClock replaces the recency clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a cache that compiles through the given function on miss.
func New(compile CompileFunc, opts ...Option) (*Cache, error) {
	if compile == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "graphcache: nil compile function")
	}
	c := &Cache{
		compile:    compile,
		maxEntries: DefaultMaxEntries,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the compiled graph for the configuration, compiling it if the
// identity is absent or its stored fingerprint no longer matches the
// configuration content.
func (c *Cache) Get(ctx context.Context, cfg *ruleset.Configuration) (*kgraph.CompiledGraph, error) {
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "graphcache: nil configuration")
	}
	key := cfg.Identity.Key()
	fp, err := cfg.Fingerprint()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "graphcache: fingerprint")
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.fingerprint == fp {
		e.lastUsed.Store(c.now().UnixNano())
		c.hits.Add(1)
		c.metrics.Hit()
		return e.graph, e.err
	}

	c.misses.Add(1)
	c.metrics.Miss()

	// Coalesce on identity and content: racing lookups for the same bytes
	// share one compilation, while a racing update with new content
	// compiles independently and wins the map slot last.
	v, _, _ := c.flight.Do(key+"@"+fp, func() (any, error) {
		c.mu.RLock()
		cur, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && cur.fingerprint == fp {
			return cur, nil
		}

		c.compiles.Add(1)
		c.metrics.Compile()
		compiled, cerr := c.compile(ctx, cfg)
		ne := &entry{
			identity:    cfg.Identity,
			fingerprint: fp,
			graph:       compiled,
			err:         cerr,
		}
		ne.lastUsed.Store(c.now().UnixNano())
		if cerr != nil {
			c.failures.Add(1)
			c.metrics.Failure()
			c.logger.DebugContext(ctx, "graph compilation failed",
				"identity", cfg.Identity.Key(),
				"fingerprint", fp,
				"error", cerr,
			)
		} else {
			audit.Log(ctx, c.logger, c.audit, audit.ActionGraphCompiled,
				"merchant_id", cfg.Identity.MerchantID,
				"connector_id", cfg.Identity.ConnectorID,
				"version", cfg.Identity.Version,
				"fingerprint", fp,
				"nodes", compiled.Graph.NodeCount(),
				"edges", compiled.Graph.EdgeCount(),
			)
		}
		c.store(key, ne)
		return ne, nil
	})

	got := v.(*entry)
	return got.graph, got.err
}

// store atomically replaces the entry for key and evicts the least recently
// used identities beyond the bound.
func (c *Cache) store(key string, ne *entry) {
	c.mu.Lock()
	c.entries[key] = ne
	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		oldest := int64(0)
		for k, e := range c.entries {
			if k == key {
				// Never evict the entry just stored.
				continue
			}
			if t := e.lastUsed.Load(); oldestKey == "" || t < oldest {
				oldestKey, oldest = k, t
			}
		}
		if oldestKey == "" {
			break
		}
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
		c.metrics.Eviction()
	}
	size := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetEntries(size)
}

// Invalidate drops the entry for the identity, reporting whether one was
// cached. In-flight evaluations keep their graph; the next Get recompiles.
func (c *Cache) Invalidate(id ruleset.Identity) bool {
	key := id.Key()
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	size := len(c.entries)
	c.mu.Unlock()
	if ok {
		c.metrics.Invalidation(1)
		c.metrics.SetEntries(size)
	}
	return ok
}

// InvalidateMerchant drops every entry belonging to the merchant, across all
// connectors and versions, returning the number dropped.
func (c *Cache) InvalidateMerchant(merchantID string) int {
	c.mu.Lock()
	n := 0
	for k, e := range c.entries {
		if e.identity.MerchantID == merchantID {
			delete(c.entries, k)
			n++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()
	if n > 0 {
		c.metrics.Invalidation(n)
		c.metrics.SetEntries(size)
	}
	return n
}

// Purge drops every entry, returning the number dropped.
func (c *Cache) Purge() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	if n > 0 {
		c.metrics.Invalidation(n)
		c.metrics.SetEntries(0)
	}
	return n
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Compiles  uint64
	Failures  uint64
	Evictions uint64
	Entries   int
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Compiles:  c.compiles.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}
