// Package kgraph compiles merchant/connector configuration rules into the
// constraint graphs the eligibility evaluator queries. Compilation validates
// every rule value against the domain catalog, resolves contradictory rules
// in favor of the later declaration, lowers rules onto graph relations, and
// rejects rule sets that can never be jointly satisfied.
package kgraph

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/riffus/hyperswitch/catalog"
	"github.com/riffus/hyperswitch/cgraph"
	"github.com/riffus/hyperswitch/ruleset"
)

// CompiledGraph is the unit the cache stores and the evaluator queries: a
// frozen constraint graph plus the content fingerprint of the configuration
// it was compiled from.
type CompiledGraph struct {
	Graph       *cgraph.Graph
	Identity    ruleset.Identity
	Fingerprint string
	RuleCount   int
	CompiledAt  time.Time
}

// Compiler turns configuration records into CompiledGraphs. Construct with
// New; a zero Compiler is not usable. Safe for concurrent use.
type Compiler struct {
	catalog catalog.Catalog
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithCatalog replaces the built-in domain vocabulary.
func WithCatalog(c catalog.Catalog) Option {
	return func(k *Compiler) {
		if c != nil {
			k.catalog = c
		}
	}
}

// WithLogger attaches a logger for compilation debug output.
func WithLogger(l *slog.Logger) Option {
	return func(k *Compiler) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithTracer attaches a tracer; compilations run under a span.
func WithTracer(t trace.Tracer) Option {
	return func(k *Compiler) {
		if t != nil {
			k.tracer = t
		}
	}
}

// WithClock replaces the compilation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(k *Compiler) {
		if now != nil {
			k.now = now
		}
	}
}

// New returns a Compiler validating against the built-in catalog unless
// overridden.
func New(opts ...Option) *Compiler {
	k := &Compiler{
		catalog: catalog.NewStatic(),
		logger:  slog.New(slog.DiscardHandler),
		tracer:  noop.NewTracerProvider().Tracer("kgraph"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}
