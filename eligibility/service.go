package eligibility

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Source

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/riffus/hyperswitch/audit"
	"github.com/riffus/hyperswitch/eligibility/metrics"
	"github.com/riffus/hyperswitch/graphcache"
	"github.com/riffus/hyperswitch/kgraph"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// Source loads the active configuration record for an identity.
type Source interface {
	Configuration(ctx context.Context, id ruleset.Identity) (*ruleset.Configuration, error)
}

// Service is the entry point for eligibility checks: it loads the
// configuration, obtains the compiled graph through the cache, evaluates the
// candidate, and emits metrics and audit events around the result.
type Service struct {
	source   Source
	compiler *kgraph.Compiler
	cache    *graphcache.Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	audit    audit.Emitter
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer attaches a tracer; checks run under a span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAudit attaches an audit emitter. Emission is best-effort: a failing
// audit sink never fails a check.
func WithAudit(e audit.Emitter) Option {
	return func(s *Service) { s.audit = e }
}

// WithCompiler replaces the rule compiler behind the default cache.
func WithCompiler(c *kgraph.Compiler) Option {
	return func(s *Service) {
		if c != nil {
			s.compiler = c
		}
	}
}

// WithCache replaces the graph cache.
func WithCache(c *graphcache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithClock replaces the latency clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Service reading configurations from source. Unless options
// say otherwise, graphs are compiled with the default compiler and cached
// with default bounds.
func New(source Source, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "eligibility: nil source")
	}
	s := &Service{
		source: source,
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer("eligibility"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = kgraph.New()
	}
	if s.cache == nil {
		cache, err := graphcache.New(s.compiler.Compile)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Check evaluates one candidate against the identity's active configuration.
// With explain, an ineligible result carries every violated constraint;
// without it, evaluation stops at the first violation.
func (s *Service) Check(ctx context.Context, id ruleset.Identity, candidate Candidate, explain bool) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.Check")
	defer span.End()

	start := s.now()
	graph, err := s.graph(ctx, id)
	if err != nil {
		s.metrics.ObserveCheck("error", s.now().Sub(start))
		return Result{}, err
	}

	res := Evaluate(graph.Graph, candidate, explain)
	latency := s.now().Sub(start)

	outcome := "ineligible"
	if res.Eligible {
		outcome = "eligible"
	}
	s.metrics.ObserveCheck(outcome, latency)
	span.SetAttributes(
		attribute.Bool("eligibility.eligible", res.Eligible),
		attribute.Int("eligibility.reasons", len(res.Reasons)),
	)
	s.logger.DebugContext(ctx, "eligibility checked",
		"identity", id.Key(),
		"candidate", candidate.String(),
		"eligible", res.Eligible,
		"reasons", len(res.Reasons),
		"duration", latency,
	)
	s.emitChecked(ctx, graph, candidate, res, latency)
	return res, nil
}

// CheckAll evaluates many candidates against one configuration, compiling
// the graph once and fanning evaluations out across CPUs. Results align with
// candidates by index.
func (s *Service) CheckAll(ctx context.Context, id ruleset.Identity, candidates []Candidate, explain bool) ([]Result, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.CheckAll")
	defer span.End()
	span.SetAttributes(attribute.Int("eligibility.candidates", len(candidates)))

	graph, err := s.graph(ctx, id)
	if err != nil {
		s.metrics.ObserveCheck("error", 0)
		return nil, err
	}

	results := make([]Result, len(candidates))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = Evaluate(graph.Graph, c, explain)
			return nil
		})
	}
	// Evaluations are pure and never fail.
	_ = g.Wait()

	s.metrics.ObserveBatch(len(candidates))
	for i, res := range results {
		s.emitChecked(ctx, graph, candidates[i], res, 0)
	}
	s.logger.DebugContext(ctx, "eligibility batch checked",
		"identity", id.Key(),
		"candidates", len(candidates),
	)
	return results, nil
}

// graph loads the configuration and resolves it to a compiled graph through
// the cache.
func (s *Service) graph(ctx context.Context, id ruleset.Identity) (*kgraph.CompiledGraph, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	cfg, err := s.source.Configuration(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "eligibility: load configuration")
	}
	return s.cache.Get(ctx, cfg)
}

func (s *Service) emitChecked(ctx context.Context, graph *kgraph.CompiledGraph, candidate Candidate, res Result, latency time.Duration) {
	if s.audit == nil {
		return
	}
	eligible := res.Eligible
	reasons := make([]string, len(res.Reasons))
	for i, r := range res.Reasons {
		reasons[i] = r.String()
	}
	event := audit.Event{
		Action:      audit.ActionEligibilityChecked,
		MerchantID:  graph.Identity.MerchantID,
		ConnectorID: graph.Identity.ConnectorID,
		Version:     graph.Identity.Version,
		Fingerprint: graph.Fingerprint,
		Candidate:   candidate.String(),
		Eligible:    &eligible,
		Reasons:     reasons,
		Latency:     latency,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emission failed",
			"identity", graph.Identity.Key(),
			"error", err,
		)
	}
}
