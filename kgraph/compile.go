package kgraph

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riffus/hyperswitch/catalog"
	"github.com/riffus/hyperswitch/cgraph"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// Compile translates one configuration record into a frozen constraint
// graph. The pipeline: validate every value against the catalog, resolve
// contradictory rules (later declaration wins), lower rules onto graph
// relations, and reject rule sets that can never be jointly satisfied.
// The first error aborts; no partial graph is ever returned.
func (k *Compiler) Compile(ctx context.Context, cfg *ruleset.Configuration) (*CompiledGraph, error) {
	ctx, span := k.tracer.Start(ctx, "kgraph.Compile")
	defer span.End()

	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "compile: nil configuration")
	}
	if err := cfg.Identity.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("merchant_id", cfg.Identity.MerchantID),
		attribute.String("connector_id", cfg.Identity.ConnectorID),
		attribute.Int64("version", cfg.Identity.Version),
	)
	start := time.Now()

	norm := make([]normRule, 0, len(cfg.Rules))
	for i, r := range cfg.Rules {
		if cerr := k.validateRule(i, r); cerr != nil {
			return nil, cerr.coded()
		}
		norm = append(norm, normalizeRule(i, r))
	}

	winners, cerr := resolveAssertions(norm)
	if cerr != nil {
		return nil, cerr.coded()
	}
	if cerr := checkConsistency(norm, winners); cerr != nil {
		return nil, cerr.coded()
	}

	g, err := k.build(norm, winners)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "compile: graph construction")
	}

	fp, err := cfg.Fingerprint()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compile: fingerprint")
	}

	compiled := &CompiledGraph{
		Graph:       g,
		Identity:    cfg.Identity,
		Fingerprint: fp,
		RuleCount:   len(cfg.Rules),
		CompiledAt:  k.now(),
	}
	span.SetAttributes(
		attribute.Int("graph.nodes", g.NodeCount()),
		attribute.Int("graph.edges", g.EdgeCount()),
	)
	k.logger.DebugContext(ctx, "configuration compiled",
		"merchant_id", cfg.Identity.MerchantID,
		"connector_id", cfg.Identity.ConnectorID,
		"version", cfg.Identity.Version,
		"rules", len(cfg.Rules),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", time.Since(start),
	)
	return compiled, nil
}

func (k *Compiler) validateRule(index int, r ruleset.Rule) *CompileError {
	if r.Precondition == nil {
		return ruleErr(MalformedRule, index, r.ID, catalog.Pair{}, "missing precondition")
	}
	if !r.Consequence.Kind.Valid() {
		return ruleErr(MalformedRule, index, r.ID, catalog.Pair{},
			"unknown consequence kind "+string(r.Consequence.Kind))
	}
	if len(r.Consequence.Values) == 0 {
		return ruleErr(MalformedRule, index, r.ID, catalog.Pair{}, "empty consequence")
	}
	for _, v := range r.Precondition {
		if cerr := k.checkValue(index, r.ID, v); cerr != nil {
			return cerr
		}
	}
	for _, v := range r.Consequence.Values {
		if cerr := k.checkValue(index, r.ID, v); cerr != nil {
			return cerr
		}
	}
	return nil
}

func (k *Compiler) checkValue(index int, id string, v ruleset.Value) *CompileError {
	if v.Category == "" || v.Value == "" {
		return ruleErr(MalformedRule, index, id, v.Pair, "incomplete value pair")
	}
	if !k.catalog.Contains(v.Pair) {
		return ruleErr(UnknownDomainValue, index, id, v.Pair, "not in catalog")
	}
	return nil
}

// normRule is a rule with a canonical precondition signature and
// deduplicated value sets.
type normRule struct {
	index   int
	id      string
	kind    ruleset.ConsequenceKind
	pre     []ruleset.Value
	sig     string
	targets []ruleset.Value
}

func (r *normRule) unconditional() bool { return len(r.pre) == 0 }

func normalizeRule(index int, r ruleset.Rule) normRule {
	pre := dedupeValues(r.Precondition)
	sort.Slice(pre, func(i, j int) bool {
		if pre[i].Category != pre[j].Category {
			return pre[i].Category < pre[j].Category
		}
		return pre[i].Value < pre[j].Value
	})
	var sb strings.Builder
	for i, v := range pre {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(v.Pair.String())
	}
	return normRule{
		index:   index,
		id:      r.ID,
		kind:    r.Consequence.Kind,
		pre:     pre,
		sig:     sb.String(),
		targets: dedupeValues(r.Consequence.Values),
	}
}

// dedupeValues collapses repeated pairs, keeping first-appearance order.
// Sensitivity is sticky across duplicates.
func dedupeValues(vals []ruleset.Value) []ruleset.Value {
	if len(vals) == 0 {
		return nil
	}
	out := make([]ruleset.Value, 0, len(vals))
	at := make(map[catalog.Pair]int, len(vals))
	for _, v := range vals {
		if i, ok := at[v.Pair]; ok {
			if v.Sensitive {
				out[i].Sensitive = true
			}
			continue
		}
		at[v.Pair] = len(out)
		out = append(out, v)
	}
	return out
}

// pairKey identifies one pairwise assertion: a precondition signature and a
// target value. Contradictory require/exclude assertions on the same key are
// resolved in favor of the later rule.
type pairKey struct {
	sig    string
	target catalog.Pair
}

type assertion struct {
	rule int
	kind ruleset.ConsequenceKind
}

// resolveAssertions runs the override pass. Conditional require and exclude
// consequences enter pairwise resolution; one-of consequences are disjunctive
// and do not. Unconditional rules have no source pair to resolve on, so a
// value both unconditionally required and unconditionally excluded is a
// construction error rather than an override.
func resolveAssertions(norm []normRule) (map[pairKey]assertion, *CompileError) {
	winners := make(map[pairKey]assertion)
	uncondRequire := make(map[catalog.Pair]int)
	uncondExclude := make(map[catalog.Pair]int)

	for _, r := range norm {
		if r.kind == ruleset.OneOf {
			continue
		}
		for _, t := range r.targets {
			if r.unconditional() {
				switch r.kind {
				case ruleset.Require:
					if _, clash := uncondExclude[t.Pair]; clash {
						return nil, ruleErr(UnsatisfiableConstraint, r.index, r.id, t.Pair,
							"unconditionally required and unconditionally excluded")
					}
					uncondRequire[t.Pair] = r.index
				case ruleset.Exclude:
					if _, clash := uncondRequire[t.Pair]; clash {
						return nil, ruleErr(UnsatisfiableConstraint, r.index, r.id, t.Pair,
							"unconditionally required and unconditionally excluded")
					}
					uncondExclude[t.Pair] = r.index
				}
				continue
			}
			if r.kind == ruleset.Exclude && len(r.pre) == 1 && r.pre[0].Pair == t.Pair {
				return nil, ruleErr(UnsatisfiableConstraint, r.index, r.id, t.Pair,
					"value excludes itself")
			}
			winners[pairKey{sig: r.sig, target: t.Pair}] = assertion{rule: r.index, kind: r.kind}
		}
	}
	return winners, nil
}

// owns reports whether rule r still holds the assertion for target t after
// override resolution.
func owns(winners map[pairKey]assertion, r *normRule, t ruleset.Value) bool {
	w, ok := winners[pairKey{sig: r.sig, target: t.Pair}]
	return ok && w.rule == r.index && w.kind == r.kind
}

// checkConsistency rejects requirement chains that can never be jointly
// satisfied: two mutually exclusive values whose surviving requires edges
// reach each other. Asserting either value then forces a contradiction.
func checkConsistency(norm []normRule, winners map[pairKey]assertion) *CompileError {
	adj := make(map[catalog.Pair][]catalog.Pair)
	type exclusion struct {
		a, b catalog.Pair
		rule int
		id   string
	}
	var exclusions []exclusion

	for i := range norm {
		r := &norm[i]
		if r.unconditional() || len(r.pre) != 1 || r.kind == ruleset.OneOf {
			continue
		}
		src := r.pre[0].Pair
		for _, t := range r.targets {
			if !owns(winners, r, t) {
				continue
			}
			switch r.kind {
			case ruleset.Require:
				adj[src] = append(adj[src], t.Pair)
			case ruleset.Exclude:
				exclusions = append(exclusions, exclusion{a: src, b: t.Pair, rule: r.index, id: r.id})
			}
		}
	}

	for _, x := range exclusions {
		if reachable(adj, x.a, x.b) && reachable(adj, x.b, x.a) {
			return ruleErr(UnsatisfiableConstraint, x.rule, x.id, x.a,
				"requirement cycle through mutually exclusive values "+x.a.String()+" and "+x.b.String())
		}
	}
	return nil
}

func reachable(adj map[catalog.Pair][]catalog.Pair, from, to catalog.Pair) bool {
	seen := map[catalog.Pair]struct{}{from: {}}
	queue := []catalog.Pair{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range adj[n] {
			if m == to {
				return true
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			queue = append(queue, m)
		}
	}
	return false
}

// build lowers the surviving assertions onto graph relations, in rule order:
//
//	require, one target       -> requires edge
//	require, many targets     -> implied-by-all via an ALL node
//	one-of, one value         -> requires edge
//	one-of, many values       -> implied-by-any via an ANY node
//	exclude, single-value pre -> symmetric excludes edge
//	exclude, otherwise        -> requires edge to a NOT node
//
// Unconditional rules anchor on the always-asserted TRUE node. Compound
// preconditions become ALL sources, so a rule fires only when every
// precondition member is asserted.
func (k *Compiler) build(norm []normRule, winners map[pairKey]assertion) (*cgraph.Graph, error) {
	b := cgraph.NewBuilder()

	ensure := func(v ruleset.Value) (cgraph.NodeID, error) {
		return b.ValueNode(
			cgraph.NodeValue{Category: v.Category, Value: v.Value},
			cgraph.OriginConfiguration,
			v.Sensitive,
		)
	}

	source := func(r *normRule) (cgraph.NodeID, error) {
		if r.unconditional() {
			return b.TrueNode()
		}
		if len(r.pre) == 1 {
			return ensure(r.pre[0])
		}
		members := make([]cgraph.NodeID, 0, len(r.pre))
		for _, p := range r.pre {
			id, err := ensure(p)
			if err != nil {
				return cgraph.InvalidNode, err
			}
			members = append(members, id)
		}
		return b.AllNode(members...)
	}

	for i := range norm {
		r := &norm[i]
		switch r.kind {
		case ruleset.Require:
			owned := make([]cgraph.NodeID, 0, len(r.targets))
			for _, t := range r.targets {
				if !owns(winners, r, t) && !r.unconditional() {
					continue
				}
				id, err := ensure(t)
				if err != nil {
					return nil, err
				}
				owned = append(owned, id)
			}
			if len(owned) == 0 {
				continue
			}
			src, err := source(r)
			if err != nil {
				return nil, err
			}
			if len(owned) == 1 {
				if err := b.Requires(src, owned[0]); err != nil {
					return nil, err
				}
				continue
			}
			all, err := b.AllNode(owned...)
			if err != nil {
				return nil, err
			}
			if err := b.ImpliedByAll(src, all); err != nil {
				return nil, err
			}

		case ruleset.Exclude:
			for _, t := range r.targets {
				if !owns(winners, r, t) && !r.unconditional() {
					continue
				}
				id, err := ensure(t)
				if err != nil {
					return nil, err
				}
				if len(r.pre) == 1 {
					preID, err := ensure(r.pre[0])
					if err != nil {
						return nil, err
					}
					if err := b.Excludes(preID, id); err != nil {
						return nil, err
					}
					continue
				}
				src, err := source(r)
				if err != nil {
					return nil, err
				}
				not, err := b.NotNode(id)
				if err != nil {
					return nil, err
				}
				if err := b.Requires(src, not); err != nil {
					return nil, err
				}
			}

		case ruleset.OneOf:
			src, err := source(r)
			if err != nil {
				return nil, err
			}
			members := make([]cgraph.NodeID, 0, len(r.targets))
			for _, t := range r.targets {
				id, err := ensure(t)
				if err != nil {
					return nil, err
				}
				members = append(members, id)
			}
			if len(members) == 1 {
				if err := b.Requires(src, members[0]); err != nil {
					return nil, err
				}
				continue
			}
			anyNode, err := b.AnyNode(members...)
			if err != nil {
				return nil, err
			}
			if err := b.ImpliedByAny(src, anyNode); err != nil {
				return nil, err
			}
		}
	}

	return b.Graph()
}
