package cgraph

import (
	"sort"
	"strings"
)

// CheckOptions controls one satisfiability query.
type CheckOptions struct {
	// Explain collects every violated relation instead of stopping at the
	// first one found.
	Explain bool
}

// Violation is one failed relation.
type Violation struct {
	Kind   EdgeKind
	Source NodeRef
	Target NodeRef
	// Premise lists the members of an aggregation source: the conjunction
	// of asserted values that triggered the relation. Empty for plain value
	// sources and for the vacuous always-asserted source.
	Premise []NodeRef
	// Members lists the target aggregation members material to the
	// violation: the members that failed to hold for implied_by_all, every
	// member for implied_by_any (none held), and the asserted member for a
	// requires edge targeting a NOT node.
	Members []NodeRef
}

// CheckResult is the outcome of one query. Violations is populated only when
// the query ran with Explain; it is ordered canonically (by relation kind and
// node values), so equivalent graphs produce identical output regardless of
// construction order.
type CheckResult struct {
	Satisfied  bool
	Violations []Violation
}

// Check evaluates the assignment against every relation in the graph.
// Evaluation is read-only on the graph: node results are memoized in a
// per-query table and discarded when Check returns.
//
// A value node holds as a requirement target when the assignment either
// asserts it or asserts nothing at all in its category; it counts as present
// for triggering edges and for exclusion only when asserted exactly.
func (g *Graph) Check(a *Assignment, opts CheckOptions) CheckResult {
	c := checker{
		g:         g,
		a:         a,
		presence:  make([]byte, len(g.nodes)),
		assertion: make([]byte, len(g.nodes)),
	}

	var violations []Violation
	for i := range g.edges {
		e := &g.edges[i]
		if c.edgeHolds(e) {
			continue
		}
		if !opts.Explain {
			return CheckResult{Satisfied: false}
		}
		violations = append(violations, c.violation(e))
	}
	if len(violations) > 0 {
		sortViolations(violations)
		return CheckResult{Satisfied: false, Violations: violations}
	}
	return CheckResult{Satisfied: true}
}

const (
	memoUnset byte = iota
	memoTrue
	memoFalse
)

// checker is the per-query evaluation state. presence and assertion are the
// two memoization lanes; a node's result in one lane says nothing about the
// other.
type checker struct {
	g         *Graph
	a         *Assignment
	presence  []byte
	assertion []byte
}

func (c *checker) edgeHolds(e *edge) bool {
	if e.kind == EdgeExcludes {
		return !(c.present(e.src) && c.present(e.dst))
	}
	// requires / implied_by_*: the relation only binds when the source is
	// actually asserted.
	if !c.present(e.src) {
		return true
	}
	return c.holds(e.dst)
}

// present reports whether the node is asserted by the assignment.
func (c *checker) present(id NodeID) bool {
	if m := c.presence[id]; m != memoUnset {
		return m == memoTrue
	}
	n := &c.g.nodes[id]
	var ok bool
	switch n.kind {
	case KindValue:
		ok = c.a.Has(n.value.Category, n.value.Value)
	case KindAll:
		ok = true
		for _, ch := range n.children {
			if !c.present(ch) {
				ok = false
				break
			}
		}
	case KindAny:
		for _, ch := range n.children {
			if c.present(ch) {
				ok = true
				break
			}
		}
	case KindNot:
		ok = !c.present(n.children[0])
	}
	c.presence[id] = memoResult(ok)
	return ok
}

// holds reports whether the node is satisfied as a requirement target. Value
// nodes are permissive on omission: an assignment with no value in the
// node's category satisfies it. NOT nodes demand their member not be
// asserted.
func (c *checker) holds(id NodeID) bool {
	if m := c.assertion[id]; m != memoUnset {
		return m == memoTrue
	}
	n := &c.g.nodes[id]
	var ok bool
	switch n.kind {
	case KindValue:
		ok = !c.a.HasCategory(n.value.Category) || c.a.Has(n.value.Category, n.value.Value)
	case KindAll:
		ok = true
		for _, ch := range n.children {
			if !c.holds(ch) {
				ok = false
				break
			}
		}
	case KindAny:
		for _, ch := range n.children {
			if c.holds(ch) {
				ok = true
				break
			}
		}
	case KindNot:
		ok = !c.present(n.children[0])
	}
	c.assertion[id] = memoResult(ok)
	return ok
}

func memoResult(ok bool) byte {
	if ok {
		return memoTrue
	}
	return memoFalse
}

func (c *checker) violation(e *edge) Violation {
	v := Violation{
		Kind:   e.kind,
		Source: c.g.ref(e.src),
		Target: c.g.ref(e.dst),
	}
	if src := &c.g.nodes[e.src]; src.kind == KindAll || src.kind == KindAny {
		for _, ch := range src.children {
			v.Premise = append(v.Premise, c.g.ref(ch))
		}
	}
	dst := &c.g.nodes[e.dst]
	switch {
	case e.kind == EdgeImpliedByAll:
		for _, ch := range dst.children {
			if !c.holds(ch) {
				v.Members = append(v.Members, c.g.ref(ch))
			}
		}
	case e.kind == EdgeImpliedByAny:
		for _, ch := range dst.children {
			v.Members = append(v.Members, c.g.ref(ch))
		}
	case e.kind == EdgeRequires && dst.kind == KindNot:
		v.Members = append(v.Members, c.g.ref(dst.children[0]))
	}
	return v
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		return violationKey(&vs[i]) < violationKey(&vs[j])
	})
}

// violationKey orders violations by what they say, not by when they were
// discovered.
func violationKey(v *Violation) string {
	var sb strings.Builder
	sb.WriteString(v.Kind.String())
	sb.WriteByte('|')
	sb.WriteString(refKey(v.Source))
	for i, p := range v.Premise {
		if i == 0 {
			sb.WriteByte('(')
		} else {
			sb.WriteByte(',')
		}
		sb.WriteString(refKey(p))
	}
	if len(v.Premise) > 0 {
		sb.WriteByte(')')
	}
	sb.WriteByte('|')
	sb.WriteString(refKey(v.Target))
	for _, m := range v.Members {
		sb.WriteByte('|')
		sb.WriteString(refKey(m))
	}
	return sb.String()
}

func refKey(r NodeRef) string {
	if r.Kind == KindValue {
		return r.Value.String()
	}
	return r.Kind.String()
}
