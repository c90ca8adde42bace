package eligibility

import (
	"github.com/riffus/hyperswitch/cgraph"
	"github.com/riffus/hyperswitch/masking"
)

// ConstraintChecker is the slice of the graph engine the evaluator consumes.
// Satisfied by *cgraph.Graph.
type ConstraintChecker interface {
	Check(a *cgraph.Assignment, opts cgraph.CheckOptions) cgraph.CheckResult
}

// Evaluate tests a candidate against a constraint graph. Pure domain logic:
// no I/O, no side effects. With explain, every violated relation becomes a
// Reason; without it, evaluation stops at the first violation and Reasons
// stays empty.
func Evaluate(checker ConstraintChecker, candidate Candidate, explain bool) Result {
	values := make([]cgraph.NodeValue, len(candidate))
	for i, p := range candidate {
		values[i] = cgraph.NodeValue{Category: p.Category, Value: p.Value}
	}

	res := checker.Check(cgraph.NewAssignment(values...), cgraph.CheckOptions{Explain: explain})
	if res.Satisfied {
		return Result{Eligible: true}
	}

	out := Result{Eligible: false}
	for _, v := range res.Violations {
		out.Reasons = append(out.Reasons, reasonFor(v))
	}
	return out
}

func reasonFor(v cgraph.Violation) Reason {
	r := Reason{Kind: v.Kind.String()}
	for _, p := range v.Premise {
		r.Premise = append(r.Premise, renderRef(p))
	}
	if len(r.Premise) == 0 && v.Source.Kind == cgraph.KindValue {
		r.Premise = append(r.Premise, renderRef(v.Source))
	}

	switch v.Kind {
	case cgraph.EdgeExcludes:
		// The kind already carries the negation.
		r.Demand = []string{renderRef(v.Target)}
	case cgraph.EdgeRequires:
		if v.Target.Kind == cgraph.KindNot {
			r.Demand = []string{"not " + renderRef(v.Members[0])}
		} else {
			r.Demand = []string{renderRef(v.Target)}
		}
	case cgraph.EdgeImpliedByAll, cgraph.EdgeImpliedByAny:
		for _, m := range v.Members {
			r.Demand = append(r.Demand, renderRef(m))
		}
	}
	return r
}

// renderRef keeps the category visible and masks the value when the node is
// sensitive.
func renderRef(ref cgraph.NodeRef) string {
	return ref.Value.Category + "=" + masking.Mask(ref.Value.Value, ref.Sensitive)
}
