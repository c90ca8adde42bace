// Package eligibility answers whether a candidate payment assignment
// satisfies a merchant's compiled constraint graph. The evaluation itself is
// pure; the Service wires it to configuration lookup, graph caching, metrics,
// and audit so callers get one entry point.
package eligibility

import (
	"strings"

	"github.com/riffus/hyperswitch/catalog"
)

// Candidate is one candidate assignment: the value pairs describing a
// payment attempt. Duplicates collapse; multiple values in one category are
// allowed and each is asserted.
type Candidate []catalog.Pair

// NewCandidate builds a candidate from value pairs.
func NewCandidate(pairs ...catalog.Pair) Candidate {
	return Candidate(pairs)
}

func (c Candidate) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// Reason is one violated constraint, rendered with sensitive values masked.
type Reason struct {
	// Kind is the violated relation: requires, excludes, implied_by_all or
	// implied_by_any.
	Kind string `json:"kind"`
	// Premise lists the asserted values that triggered the relation. Empty
	// for unconditional rules.
	Premise []string `json:"premise,omitempty"`
	// Demand lists what the relation wanted: the required value, the
	// excluded value, the conjunction members that failed, or the
	// alternatives none of which held. A "not " prefix marks a forbidden
	// value under a requires relation.
	Demand []string `json:"demand,omitempty"`
}

func (r Reason) String() string {
	premise := "always"
	if len(r.Premise) > 0 {
		premise = strings.Join(r.Premise, " & ")
	}
	switch r.Kind {
	case "excludes":
		return premise + " excludes " + strings.Join(r.Demand, " & ")
	case "implied_by_any":
		return premise + " requires one of " + strings.Join(r.Demand, ", ")
	default:
		return premise + " requires " + strings.Join(r.Demand, " & ")
	}
}

// Result is the outcome of one eligibility check. Reasons is populated only
// when the check ran with explanations enabled and the candidate was
// ineligible; it is canonically ordered.
type Result struct {
	Eligible bool     `json:"eligible"`
	Reasons  []Reason `json:"reasons,omitempty"`
}
