// Package catalog defines the recognized payment domain vocabulary: which
// categories exist and which values each category admits. The rule compiler
// validates every configuration value against a Catalog before building a
// graph.
package catalog

// Pair is a single typed domain value, e.g. {Category: "currency", Value: "USD"}.
type Pair struct {
	Category string `json:"category" yaml:"category"`
	Value    string `json:"value" yaml:"value"`
}

func (p Pair) String() string {
	return p.Category + "=" + p.Value
}

// Catalog answers membership queries over the domain vocabulary. Lookups never
// fail: an unknown category or value is simply not contained.
type Catalog interface {
	// Contains reports whether the pair names a recognized value.
	Contains(p Pair) bool
	// Values returns the admitted values for a category, in declaration
	// order, and whether the category exists.
	Values(category string) ([]string, bool)
	// Categories returns all known category names, sorted.
	Categories() []string
}
