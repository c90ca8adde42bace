package cgraph

// Graph is a frozen constraint graph. Immutable after construction; any
// number of goroutines may query it concurrently without locking.
type Graph struct {
	nodes      []node
	edges      []edge
	valueIndex map[NodeValue]NodeID
}

// NodeCount returns the number of nodes, value and aggregation alike.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of relations.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Lookup returns the node for a value pair, if the graph contains one.
func (g *Graph) Lookup(v NodeValue) (NodeRef, bool) {
	id, ok := g.valueIndex[v]
	if !ok {
		return NodeRef{}, false
	}
	return g.ref(id), true
}

// Assignment is the set of value pairs under test in one query. Build it
// from the caller's pairs; the input slice is copied and never mutated.
// An Assignment carries no state between queries.
type Assignment struct {
	byCategory map[string]map[string]struct{}
	size       int
}

// NewAssignment indexes the given pairs by category. Duplicate pairs
// collapse; multiple values in one category are allowed.
func NewAssignment(values ...NodeValue) *Assignment {
	a := &Assignment{byCategory: make(map[string]map[string]struct{}, len(values))}
	for _, v := range values {
		set, ok := a.byCategory[v.Category]
		if !ok {
			set = make(map[string]struct{}, 1)
			a.byCategory[v.Category] = set
		}
		if _, dup := set[v.Value]; !dup {
			set[v.Value] = struct{}{}
			a.size++
		}
	}
	return a
}

// Has reports whether the exact pair is asserted.
func (a *Assignment) Has(category, value string) bool {
	set, ok := a.byCategory[category]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// HasCategory reports whether any value is asserted for the category.
func (a *Assignment) HasCategory(category string) bool {
	return len(a.byCategory[category]) > 0
}

// Size returns the number of distinct asserted pairs.
func (a *Assignment) Size() int { return a.size }
