// Package cgraph implements a generic constraint graph: typed value nodes
// connected by requirement and exclusion relations, plus boolean aggregation
// nodes (ALL, ANY, NOT). A graph is assembled once through a Builder, frozen
// into an immutable Graph, and then queried concurrently for assignment
// satisfiability.
//
// The package carries no domain vocabulary. Values are opaque
// (category, value) string pairs; meaning is assigned by whoever builds the
// graph.
package cgraph

// NodeID is a dense handle into a graph's node table.
type NodeID int32

// InvalidNode is returned by builder methods that fail.
const InvalidNode NodeID = -1

// NodeValue is a typed domain value.
type NodeValue struct {
	Category string
	Value    string
}

func (v NodeValue) String() string {
	return v.Category + "=" + v.Value
}

// Origin records where a value node came from.
type Origin uint8

const (
	// OriginConfiguration marks values introduced by configuration rules.
	OriginConfiguration Origin = iota
	// OriginCatalog marks values seeded from a fixed domain catalog.
	OriginCatalog
)

func (o Origin) String() string {
	switch o {
	case OriginConfiguration:
		return "configuration"
	case OriginCatalog:
		return "catalog"
	}
	return "unknown"
}

// NodeKind distinguishes value nodes from aggregation nodes.
type NodeKind uint8

const (
	KindValue NodeKind = iota
	KindAll
	KindAny
	KindNot
)

func (k NodeKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindAll:
		return "all"
	case KindAny:
		return "any"
	case KindNot:
		return "not"
	}
	return "unknown"
}

// EdgeKind is the relation an edge asserts between its endpoints.
type EdgeKind uint8

const (
	// EdgeRequires: if the source is asserted, the target must hold.
	EdgeRequires EdgeKind = iota
	// EdgeExcludes: the two endpoints must not both be asserted. Symmetric.
	EdgeExcludes
	// EdgeImpliedByAll: if the source is asserted, every member of the
	// target ALL aggregation must hold.
	EdgeImpliedByAll
	// EdgeImpliedByAny: if the source is asserted, at least one member of
	// the target ANY aggregation must hold.
	EdgeImpliedByAny
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeRequires:
		return "requires"
	case EdgeExcludes:
		return "excludes"
	case EdgeImpliedByAll:
		return "implied_by_all"
	case EdgeImpliedByAny:
		return "implied_by_any"
	}
	return "unknown"
}

type node struct {
	kind      NodeKind
	value     NodeValue
	origin    Origin
	sensitive bool
	children  []NodeID
}

type edge struct {
	kind EdgeKind
	src  NodeID
	dst  NodeID
}

// NodeRef describes a node in query results.
type NodeRef struct {
	ID        NodeID
	Kind      NodeKind
	Value     NodeValue
	Origin    Origin
	Sensitive bool
}

func (g *Graph) ref(id NodeID) NodeRef {
	n := &g.nodes[id]
	return NodeRef{
		ID:        id,
		Kind:      n.kind,
		Value:     n.value,
		Origin:    n.origin,
		Sensitive: n.sensitive,
	}
}
