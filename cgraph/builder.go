package cgraph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrFrozen is returned by builder methods called after Graph.
var ErrFrozen = errors.New("cgraph: builder already frozen")

// Builder assembles a constraint graph. It is append-only: nodes and edges
// are never removed, identical value nodes and aggregations are deduplicated,
// and aggregation children must exist before their parent, which keeps
// aggregation structure acyclic by construction. Not safe for concurrent use.
type Builder struct {
	nodes      []node
	edges      []edge
	valueIndex map[NodeValue]NodeID
	aggIndex   map[string]NodeID
	edgeIndex  map[edge]struct{}
	frozen     bool
}

func NewBuilder() *Builder {
	return &Builder{
		valueIndex: make(map[NodeValue]NodeID),
		aggIndex:   make(map[string]NodeID),
		edgeIndex:  make(map[edge]struct{}),
	}
}

// ValueNode returns the node for the given pair, creating it on first use.
// Repeated calls for the same pair return the same node; the sensitive flag
// is sticky (once sensitive, always sensitive) and the first origin wins.
func (b *Builder) ValueNode(v NodeValue, origin Origin, sensitive bool) (NodeID, error) {
	if b.frozen {
		return InvalidNode, ErrFrozen
	}
	if v.Category == "" || v.Value == "" {
		return InvalidNode, fmt.Errorf("cgraph: value node needs category and value, got %q", v.String())
	}
	if id, ok := b.valueIndex[v]; ok {
		if sensitive {
			b.nodes[id].sensitive = true
		}
		return id, nil
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, node{kind: KindValue, value: v, origin: origin, sensitive: sensitive})
	b.valueIndex[v] = id
	return id, nil
}

// AllNode returns an ALL aggregation over the given children, creating it on
// first use. Child sets are canonicalized, so the same member set built in
// any order shares one node.
func (b *Builder) AllNode(children ...NodeID) (NodeID, error) {
	return b.aggregate(KindAll, children)
}

// AnyNode returns an ANY aggregation over the given children. Canonicalized
// like AllNode.
func (b *Builder) AnyNode(children ...NodeID) (NodeID, error) {
	return b.aggregate(KindAny, children)
}

// NotNode returns a NOT aggregation over exactly one child.
func (b *Builder) NotNode(child NodeID) (NodeID, error) {
	return b.aggregate(KindNot, []NodeID{child})
}

// TrueNode returns the empty ALL aggregation: a conjunction over nothing,
// which every assignment asserts. It anchors unconditional relations as
// edges whose source always triggers.
func (b *Builder) TrueNode() (NodeID, error) {
	if b.frozen {
		return InvalidNode, ErrFrozen
	}
	key := aggKey(KindAll, nil)
	if id, ok := b.aggIndex[key]; ok {
		return id, nil
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, node{kind: KindAll})
	b.aggIndex[key] = id
	return id, nil
}

func (b *Builder) aggregate(kind NodeKind, children []NodeID) (NodeID, error) {
	if b.frozen {
		return InvalidNode, ErrFrozen
	}
	if len(children) == 0 {
		return InvalidNode, fmt.Errorf("cgraph: %s aggregation needs at least one member", kind)
	}
	if kind == KindNot && len(children) != 1 {
		return InvalidNode, fmt.Errorf("cgraph: not aggregation takes exactly one member, got %d", len(children))
	}
	canon := make([]NodeID, len(children))
	copy(canon, children)
	sort.Slice(canon, func(i, j int) bool { return canon[i] < canon[j] })
	dedup := canon[:0]
	var prev NodeID = InvalidNode
	for _, c := range canon {
		if err := b.checkNode(c); err != nil {
			return InvalidNode, err
		}
		if c != prev {
			dedup = append(dedup, c)
			prev = c
		}
	}
	key := aggKey(kind, dedup)
	if id, ok := b.aggIndex[key]; ok {
		return id, nil
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, node{kind: kind, children: dedup})
	b.aggIndex[key] = id
	return id, nil
}

func aggKey(kind NodeKind, children []NodeID) string {
	var sb strings.Builder
	sb.WriteString(kind.String())
	for _, c := range children {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(c)))
	}
	return sb.String()
}

// Requires records: if src is asserted, dst must hold. The source must be a
// value node or an ALL aggregation (a conjunctive trigger); the target must
// be a value node or a NOT aggregation. ALL and ANY targets use ImpliedByAll
// and ImpliedByAny.
func (b *Builder) Requires(src, dst NodeID) error {
	if err := b.edgePrecheck(src, dst); err != nil {
		return err
	}
	if k := b.nodes[src].kind; k != KindValue && k != KindAll {
		return fmt.Errorf("cgraph: requires source must be a value or all node, got %s", k)
	}
	if k := b.nodes[dst].kind; k != KindValue && k != KindNot {
		return fmt.Errorf("cgraph: requires target must be a value or not node, got %s", k)
	}
	b.addEdge(edge{kind: EdgeRequires, src: src, dst: dst})
	return nil
}

// Excludes records a symmetric mutual exclusion between two value nodes.
// The unordered pair is deduplicated: Excludes(a, b) and Excludes(b, a)
// produce one relation.
func (b *Builder) Excludes(a, c NodeID) error {
	if err := b.edgePrecheck(a, c); err != nil {
		return err
	}
	if b.nodes[a].kind != KindValue || b.nodes[c].kind != KindValue {
		return fmt.Errorf("cgraph: excludes endpoints must be value nodes, got %s and %s",
			b.nodes[a].kind, b.nodes[c].kind)
	}
	if a == c {
		return fmt.Errorf("cgraph: node %s cannot exclude itself", b.nodes[a].value)
	}
	if c < a {
		a, c = c, a
	}
	b.addEdge(edge{kind: EdgeExcludes, src: a, dst: c})
	return nil
}

// ImpliedByAll records: if src is asserted, every member of the dst ALL
// aggregation must hold.
func (b *Builder) ImpliedByAll(src, dst NodeID) error {
	return b.implied(EdgeImpliedByAll, KindAll, src, dst)
}

// ImpliedByAny records: if src is asserted, at least one member of the dst
// ANY aggregation must hold.
func (b *Builder) ImpliedByAny(src, dst NodeID) error {
	return b.implied(EdgeImpliedByAny, KindAny, src, dst)
}

func (b *Builder) implied(ek EdgeKind, want NodeKind, src, dst NodeID) error {
	if err := b.edgePrecheck(src, dst); err != nil {
		return err
	}
	if k := b.nodes[src].kind; k != KindValue && k != KindAll {
		return fmt.Errorf("cgraph: %s source must be a value or all node, got %s", ek, k)
	}
	if k := b.nodes[dst].kind; k != want {
		return fmt.Errorf("cgraph: %s target must be an %s node, got %s", ek, want, k)
	}
	b.addEdge(edge{kind: ek, src: src, dst: dst})
	return nil
}

func (b *Builder) edgePrecheck(a, c NodeID) error {
	if b.frozen {
		return ErrFrozen
	}
	if err := b.checkNode(a); err != nil {
		return err
	}
	return b.checkNode(c)
}

func (b *Builder) checkNode(id NodeID) error {
	if id < 0 || int(id) >= len(b.nodes) {
		return fmt.Errorf("cgraph: unknown node id %d", id)
	}
	return nil
}

func (b *Builder) addEdge(e edge) {
	if _, dup := b.edgeIndex[e]; dup {
		return
	}
	b.edgeIndex[e] = struct{}{}
	b.edges = append(b.edges, e)
}

// Graph freezes the builder into an immutable graph. The builder cannot be
// used afterwards.
func (b *Builder) Graph() (*Graph, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true

	g := &Graph{
		nodes:      b.nodes,
		edges:      b.edges,
		valueIndex: b.valueIndex,
	}
	return g, nil
}
