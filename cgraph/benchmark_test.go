package cgraph

import (
	"fmt"
	"testing"
)

// benchGraph builds a graph shaped like a realistic compiled rule set:
// clusters of requires edges, a band of exclusions, and implied-by
// aggregations over small member sets.
func benchGraph(tb testing.TB, categories, valuesPer int) *Graph {
	tb.Helper()
	b := NewBuilder()
	ids := make([][]NodeID, categories)
	for c := range categories {
		ids[c] = make([]NodeID, valuesPer)
		for v := range valuesPer {
			id, err := b.ValueNode(NodeValue{
				Category: fmt.Sprintf("cat%02d", c),
				Value:    fmt.Sprintf("val%02d", v),
			}, OriginConfiguration, false)
			if err != nil {
				tb.Fatal(err)
			}
			ids[c][v] = id
		}
	}
	for c := 0; c+1 < categories; c++ {
		for v := range valuesPer {
			if err := b.Requires(ids[c][v], ids[c+1][v%valuesPer]); err != nil {
				tb.Fatal(err)
			}
		}
	}
	for v := 0; v+1 < valuesPer; v += 2 {
		if err := b.Excludes(ids[0][v], ids[categories-1][v+1]); err != nil {
			tb.Fatal(err)
		}
	}
	for c := range categories - 1 {
		agg, err := b.AnyNode(ids[c+1][0], ids[c+1][1], ids[c+1][2])
		if err != nil {
			tb.Fatal(err)
		}
		if err := b.ImpliedByAny(ids[c][0], agg); err != nil {
			tb.Fatal(err)
		}
	}
	g, err := b.Graph()
	if err != nil {
		tb.Fatal(err)
	}
	return g
}

func benchAssignment(satisfiable bool) *Assignment {
	vals := make([]NodeValue, 0, 8)
	for c := range 8 {
		v := 0
		if !satisfiable && c == 1 {
			// Contradict the requires chain out of cat00.
			v = 7
		}
		vals = append(vals, NodeValue{
			Category: fmt.Sprintf("cat%02d", c),
			Value:    fmt.Sprintf("val%02d", v),
		})
	}
	return NewAssignment(vals...)
}

func BenchmarkCheck_Satisfiable(b *testing.B) {
	g := benchGraph(b, 8, 20)
	a := benchAssignment(true)
	b.ReportAllocs()
	for b.Loop() {
		if !g.Check(a, CheckOptions{}).Satisfied {
			b.Fatal("expected satisfiable")
		}
	}
}

func BenchmarkCheck_ShortCircuit(b *testing.B) {
	g := benchGraph(b, 8, 20)
	a := benchAssignment(false)
	b.ReportAllocs()
	for b.Loop() {
		if g.Check(a, CheckOptions{}).Satisfied {
			b.Fatal("expected violation")
		}
	}
}

func BenchmarkCheck_Explain(b *testing.B) {
	g := benchGraph(b, 8, 20)
	a := benchAssignment(false)
	b.ReportAllocs()
	for b.Loop() {
		res := g.Check(a, CheckOptions{Explain: true})
		if res.Satisfied || len(res.Violations) == 0 {
			b.Fatal("expected collected violations")
		}
	}
}

func BenchmarkCheck_Parallel(b *testing.B) {
	g := benchGraph(b, 8, 20)
	good := benchAssignment(true)
	bad := benchAssignment(false)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				g.Check(good, CheckOptions{})
			} else {
				g.Check(bad, CheckOptions{})
			}
			i++
		}
	})
}
