package cgraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CheckSuite struct {
	suite.Suite
}

func TestCheckSuite(t *testing.T) {
	suite.Run(t, new(CheckSuite))
}

func (s *CheckSuite) value(b *Builder, category, value string) NodeID {
	id, err := b.ValueNode(NodeValue{Category: category, Value: value}, OriginConfiguration, false)
	s.Require().NoError(err)
	return id
}

func pair(category, value string) NodeValue {
	return NodeValue{Category: category, Value: value}
}

// === Requires ===

func (s *CheckSuite) TestRequires() {
	b := NewBuilder()
	v2 := s.value(b, "protocol", "v2")
	emea := s.value(b, "region", "emea")
	s.Require().NoError(b.Requires(v2, emea))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("satisfied when target asserted", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2"), pair("region", "emea")), CheckOptions{})
		s.True(res.Satisfied)
	})

	s.Run("violated when target category contradicts", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2"), pair("region", "apac")), CheckOptions{})
		s.False(res.Satisfied)
	})

	s.Run("permissive when target category omitted", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2")), CheckOptions{})
		s.True(res.Satisfied, "an unconstrained dimension satisfies a requirement")
	})

	s.Run("inert when source not asserted", func() {
		res := g.Check(NewAssignment(pair("region", "apac")), CheckOptions{})
		s.True(res.Satisfied, "the relation binds only when its source is asserted")
	})
}

func (s *CheckSuite) TestRequires_ConjunctiveSource() {
	b := NewBuilder()
	v2 := s.value(b, "protocol", "v2")
	gold := s.value(b, "tier", "gold")
	both, err := b.AllNode(v2, gold)
	s.Require().NoError(err)
	emea := s.value(b, "region", "emea")
	s.Require().NoError(b.Requires(both, emea))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("fires only when every precondition member is asserted", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2"), pair("region", "apac")), CheckOptions{})
		s.True(res.Satisfied, "half a precondition triggers nothing")

		res = g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold"), pair("region", "apac")), CheckOptions{})
		s.False(res.Satisfied)

		res = g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold"), pair("region", "emea")), CheckOptions{})
		s.True(res.Satisfied)
	})
}

// === Excludes ===

func (s *CheckSuite) TestExcludes() {
	b := NewBuilder()
	crypto := s.value(b, "method", "crypto")
	manual := s.value(b, "capture", "manual")
	s.Require().NoError(b.Excludes(crypto, manual))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("violated when both asserted", func() {
		res := g.Check(NewAssignment(pair("method", "crypto"), pair("capture", "manual")), CheckOptions{})
		s.False(res.Satisfied)
	})

	s.Run("satisfied when only one asserted", func() {
		s.True(g.Check(NewAssignment(pair("method", "crypto")), CheckOptions{}).Satisfied)
		s.True(g.Check(NewAssignment(pair("capture", "manual")), CheckOptions{}).Satisfied)
	})

	s.Run("satisfied when neither asserted", func() {
		s.True(g.Check(NewAssignment(pair("method", "card")), CheckOptions{}).Satisfied)
	})
}

// === Implied by all ===

func (s *CheckSuite) TestImpliedByAll() {
	b := NewBuilder()
	wallet := s.value(b, "method", "wallet")
	emea := s.value(b, "region", "emea")
	gold := s.value(b, "tier", "gold")
	all, err := b.AllNode(emea, gold)
	s.Require().NoError(err)
	s.Require().NoError(b.ImpliedByAll(wallet, all))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("satisfied when all members hold", func() {
		res := g.Check(NewAssignment(pair("method", "wallet"), pair("region", "emea"), pair("tier", "gold")), CheckOptions{})
		s.True(res.Satisfied)
	})

	s.Run("omitted member categories hold permissively", func() {
		res := g.Check(NewAssignment(pair("method", "wallet"), pair("region", "emea")), CheckOptions{})
		s.True(res.Satisfied)
	})

	s.Run("one contradicted member violates and is named", func() {
		res := g.Check(NewAssignment(pair("method", "wallet"), pair("region", "emea"), pair("tier", "bronze")), CheckOptions{Explain: true})
		s.Require().False(res.Satisfied)
		s.Require().Len(res.Violations, 1)
		v := res.Violations[0]
		s.Equal(EdgeImpliedByAll, v.Kind)
		s.Equal(pair("method", "wallet"), v.Source.Value)
		s.Require().Len(v.Members, 1, "only the failing member is reported")
		s.Equal(pair("tier", "gold"), v.Members[0].Value)
	})
}

// === Implied by any ===

func (s *CheckSuite) TestImpliedByAny() {
	b := NewBuilder()
	wallet := s.value(b, "method", "wallet")
	us := s.value(b, "country", "US")
	ca := s.value(b, "country", "CA")
	anyN, err := b.AnyNode(us, ca)
	s.Require().NoError(err)
	s.Require().NoError(b.ImpliedByAny(wallet, anyN))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("satisfied when one member holds", func() {
		res := g.Check(NewAssignment(pair("method", "wallet"), pair("country", "CA")), CheckOptions{})
		s.True(res.Satisfied)
	})

	s.Run("violated when every member contradicted", func() {
		res := g.Check(NewAssignment(pair("method", "wallet"), pair("country", "DE")), CheckOptions{Explain: true})
		s.Require().False(res.Satisfied)
		s.Require().Len(res.Violations, 1)
		s.Equal(EdgeImpliedByAny, res.Violations[0].Kind)
		s.Len(res.Violations[0].Members, 2, "every admissible member is reported")
	})

	s.Run("permissive when member category omitted", func() {
		res := g.Check(NewAssignment(pair("method", "wallet")), CheckOptions{})
		s.True(res.Satisfied)
	})
}

// === NOT ===

func (s *CheckSuite) TestRequiresNot() {
	b := NewBuilder()
	v2 := s.value(b, "protocol", "v2")
	gold := s.value(b, "tier", "gold")
	all, err := b.AllNode(v2, gold)
	s.Require().NoError(err)
	manual := s.value(b, "capture", "manual")
	notManual, err := b.NotNode(manual)
	s.Require().NoError(err)
	s.Require().NoError(b.Requires(all, notManual))
	g, err := b.Graph()
	s.Require().NoError(err)

	s.Run("violated when the forbidden member is asserted", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold"), pair("capture", "manual")), CheckOptions{Explain: true})
		s.Require().False(res.Satisfied)
		s.Require().Len(res.Violations, 1)
		s.Require().Len(res.Violations[0].Members, 1)
		s.Equal(pair("capture", "manual"), res.Violations[0].Members[0].Value)
	})

	s.Run("conjunctive source members are reported as the premise", func() {
		res := g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold"), pair("capture", "manual")), CheckOptions{Explain: true})
		s.Require().Len(res.Violations, 1)
		premise := res.Violations[0].Premise
		s.Require().Len(premise, 2)
		s.Equal(pair("protocol", "v2"), premise[0].Value)
		s.Equal(pair("tier", "gold"), premise[1].Value)
	})

	s.Run("satisfied when the member is absent or different", func() {
		s.True(g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold")), CheckOptions{}).Satisfied)
		s.True(g.Check(NewAssignment(pair("protocol", "v2"), pair("tier", "gold"), pair("capture", "automatic")), CheckOptions{}).Satisfied)
	})
}

// === Explanations ===

func (s *CheckSuite) TestExplain() {
	build := func(reversed bool) *Graph {
		b := NewBuilder()
		v2 := s.value(b, "protocol", "v2")
		emea := s.value(b, "region", "emea")
		gold := s.value(b, "tier", "gold")
		crypto := s.value(b, "method", "crypto")
		if reversed {
			s.Require().NoError(b.Excludes(v2, crypto))
			s.Require().NoError(b.Requires(v2, gold))
			s.Require().NoError(b.Requires(v2, emea))
		} else {
			s.Require().NoError(b.Requires(v2, emea))
			s.Require().NoError(b.Requires(v2, gold))
			s.Require().NoError(b.Excludes(v2, crypto))
		}
		g, err := b.Graph()
		s.Require().NoError(err)
		return g
	}

	failing := NewAssignment(
		pair("protocol", "v2"),
		pair("region", "apac"),
		pair("tier", "bronze"),
		pair("method", "crypto"),
	)

	s.Run("collects every violation", func() {
		res := build(false).Check(failing, CheckOptions{Explain: true})
		s.Require().False(res.Satisfied)
		s.Len(res.Violations, 3)
	})

	s.Run("without explain the first violation stops the query", func() {
		res := build(false).Check(failing, CheckOptions{})
		s.False(res.Satisfied)
		s.Nil(res.Violations)
	})

	s.Run("violation order ignores construction order", func() {
		a := build(false).Check(failing, CheckOptions{Explain: true})
		c := build(true).Check(failing, CheckOptions{Explain: true})
		s.Equal(a.Violations, c.Violations)
	})
}

// === Query isolation ===

func (s *CheckSuite) TestQueryIsolation() {
	s.Run("empty graph accepts anything", func() {
		b := NewBuilder()
		g, err := b.Graph()
		s.Require().NoError(err)
		s.True(g.Check(NewAssignment(pair("region", "emea")), CheckOptions{}).Satisfied)
		s.True(g.Check(NewAssignment(), CheckOptions{}).Satisfied)
	})

	s.Run("empty assignment satisfies a populated graph", func() {
		b := NewBuilder()
		v2 := s.value(b, "protocol", "v2")
		emea := s.value(b, "region", "emea")
		s.Require().NoError(b.Requires(v2, emea))
		g, err := b.Graph()
		s.Require().NoError(err)
		s.True(g.Check(NewAssignment(), CheckOptions{}).Satisfied)
	})

	s.Run("memoization does not leak across queries", func() {
		b := NewBuilder()
		v2 := s.value(b, "protocol", "v2")
		emea := s.value(b, "region", "emea")
		s.Require().NoError(b.Requires(v2, emea))
		g, err := b.Graph()
		s.Require().NoError(err)

		good := NewAssignment(pair("protocol", "v2"), pair("region", "emea"))
		bad := NewAssignment(pair("protocol", "v2"), pair("region", "apac"))
		for range 3 {
			s.True(g.Check(good, CheckOptions{}).Satisfied)
			s.False(g.Check(bad, CheckOptions{}).Satisfied)
		}
	})
}

func (s *CheckSuite) TestConcurrentChecks() {
	b := NewBuilder()
	v2 := s.value(b, "protocol", "v2")
	emea := s.value(b, "region", "emea")
	gold := s.value(b, "tier", "gold")
	all, err := b.AllNode(emea, gold)
	s.Require().NoError(err)
	s.Require().NoError(b.ImpliedByAll(v2, all))
	g, err := b.Graph()
	s.Require().NoError(err)

	good := []NodeValue{pair("protocol", "v2"), pair("region", "emea"), pair("tier", "gold")}
	bad := []NodeValue{pair("protocol", "v2"), pair("region", "apac")}

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.True(g.Check(NewAssignment(good...), CheckOptions{Explain: i%4 == 0}).Satisfied)
			} else {
				s.False(g.Check(NewAssignment(bad...), CheckOptions{Explain: i%3 == 0}).Satisfied)
			}
		}(i)
	}
	wg.Wait()
}
