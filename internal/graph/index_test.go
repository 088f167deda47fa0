package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minigraph/internal/ir"
)

func literalPattern() ir.Pattern {
	return ir.P(ir.T(
		ir.Lit(ir.W("door")), ir.Lit(ir.W("state")), ir.Lit(ir.W("open")), ir.Lit(ir.W("c0")),
	))
}

func TestIndex_PureLiteralPatternStillFires(t *testing.T) {
	g := newTestGraph()

	fired := 0
	w, err := g.Watch(literalPattern(), func(Env) { fired++ })
	require.NoError(t, err)
	defer w.Stop()

	g.AppendIn(ir.W("door"), ir.W("state"), ir.W("open"), ir.W("c0"))
	assert.Equal(t, 1, fired, "bucket lookup reaches the literal pattern")

	g.AppendIn(ir.W("window"), ir.W("state"), ir.W("open"), ir.W("c0"))
	assert.Equal(t, 1, fired, "different source misses the source bucket")
}

func TestIndex_Classification(t *testing.T) {
	tests := []struct {
		name string
		p    ir.Pattern
		wild bool
	}{
		{"all literals", literalPattern(), false},
		{"variable source", ir.P(ir.T(ir.Var("x"), ir.Lit(ir.W("a")), ir.Lit(ir.W("v")), ir.Lit(ir.W("c")))), true},
		{"wildcard context", ir.P(ir.T(ir.Lit(ir.W("s")), ir.Lit(ir.W("a")), ir.Lit(ir.W("v")))), true},
		{
			"literal main, variable in NAC",
			ir.P(ir.T(ir.Lit(ir.W("s")), ir.Lit(ir.W("a")), ir.Lit(ir.W("v")), ir.Lit(ir.W("c")))).
				WithNAC(ir.T(ir.Var("x"), ir.Lit(ir.W("blocked")), ir.Lit(ir.B(true)), ir.Lit(ir.W("c")))),
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wild, tc.p.Wild())
		})
	}
}

func TestIndex_WildPatternSeesEveryFact(t *testing.T) {
	g := newTestGraph()

	fired := 0
	w, err := g.Watch(ir.P(ir.T(ir.Var("s"), ir.Var("a"), ir.Var("v"))), func(Env) { fired++ })
	require.NoError(t, err)
	defer w.Stop()

	g.AppendIn(ir.W("a"), ir.W("b"), ir.W("c"), ir.W("c0"))
	g.AppendIn(ir.W("x"), ir.W("y"), ir.I(9), ir.W("c1"))
	assert.Equal(t, 2, fired)
}

func TestIndex_ClassifyPrefersSourceCategory(t *testing.T) {
	p := ir.P(
		ir.T(ir.Lit(ir.W("door")), ir.Lit(ir.W("state")), ir.Lit(ir.W("open")), ir.Lit(ir.W("c0"))),
		ir.T(ir.Lit(ir.W("hall")), ir.Lit(ir.W("state")), ir.Lit(ir.W("lit")), ir.Lit(ir.W("c0"))),
	)
	require.False(t, p.Wild())

	cat, keys := classify(p)
	assert.Equal(t, catSource, cat)
	assert.Equal(t, []ir.Value{ir.W("door"), ir.W("hall")}, keys)
}

func TestIndex_RemovePrunesEmptyBuckets(t *testing.T) {
	ix := newIndex()

	m, err := newMatcher(literalPattern(), nil)
	require.NoError(t, err)
	m.id = 1
	ix.insert(m)
	require.Len(t, ix.buckets[catSource], 1)

	ix.remove(m)
	assert.Empty(t, ix.buckets[catSource], "empty bucket pruned")
	assert.Empty(t, ix.all())

	// removing again is a no-op
	ix.remove(m)
}

func TestIndex_CandidatesDedupedAndOrdered(t *testing.T) {
	ix := newIndex()

	wild, err := newMatcher(ir.P(ir.T(ir.Var("x"), ir.Any, ir.Any)), nil)
	require.NoError(t, err)
	wild.id = 2
	ix.insert(wild)

	lit, err := newMatcher(literalPattern(), nil)
	require.NoError(t, err)
	lit.id = 1
	ix.insert(lit)

	q := ir.Quad{Source: ir.W("door"), Attribute: ir.W("state"), Value: ir.W("open"), Context: ir.W("c0")}
	got := ix.candidates(q)
	require.Len(t, got, 2)
	assert.Same(t, lit, got[0], "registration order, not insertion order")
	assert.Same(t, wild, got[1])

	miss := ir.Quad{Source: ir.W("window"), Attribute: ir.W("angle"), Value: ir.I(3), Context: ir.W("c9")}
	got = ix.candidates(miss)
	require.Len(t, got, 1)
	assert.Same(t, wild, got[0])
}
