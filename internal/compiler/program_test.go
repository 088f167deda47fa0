package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
	"github.com/roach88/minigraph/internal/rules"
)

const demoProgram = `
insert: [
	["alice", "likes", "bob"],
	["bob", "likes", "carol"],
	["alice", "age", 30, "census"],
]
rule: "mutual": {
	match: [["?x", "likes", "?y"], ["?y", "likes", "?x"]]
	produce: [["?x", "friend", "?y"]]
	not: [["?x", "friend", "?y"]]
}
query: chain: [["?x", "likes", "?y"], ["?y", "likes", "?z"]]
`

func TestCompileString_Sections(t *testing.T) {
	p, err := CompileString(demoProgram, "demo.cue")
	require.NoError(t, err)

	require.Len(t, p.Inserts, 3)
	assert.Equal(t, ir.W("alice"), p.Inserts[0].Source)
	assert.Nil(t, p.Inserts[0].Context, "3-field insert gets auto context")
	assert.Equal(t, ir.W("census"), p.Inserts[2].Context)
	assert.Equal(t, ir.I(30), p.Inserts[2].Value)

	require.Len(t, p.Rules, 1)
	rule := p.Rules[0]
	assert.Equal(t, "mutual", rule.Name)
	require.Len(t, rule.Match, 2)
	assert.Equal(t, ir.Var("x"), rule.Match[0].Source)
	assert.Equal(t, ir.Lit(ir.W("likes")), rule.Match[0].Attribute)
	require.Len(t, rule.NAC, 1)

	require.Len(t, p.Queries, 1)
	assert.Equal(t, "chain", p.Queries[0].Name)
	require.Len(t, p.Queries[0].Pattern.Templates, 2)
}

func TestParseStringField_Syntax(t *testing.T) {
	tests := []struct {
		in   string
		want ir.Field
	}{
		{"?x", ir.Var("x")},
		{"_", ir.Any},
		{"alice", ir.Lit(ir.W("alice"))},
		{"room/light-1", ir.Lit(ir.W("room/light-1"))},
		{"hello world", ir.Lit(ir.Str("hello world"))},
		{"word:hello world", ir.Lit(ir.W("hello world"))},
		{"str:alice", ir.Lit(ir.Str("alice"))},
		{"?", ir.Lit(ir.Str("?"))},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, parseStringField(tc.in))
		})
	}
}

func TestCompile_RejectsNonGroundInsert(t *testing.T) {
	_, err := CompileString(`insert: [["?x", "likes", "bob"]]`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ground")
}

func TestCompile_RejectsFloats(t *testing.T) {
	_, err := CompileString(`insert: [["alice", "score", 1.5]]`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompile_RejectsWrongArity(t *testing.T) {
	_, err := CompileString(`insert: [["alice", "likes"]]`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 or 4 fields")
}

func TestCompile_RejectsUnknownSection(t *testing.T) {
	_, err := CompileString(`inserts: [["a", "b", "c"]]`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown section")
}

func TestCompile_RejectsRuleWithoutProduce(t *testing.T) {
	_, err := CompileString(`rule: "r": { match: [["?x", "a", "b"]] }`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produce")
}

func TestCompile_ErrorCarriesPosition(t *testing.T) {
	_, err := CompileString("insert: [\n\t[\"alice\", \"score\", 2.5],\n]", "pos.cue")
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "pos.cue")
}

func TestExecute_EndToEnd(t *testing.T) {
	p, err := CompileString(demoProgram, "demo.cue")
	require.NoError(t, err)

	g := graph.New(graph.WithTokenGenerator(graph.NewFixedGenerator(
		"tok-1", "tok-2", "tok-3", "tok-4",
	)))
	reg, err := rules.NewRegistry(g)
	require.NoError(t, err)
	defer reg.Close()

	results, err := Execute(g, reg, p)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "chain", results[0].Name)
	require.Len(t, results[0].Bindings, 1)
	assert.True(t, results[0].Bindings[0].Equal(graph.Env{
		"x": ir.W("alice"), "y": ir.W("bob"), "z": ir.W("carol"),
	}))
}

func TestExecute_RuleChainsOverInserts(t *testing.T) {
	src := `
insert: [
	["alice", "likes", "bob"],
	["bob", "likes", "alice"],
]
rule: "mutual": {
	match: [["?x", "likes", "?y"], ["?y", "likes", "?x"]]
	produce: [["?x", "friend", "?y"]]
	not: [["?x", "friend", "?y"]]
}
query: friends: [["?a", "friend", "?b"]]
`
	p, err := CompileString(src, "mutual.cue")
	require.NoError(t, err)

	g := graph.New()
	reg, err := rules.NewRegistry(g)
	require.NoError(t, err)
	defer reg.Close()

	results, err := Execute(g, reg, p)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The second insert completes the join started by the first; the
	// reverse pairing never forms because joins only extend with facts
	// appended after the partial was seeded.
	require.Len(t, results[0].Bindings, 1)
	assert.True(t, results[0].Bindings[0].Equal(graph.Env{
		"a": ir.W("alice"), "b": ir.W("bob"),
	}))
}

func TestExecute_DisableRetractsRule(t *testing.T) {
	src := `
rule: "loud": {
	match: [["?x", "type", "A"]]
	produce: [["?x", "loud", true]]
	not: [["?x", "loud", true]]
}
disable: ["loud"]
`
	p, err := CompileString(src, "disable.cue")
	require.NoError(t, err)

	g := graph.New()
	reg, err := rules.NewRegistry(g)
	require.NoError(t, err)
	defer reg.Close()

	_, err = Execute(g, reg, p)
	require.NoError(t, err)
	assert.False(t, reg.IsActive("loud"))

	g.AppendIn(ir.W("foo"), ir.W("type"), ir.W("A"), ir.W("c0"))
	envs, err := g.Query(ir.P(ir.T(ir.Var("x"), ir.Lit(ir.W("loud")), ir.Lit(ir.B(true)))))
	require.NoError(t, err)
	assert.Empty(t, envs)
}
