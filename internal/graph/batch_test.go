package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minigraph/internal/ir"
)

func TestBatch_CommitsInOrder(t *testing.T) {
	g := newTestGraph()

	var seen []int64
	w, err := g.Watch(ir.P(ir.T(ir.Var("x"), ir.Lit(ir.W("n")), ir.Var("v"))), func(env Env) {
		seen = append(seen, int64(env["v"].(ir.Int)))
	})
	require.NoError(t, err)
	defer w.Stop()

	err = g.Batch(func() error {
		g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		g.AppendIn(ir.W("b"), ir.W("n"), ir.I(2), ir.W("c0"))
		g.AppendIn(ir.W("c"), ir.W("n"), ir.I(3), ir.W("c0"))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, seen, "notifications follow commit order")
	assert.Equal(t, 3, g.Len())
	facts := g.Facts()
	for i, q := range facts {
		assert.Equal(t, int64(i+1), q.Seq, "log order and sequence order agree")
	}
}

func TestBatch_BufferedFactsInvisibleUntilCommit(t *testing.T) {
	g := newTestGraph()

	fired := 0
	w, err := g.Watch(ir.P(ir.T(ir.Var("x"), ir.Lit(ir.W("n")), ir.Any)), func(Env) { fired++ })
	require.NoError(t, err)
	defer w.Stop()

	err = g.Batch(func() error {
		g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		assert.Equal(t, 0, fired, "watch must not fire inside the body")
		assert.Equal(t, 0, g.Len(), "buffered fact not in the committed log")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestBatch_RollbackRestoresLogAndWatches(t *testing.T) {
	g := newTestGraph()
	g.AppendIn(ir.W("keep"), ir.W("n"), ir.I(0), ir.W("c0"))

	fired := 0
	w, err := g.Watch(ir.P(ir.T(ir.Var("x"), ir.Lit(ir.W("rolled")), ir.Any)), func(Env) { fired++ })
	require.NoError(t, err)
	defer w.Stop()

	boom := errors.New("boom")
	err = g.Batch(func() error {
		g.AppendIn(ir.W("a"), ir.W("rolled"), ir.I(1), ir.W("c0"))
		g.AppendIn(ir.W("b"), ir.W("rolled"), ir.I(2), ir.W("c0"))
		return boom
	})
	require.Error(t, err)
	assert.True(t, IsBatchError(err))
	assert.ErrorIs(t, err, boom, "original failure re-raised unchanged inside BatchError")

	assert.Equal(t, 1, g.Len(), "log restored to pre-batch length")
	assert.Equal(t, int64(1), g.Head(), "sequence counter restored")
	assert.Equal(t, 0, fired, "watch never fired for rolled-back facts")

	envs, qerr := g.Query(ir.P(ir.T(ir.Any, ir.Lit(ir.W("rolled")), ir.Var("v"))))
	require.NoError(t, qerr)
	assert.Empty(t, envs, "rolled-back facts are unqueryable")
}

func TestBatch_RolledBackFactCanBeReinserted(t *testing.T) {
	g := newTestGraph()

	err := g.Batch(func() error {
		g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		return errors.New("boom")
	})
	require.Error(t, err)

	g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
	assert.Equal(t, 1, g.Len(), "dedup state was rolled back with the log")
}

func TestBatch_ReplayRebuildsPartialState(t *testing.T) {
	g := newTestGraph()

	p := ir.P(
		ir.T(ir.Var("x"), ir.Lit(ir.W("likes")), ir.Var("y")),
		ir.T(ir.Var("y"), ir.Lit(ir.W("likes")), ir.Var("z")),
	)
	fired := 0
	w, err := g.Watch(p, func(Env) { fired++ })
	require.NoError(t, err)
	defer w.Stop()

	likes(g, "alice", "bob")

	err = g.Batch(func() error {
		likes(g, "x", "y")
		return errors.New("boom")
	})
	require.Error(t, err)

	// partial state for (alice likes bob) survived the reset via replay
	likes(g, "bob", "carol")
	assert.Equal(t, 1, fired)
}

func TestBatch_DedupAgainstCommittedLog(t *testing.T) {
	g := newTestGraph()
	g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))

	err := g.Batch(func() error {
		got := g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		assert.Equal(t, ir.W("c0"), got)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len(), "identical quad inside batch is a no-op")
}

func TestBatch_DedupWithinBuffer(t *testing.T) {
	g := newTestGraph()

	err := g.Batch(func() error {
		g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestBatch_NestedBatchRejected(t *testing.T) {
	g := newTestGraph()

	err := g.Batch(func() error {
		return g.Batch(func() error { return nil })
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNestedBatch)
}

func TestBatch_PanicRollsBackThenPropagates(t *testing.T) {
	g := newTestGraph()
	g.AppendIn(ir.W("keep"), ir.W("n"), ir.I(0), ir.W("c0"))

	require.Panics(t, func() {
		_ = g.Batch(func() error {
			g.AppendIn(ir.W("a"), ir.W("n"), ir.I(1), ir.W("c0"))
			panic("boom")
		})
	})
	assert.Equal(t, 1, g.Len(), "log restored before the panic propagates")
	assert.Equal(t, int64(1), g.Head())
}
