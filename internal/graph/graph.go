package graph

import (
	"log/slog"

	"github.com/roach88/minigraph/internal/ir"
)

// Graph is one engine instance: the quad log, its activation index, and
// every registered watch. Construct explicitly with New and pass it to
// collaborators - there is no process-wide default instance.
//
// A Graph is owned by exactly one goroutine. All four operations (Append,
// Batch, Query, Watch) are synchronous and run to completion, including
// any rule firing they trigger, before returning.
type Graph struct {
	clock  *Clock
	tokens TokenGenerator
	index  *index

	facts []ir.Quad
	byKey map[string]int // quad content key -> log position, for dedup

	nextWatch int64

	// batch buffering; see Batch
	inBatch     bool
	pending     []ir.Quad
	pendingKeys map[string]int
}

// Option configures a Graph.
type Option func(*Graph)

// WithTokenGenerator replaces the context token source. Tests use
// FixedGenerator for deterministic auto-assigned contexts.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(g *Graph) {
		g.tokens = gen
	}
}

// New creates an empty graph. Default context tokens are UUIDv7.
func New(opts ...Option) *Graph {
	g := &Graph{
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		index:  newIndex(),
		byKey:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Append inserts a fact with a fresh auto-generated context token and
// returns that token. Idempotence applies only to the full 4-tuple, so an
// auto-contexted append always stores a new quad.
func (g *Graph) Append(source, attribute, value ir.Value) ir.Value {
	return g.append(source, attribute, value, nil)
}

// AppendIn inserts a fact under an explicit context. If a stored quad is
// identical across all four fields the append is a no-op and the existing
// context token is returned. Otherwise the quad is recorded and every
// affected watch is notified synchronously, in registration order, before
// AppendIn returns.
func (g *Graph) AppendIn(source, attribute, value, context ir.Value) ir.Value {
	return g.append(source, attribute, value, context)
}

func (g *Graph) append(source, attribute, value, context ir.Value) ir.Value {
	if context == nil {
		context = g.tokens.Generate()
	}
	q := ir.Quad{Source: source, Attribute: attribute, Value: value, Context: context}
	key := ir.QuadKey(q)

	if pos, ok := g.byKey[key]; ok {
		return g.facts[pos].Context // idempotent no-op
	}

	if g.inBatch {
		if pos, ok := g.pendingKeys[key]; ok {
			return g.pending[pos].Context
		}
		g.pendingKeys[key] = len(g.pending)
		g.pending = append(g.pending, q)
		return context
	}

	g.commit(q, key)
	return context
}

// commit stamps the quad, stores it, and notifies the affected watches.
// Sequence numbers are assigned here so log order and sequence order
// always agree, even when rule firing interleaves with a batch commit.
func (g *Graph) commit(q ir.Quad, key string) {
	q.Seq = g.clock.Next()
	g.byKey[key] = len(g.facts)
	g.facts = append(g.facts, q)

	slog.Debug("fact appended", "seq", q.Seq, "quad", q.Display())

	for _, m := range g.index.candidates(q) {
		m.update(q, g)
	}
}

// Batch executes body with appends buffered and invisible to watches.
//
// On success the buffered facts commit one at a time, each notifying
// watches in commit order, exactly as if appended individually; rule
// firings triggered mid-commit append (and notify) depth-first before the
// next buffered fact commits.
//
// On any failure - a body error or a panic anywhere inside the batch -
// the log is rolled back to its pre-batch length and sequence counter,
// EVERY registered watch is reset and replayed against the surviving log,
// and then the failure is re-raised: errors come back wrapped in
// *BatchError, panics propagate after recovery. Rollback-and-replay is
// the sole recovery mechanism; post-rollback state is guaranteed
// consistent.
//
// Batches do not nest; a nested call returns ErrNestedBatch.
func (g *Graph) Batch(body func() error) error {
	if g.inBatch {
		return ErrNestedBatch
	}
	preLen := len(g.facts)
	preSeq := g.clock.Current()

	g.inBatch = true
	g.pending = nil
	g.pendingKeys = make(map[string]int)

	defer func() {
		if r := recover(); r != nil {
			g.rollback(preLen, preSeq)
			panic(r)
		}
	}()

	bodyErr := body()

	g.inBatch = false
	pending := g.pending
	g.pending, g.pendingKeys = nil, nil

	if bodyErr != nil {
		g.rollback(preLen, preSeq)
		slog.Debug("batch rolled back", "buffered", len(pending), "error", bodyErr)
		return &BatchError{Err: bodyErr}
	}

	for _, q := range pending {
		key := ir.QuadKey(q)
		if _, ok := g.byKey[key]; ok {
			// a rule firing earlier in this commit already produced it
			continue
		}
		g.commit(q, key)
	}
	slog.Debug("batch committed", "facts", len(pending))
	return nil
}

// rollback restores the pre-batch log and clock, then resets and replays
// every registered watch so matcher state cannot diverge from log content.
func (g *Graph) rollback(preLen int, preSeq int64) {
	g.inBatch = false
	g.pending, g.pendingKeys = nil, nil

	for _, q := range g.facts[preLen:] {
		delete(g.byKey, ir.QuadKey(q))
	}
	g.facts = g.facts[:preLen]
	g.clock.Rewind(preSeq)

	for _, m := range g.index.all() {
		m.reset()
	}
	// replay by position: callbacks fired during replay may append, and
	// those facts must be replayed too
	for i := 0; i < len(g.facts); i++ {
		q := g.facts[i]
		for _, m := range g.index.candidates(q) {
			m.update(q, g)
		}
	}
}

// Query evaluates a pattern against the current log and returns the
// binding environments of all complete matches, in derivation order. The
// matcher is discarded afterwards; it is never registered in the index.
func (g *Graph) Query(p ir.Pattern) ([]Env, error) {
	m, err := newMatcher(p, nil)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(g.facts); i++ {
		m.update(g.facts[i], g)
	}
	return m.complete, nil
}

// Watch registers a persistent pattern. Existing facts are replayed first,
// delivering any immediately-satisfied matches to onMatch, then the
// matcher joins the activation index for future notification.
//
// The returned handle deregisters the watch; after Stop no further
// callbacks fire and partial-match state is discarded.
func (g *Graph) Watch(p ir.Pattern, onMatch func(Env)) (*Watch, error) {
	m, err := newMatcher(p, onMatch)
	if err != nil {
		return nil, err
	}
	// replay before registering: facts produced by onMatch during replay
	// extend the log and are reached by position
	for i := 0; i < len(g.facts); i++ {
		m.update(g.facts[i], g)
	}
	g.nextWatch++
	m.id = g.nextWatch
	g.index.insert(m)

	slog.Debug("watch registered", "id", m.id, "wild", p.Wild(), "templates", len(p.Templates))
	return &Watch{g: g, m: m}, nil
}

// Watch is the deregistration handle returned by Graph.Watch.
type Watch struct {
	g       *Graph
	m       *matcher
	stopped bool
}

// Stop deregisters the watch. Idempotent.
func (w *Watch) Stop() {
	if w.stopped {
		return
	}
	w.stopped = true
	w.g.index.remove(w.m)
	w.m.reset()
	slog.Debug("watch stopped", "id", w.m.id)
}

// Matches returns the binding environments delivered so far, in order.
func (w *Watch) Matches() []Env {
	return w.m.complete
}

// Clear resets the log and unregisters every active watch. Outstanding
// watch handles become inert; stopping one is a no-op.
func (g *Graph) Clear() {
	for _, m := range g.index.all() {
		m.reset()
	}
	g.index = newIndex()
	g.facts = nil
	g.byKey = make(map[string]int)
	g.clock = NewClock()
	g.nextWatch = 0
	slog.Debug("graph cleared")
}

// Facts returns a copy of the committed log in insertion order. Buffered
// batch facts are not included.
func (g *Graph) Facts() []ir.Quad {
	out := make([]ir.Quad, len(g.facts))
	copy(out, g.facts)
	return out
}

// Len returns the number of committed facts.
func (g *Graph) Len() int {
	return len(g.facts)
}

// Head returns the last issued sequence number.
func (g *Graph) Head() int64 {
	return g.clock.Current()
}
