package graph

import (
	"github.com/roach88/minigraph/internal/ir"
)

// partial is the in-progress state of one candidate match: which template
// positions are satisfied, the bindings accumulated so far, and the facts
// consumed in order. A partial is complete when remaining reaches zero.
//
// Partials are never mutated after creation - extension copies - because
// the same partial may later be extended by several different facts.
type partial struct {
	satisfied []bool
	remaining int
	env       Env
	facts     []ir.Quad
}

// matcher tracks all partial and complete matches for one pattern.
//
// update is called once per fact, in log order. Re-entrancy is expected:
// a completion callback may append facts, which recursively calls update
// on this same matcher before the outer call finishes. update therefore
// iterates a snapshot of the partial list and only ever appends to it.
type matcher struct {
	id      int64 // registration order; assigned by the watch facade
	pattern ir.Pattern
	onMatch func(Env)

	partials []*partial
	complete []Env
}

// newMatcher validates the pattern and builds an empty matcher. Malformed
// templates are rejected here, before any fact is examined.
func newMatcher(p ir.Pattern, onMatch func(Env)) (*matcher, error) {
	if err := p.Validate(); err != nil {
		return nil, &PatternError{Pattern: p, Err: err}
	}
	return &matcher{pattern: p, onMatch: onMatch}, nil
}

// update feeds one fact through the matcher:
//
//  1. every existing partial is offered the fact against its unsatisfied
//     template positions (declaration order, first match wins);
//  2. a brand-new partial is seeded from the fact alone, under the same
//     first-position rule;
//  3. any partial completed by 1 or 2 is NAC-checked against the current
//     log; survivors are recorded and the callback fires synchronously.
//
// A fact may simultaneously extend existing partials and seed a new one.
// Extension never consumes its input partial: the original stays live for
// other facts.
func (m *matcher) update(q ir.Quad, log *Graph) {
	snapshot := m.partials
	for _, p := range snapshot {
		if next, ok := m.extend(p, q); ok {
			m.admit(next, log)
		}
	}
	if next, ok := m.extend(m.seed(), q); ok {
		m.admit(next, log)
	}
}

// seed returns a fresh empty partial covering every template position.
func (m *matcher) seed() *partial {
	return &partial{
		satisfied: make([]bool, len(m.pattern.Templates)),
		remaining: len(m.pattern.Templates),
		env:       nil,
	}
}

// extend tries the fact against each unsatisfied position of p in template
// declaration order and accepts the first that matches. There is no search
// for alternative position assignments: ambiguous templates resolve by
// declaration order, which is documented, testable behavior.
func (m *matcher) extend(p *partial, q ir.Quad) (*partial, bool) {
	for i, t := range m.pattern.Templates {
		if p.satisfied[i] {
			continue
		}
		env, ok := matchTemplate(t, q, p.env)
		if !ok {
			continue
		}
		satisfied := make([]bool, len(p.satisfied))
		copy(satisfied, p.satisfied)
		satisfied[i] = true

		facts := make([]ir.Quad, len(p.facts), len(p.facts)+1)
		copy(facts, p.facts)
		facts = append(facts, q)

		return &partial{
			satisfied: satisfied,
			remaining: p.remaining - 1,
			env:       env,
			facts:     facts,
		}, true
	}
	return nil, false
}

// admit routes a freshly extended partial: incomplete ones join the partial
// list; complete ones run the NAC check and, if clear, are recorded and
// delivered. A complete candidate that fails its NAC is dropped - it is not
// retried unless re-derived from a different fact combination.
func (m *matcher) admit(p *partial, log *Graph) {
	if p.remaining > 0 {
		m.partials = append(m.partials, p)
		return
	}
	if !nacClear(m.pattern.NAC, p.env, log.facts) {
		return
	}
	m.complete = append(m.complete, p.env)
	if m.onMatch != nil {
		m.onMatch(p.env)
	}
}

// reset discards all partial and complete state. Used by batch rollback
// before replay, and by unwatch.
func (m *matcher) reset() {
	m.partials = nil
	m.complete = nil
}

// matchTemplate matches a fact against one template, threading the binding
// environment through all four fields so a variable repeated within a
// single template must agree with itself.
func matchTemplate(t ir.Template, q ir.Quad, env Env) (Env, bool) {
	fields := t.Fields()
	values := q.Fields()
	for i := 0; i < 4; i++ {
		next, ok := matchField(fields[i], values[i], env)
		if !ok {
			return nil, false
		}
		env = next
	}
	return env, true
}

// matchField matches one template field against one stored value.
// Wildcards match anything and bind nothing. Literals require exact
// equality. Variables bind on first occurrence and require equality with
// the bound value afterwards.
func matchField(f ir.Field, v ir.Value, env Env) (Env, bool) {
	switch fld := f.(type) {
	case ir.Wildcard:
		return env, true
	case ir.Literal:
		if fld.Val == v {
			return env, true
		}
		return nil, false
	case ir.Variable:
		if bound, ok := env.Lookup(fld.Name); ok {
			if bound == v {
				return env, true
			}
			return nil, false
		}
		return env.Extend(fld.Name, v), true
	default:
		// Validate rejects unknown field kinds at construction.
		return nil, false
	}
}

// nacClear checks the negative templates of a complete candidate against
// the entire current fact log. For each NAC template the match bindings
// are substituted; if the substituted template matches ANY stored fact the
// candidate is rejected.
//
// A variable with no binding in env is left unresolved and matches
// nothing, so a NAC mentioning only unbound variables can never exclude.
//
// This is a full scan by design - negative conditions are not indexed -
// and is the dominant cost for rule sets with many negations over large
// logs. Known scalability boundary, not a bug.
func nacClear(nac []ir.Template, env Env, facts []ir.Quad) bool {
	for _, t := range nac {
		for _, q := range facts {
			if nacTemplateMatches(t, q, env) {
				return false
			}
		}
	}
	return true
}

// nacTemplateMatches matches a NAC template against one fact under fixed
// bindings. Unlike positive matching it never extends the environment.
func nacTemplateMatches(t ir.Template, q ir.Quad, env Env) bool {
	fields := t.Fields()
	values := q.Fields()
	for i := 0; i < 4; i++ {
		switch fld := fields[i].(type) {
		case ir.Wildcard:
			// matches any value
		case ir.Literal:
			if fld.Val != values[i] {
				return false
			}
		case ir.Variable:
			bound, ok := env.Lookup(fld.Name)
			if !ok {
				// unresolved variable: this template cannot exclude
				return false
			}
			if bound != values[i] {
				return false
			}
		default:
			return false
		}
	}
	return true
}
