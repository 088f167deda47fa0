package graph

import (
	"sort"

	"github.com/roach88/minigraph/internal/ir"
)

// fieldCat is one of the four quad field categories, in the fixed
// specificity preference order used for bucket registration.
type fieldCat int

const (
	catSource fieldCat = iota
	catAttribute
	catValue
	catContext
	fieldCatCount
)

// index routes each newly appended fact to the subset of registered
// matchers that could possibly care, avoiding O(watches) work per fact.
//
// Registration classifies a pattern once:
//
//   - wildcard-bearing (any field of any template, main or NAC, is a
//     wildcard or variable): always checked against every fact;
//   - pure-literal: registered under exactly one field category - the
//     first, in source/attribute/value/context preference order, where
//     every template holds a literal - keyed by each distinct literal the
//     pattern mentions in that position.
//
// INVARIANT: every registered matcher is discoverable from the wildcard
// set or at least one bucket, or it silently stops matching. A matcher
// that is not purely literal is never placed in a bucket.
type index struct {
	wild    []*matcher
	buckets [fieldCatCount]map[ir.Value][]*matcher
	members []*matcher // every registered matcher, registration order
}

func newIndex() *index {
	ix := &index{}
	for c := range ix.buckets {
		ix.buckets[c] = make(map[ir.Value][]*matcher)
	}
	return ix
}

// insert registers a matcher, classifying its pattern.
func (ix *index) insert(m *matcher) {
	ix.members = append(ix.members, m)
	if m.pattern.Wild() {
		ix.wild = append(ix.wild, m)
		return
	}
	cat, keys := classify(m.pattern)
	for _, key := range keys {
		ix.buckets[cat][key] = append(ix.buckets[cat][key], m)
	}
}

// remove deregisters a matcher from the wildcard set and every bucket.
// Buckets that become empty are pruned. Removing an unknown matcher is a
// no-op, which lets stale unwatch handles stay safe after Clear.
func (ix *index) remove(m *matcher) {
	ix.members = without(ix.members, m)
	ix.wild = without(ix.wild, m)
	for c := range ix.buckets {
		for key, ms := range ix.buckets[c] {
			pruned := without(ms, m)
			if len(pruned) == 0 {
				delete(ix.buckets[c], key)
			} else {
				ix.buckets[c][key] = pruned
			}
		}
	}
}

// candidates returns the matchers that must see the fact: the wildcard set
// plus every bucket keyed by the fact's literal source, attribute, value,
// and context, looked up independently. The result is deduplicated and
// ordered by registration, so delivery follows registration order.
func (ix *index) candidates(q ir.Quad) []*matcher {
	values := q.Fields()
	out := make([]*matcher, 0, len(ix.wild)+4)
	seen := make(map[*matcher]bool, len(ix.wild)+4)

	add := func(ms []*matcher) {
		for _, m := range ms {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	add(ix.wild)
	for c := 0; c < int(fieldCatCount); c++ {
		add(ix.buckets[c][values[c]])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// all returns every registered matcher in registration order. Batch
// rollback uses it to reset and replay the full watch set.
func (ix *index) all() []*matcher {
	return ix.members
}

// classify picks the bucket category for a pure-literal pattern: the first
// field category where every template holds a literal, and the distinct
// literal keys the pattern mentions there.
func classify(p ir.Pattern) (fieldCat, []ir.Value) {
	for c := catSource; c < fieldCatCount; c++ {
		keys := make([]ir.Value, 0, len(p.Templates))
		seen := make(map[ir.Value]bool, len(p.Templates))
		ok := true
		for _, t := range p.Templates {
			lit, isLit := t.Fields()[c].(ir.Literal)
			if !isLit {
				ok = false
				break
			}
			if !seen[lit.Val] {
				seen[lit.Val] = true
				keys = append(keys, lit.Val)
			}
		}
		if ok {
			return c, keys
		}
	}
	// unreachable for pure-literal patterns; insert only calls classify
	// after Wild() returned false
	return catSource, nil
}

func without(ms []*matcher, m *matcher) []*matcher {
	for i, cur := range ms {
		if cur == m {
			out := make([]*matcher, 0, len(ms)-1)
			out = append(out, ms[:i]...)
			return append(out, ms[i+1:]...)
		}
	}
	return ms
}
