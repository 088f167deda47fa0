package graph

import (
	"sort"
	"strings"

	"github.com/roach88/minigraph/internal/ir"
)

// Env maps pattern-variable names to bound values. Environments are shared
// across the partial matches derived from one another, so mutation is
// forbidden: Extend copies. An empty (nil) Env is valid and binds nothing.
type Env map[string]ir.Value

// Lookup returns the bound value for name, if any.
func (e Env) Lookup(name string) (ir.Value, bool) {
	v, ok := e[name]
	return v, ok
}

// Extend returns a new environment with name bound to v. The receiver is
// unchanged - a variable, once bound within a match lineage, never changes.
func (e Env) Extend(name string, v ir.Value) Env {
	next := make(Env, len(e)+1)
	for k, val := range e {
		next[k] = val
	}
	next[name] = v
	return next
}

// Names returns the bound variable names in sorted order.
func (e Env) Names() []string {
	names := make([]string, 0, len(e))
	for k := range e {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two environments bind the same names to the same
// values.
func (e Env) Equal(other Env) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Display renders the environment as "{?a: 1, ?b: x}" with sorted names.
func (e Env) Display() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range e.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(e[name].Display())
	}
	b.WriteByte('}')
	return b.String()
}

// Key returns a stable content key for the binding set. Harness traces use
// it to order and dedup match records deterministically.
func (e Env) Key() string {
	return ir.BindingKey(e.Names(), e.Lookup)
}
