// Package rules builds production rules on top of the graph core.
//
// A rule is not a core primitive: it is a watch whose callback substitutes
// the match bindings into a produce-template list and appends each resolved
// quad. Because Append notifies matchers before returning, produced facts
// chain into further rules within the same call stack.
//
// Registering a named rule also reifies it: self-describing meta-facts
// (name, serialized match/produce/NAC templates, status) are appended to
// the same log the rules operate over. The core has no awareness of rule
// semantics; a registry-level meta-watch on the status attribute implements
// retraction by deregistering the named rule's watch.
package rules

import (
	"fmt"
	"log/slog"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
)

// Meta-fact attributes written by rule reification. Ordinary facts to the
// core: matchable, watchable, snapshot-able like everything else.
const (
	AttrMatch   = "rule/match"
	AttrProduce = "rule/produce"
	AttrNAC     = "rule/nac"
	AttrStatus  = "rule/status"

	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Rule is a forward-chaining production: when Match (minus NAC) matches,
// Produce is substituted and appended.
type Rule struct {
	Name    string
	Match   []ir.Template
	Produce []ir.Template
	NAC     []ir.Template
}

// Validate checks rule-level structure beyond pattern well-formedness:
// a name, at least one produce template, and no wildcards in produce
// source/attribute/value positions (there is nothing to substitute them
// with). A wildcard produce context is allowed and resolves to the rule's
// own context token.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if len(r.Produce) == 0 {
		return fmt.Errorf("rule %q has no produce templates", r.Name)
	}
	for i, t := range r.Produce {
		for pos, f := range [3]ir.Field{t.Source, t.Attribute, t.Value} {
			if _, isWild := f.(ir.Wildcard); isWild {
				names := [3]string{"source", "attribute", "value"}
				return fmt.Errorf("rule %q: produce template %d: %s is a wildcard", r.Name, i, names[pos])
			}
		}
	}
	return nil
}

// Pattern returns the watch pattern for the rule's positive and negative
// templates.
func (r Rule) Pattern() ir.Pattern {
	return ir.Pattern{Templates: r.Match, NAC: r.NAC}
}

// resolve substitutes bindings into one produce template. Bound variables
// take their value; unbound variables pass through as literal word tokens
// in their source form ("?x"). A wildcard context resolves to fallback.
func resolve(t ir.Template, env graph.Env, fallback ir.Value) (source, attribute, value, context ir.Value) {
	one := func(f ir.Field) ir.Value {
		switch fld := f.(type) {
		case ir.Literal:
			return fld.Val
		case ir.Variable:
			if v, ok := env.Lookup(fld.Name); ok {
				return v
			}
			return ir.Word(fld.Display())
		default:
			return nil
		}
	}
	source = one(t.Source)
	attribute = one(t.Attribute)
	value = one(t.Value)
	context = one(t.Context)
	if context == nil {
		context = fallback
	}
	return source, attribute, value, context
}

// fire appends every produce template under the rule's context token.
func (r Rule) fire(g *graph.Graph, env graph.Env, ruleCtx ir.Value) {
	slog.Debug("rule fired", "rule", r.Name, "bindings", env.Display())
	for _, t := range r.Produce {
		s, a, v, c := resolve(t, env, ruleCtx)
		g.AppendIn(s, a, v, c)
	}
}
