package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
)

// Registry tracks the named rules registered against one graph and owns
// the meta-watch that retracts a rule when a disable fact appears.
//
// Like the graph it wraps, a Registry is single-threaded and explicitly
// constructed; there is no ambient default.
type Registry struct {
	g      *graph.Graph
	active map[string]*entry
	meta   *graph.Watch
}

type entry struct {
	rule  Rule
	watch *graph.Watch
	ctx   ir.Value // the rule's context token; produced facts inherit it
}

// NewRegistry creates a registry and installs the retraction meta-watch:
// any fact (?name, "rule/status", "disabled") deregisters that rule.
func NewRegistry(g *graph.Graph) (*Registry, error) {
	r := &Registry{g: g, active: make(map[string]*entry)}

	disable := ir.P(ir.T(ir.Var("name"), ir.Lit(ir.W(AttrStatus)), ir.Lit(ir.W(StatusDisabled))))
	meta, err := g.Watch(disable, func(env graph.Env) {
		name, ok := env["name"].(ir.Word)
		if !ok {
			return
		}
		r.retract(string(name))
	})
	if err != nil {
		return nil, fmt.Errorf("install disable watch: %w", err)
	}
	r.meta = meta
	return r, nil
}

// Register wires a rule: validates it, registers its watch (replaying
// existing facts, so the rule applies retroactively), and reifies it as
// meta-facts under a fresh context token shared by everything the rule
// later produces.
func (r *Registry) Register(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if _, exists := r.active[rule.Name]; exists {
		return fmt.Errorf("rule %q already registered", rule.Name)
	}

	e := &entry{rule: rule}

	// reify first so the rule's own replay sees a fully described log
	name := ir.Word(rule.Name)
	ruleCtx := r.g.Append(name, ir.W(AttrMatch), ir.Str(ir.DisplayTemplates(rule.Match)))
	e.ctx = ruleCtx
	r.g.AppendIn(name, ir.W(AttrProduce), ir.Str(ir.DisplayTemplates(rule.Produce)), ruleCtx)
	if len(rule.NAC) > 0 {
		r.g.AppendIn(name, ir.W(AttrNAC), ir.Str(ir.DisplayTemplates(rule.NAC)), ruleCtx)
	}
	r.g.AppendIn(name, ir.W(AttrStatus), ir.W(StatusActive), ruleCtx)

	w, err := r.g.Watch(rule.Pattern(), func(env graph.Env) {
		rule.fire(r.g, env, ruleCtx)
	})
	if err != nil {
		return fmt.Errorf("register rule %q: %w", rule.Name, err)
	}
	e.watch = w
	r.active[rule.Name] = e

	slog.Info("rule registered", "rule", rule.Name, "context", ruleCtx.Display())
	return nil
}

// Disable retracts a named rule by asserting its disable meta-fact; the
// meta-watch performs the actual deregistration. Disabling an unknown or
// already-disabled rule appends the fact but retracts nothing.
func (r *Registry) Disable(name string) {
	e, ok := r.active[name]
	ctx := ir.Value(ir.Word(name))
	if ok {
		ctx = e.ctx
	}
	r.g.AppendIn(ir.Word(name), ir.W(AttrStatus), ir.W(StatusDisabled), ctx)
}

// retract stops the named rule's watch. Called by the meta-watch, so it
// also runs when a disable fact arrives from a snapshot restore or a
// program insert rather than through Disable.
func (r *Registry) retract(name string) {
	e, ok := r.active[name]
	if !ok {
		return
	}
	e.watch.Stop()
	delete(r.active, name)
	slog.Info("rule retracted", "rule", name)
}

// Active returns the names of the currently registered rules, sorted.
func (r *Registry) Active() []string {
	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsActive reports whether a named rule is currently registered.
func (r *Registry) IsActive(name string) bool {
	_, ok := r.active[name]
	return ok
}

// Close stops every rule watch and the meta-watch. The reification facts
// remain in the log; only the live matching state is torn down.
func (r *Registry) Close() {
	for name, e := range r.active {
		e.watch.Stop()
		delete(r.active, name)
	}
	r.meta.Stop()
}
