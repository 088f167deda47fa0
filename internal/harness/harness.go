// Package harness runs conformance scenarios against the engine end to
// end: compile a program, execute it, append extra facts, then check
// assertions and compare the full trace against golden files. Scenarios
// use deterministic context tokens so traces are byte-stable.
package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/minigraph/internal/compiler"
	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
	"github.com/roach88/minigraph/internal/rules"
)

// Result holds everything a scenario run produced.
type Result struct {
	// Facts is the final committed log in order, including facts a rule
	// derived and the rule reification meta-facts themselves.
	Facts []ir.Quad

	// Queries holds the program's query results followed by the
	// scenario's own queries, in declaration order.
	Queries []compiler.QueryResult

	// Active lists rules still active after the run, sorted by name.
	Active []string

	// Errors collects assertion failures. Empty means the run passed.
	Errors []error
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Run executes a scenario on a fresh graph and evaluates its assertions.
// Each scenario gets its own graph and registry for isolation.
func Run(scenario *Scenario) (*Result, error) {
	prefix := scenario.TokenPrefix
	if prefix == "" {
		prefix = "tok"
	}
	g := graph.New(graph.WithTokenGenerator(graph.NewSequenceGenerator(prefix)))
	reg, err := rules.NewRegistry(g)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	defer reg.Close()

	result := &Result{}

	if scenario.Program != "" {
		p, err := compiler.CompileString(scenario.Program, scenario.Name+".cue")
		if err != nil {
			return nil, fmt.Errorf("compile program: %w", err)
		}
		results, err := compiler.Execute(g, reg, p)
		if err != nil {
			return nil, fmt.Errorf("execute program: %w", err)
		}
		result.Queries = append(result.Queries, results...)
	}

	for i, row := range scenario.Appends {
		tmpl, err := compiler.TemplateFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("append %d: %w", i, err)
		}
		if !tmpl.Ground() {
			return nil, fmt.Errorf("append %d: rows must be ground", i)
		}
		src := tmpl.Source.(ir.Literal).Val
		attr := tmpl.Attribute.(ir.Literal).Val
		val := tmpl.Value.(ir.Literal).Val
		if ctx, ok := tmpl.Context.(ir.Literal); ok {
			g.AppendIn(src, attr, val, ctx.Val)
		} else {
			g.Append(src, attr, val)
		}
	}

	for _, name := range sortedKeys(scenario.Queries) {
		tmpls := make([]ir.Template, 0, len(scenario.Queries[name]))
		for i, row := range scenario.Queries[name] {
			tmpl, err := compiler.TemplateFromRow(row)
			if err != nil {
				return nil, fmt.Errorf("query %q row %d: %w", name, i, err)
			}
			tmpls = append(tmpls, tmpl)
		}
		envs, err := g.Query(ir.Pattern{Templates: tmpls})
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
		result.Queries = append(result.Queries, compiler.QueryResult{Name: name, Bindings: envs})
	}

	result.Facts = g.Facts()
	result.Active = reg.Active()

	for i, a := range scenario.Assertions {
		if err := evalAssertion(result, reg, a); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("assertion %d: %w", i, err))
		}
	}
	return result, nil
}

// Trace renders the run as deterministic text, one line per fact then one
// per query binding. This is the golden file format.
func (r *Result) Trace() []byte {
	var buf strings.Builder
	for _, q := range r.Facts {
		fmt.Fprintf(&buf, "fact %d %s\n", q.Seq, q.Display())
	}
	for _, qr := range r.Queries {
		fmt.Fprintf(&buf, "query %s: %d\n", qr.Name, len(qr.Bindings))
		for _, env := range qr.Bindings {
			fmt.Fprintf(&buf, "  %s\n", env.Display())
		}
	}
	return []byte(buf.String())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
