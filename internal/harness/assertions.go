package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/minigraph/internal/compiler"
	"github.com/roach88/minigraph/internal/ir"
	"github.com/roach88/minigraph/internal/rules"
)

// AssertionError reports one failed assertion with enough context to debug
// it without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Facts    []ir.Quad
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nfinal log:\n")
	for _, q := range e.Facts {
		fmt.Fprintf(&buf, "  [%d] %s\n", q.Seq, q.Display())
	}
	return buf.String()
}

func evalAssertion(r *Result, reg *rules.Registry, a Assertion) error {
	switch a.Type {
	case "fact_count":
		if len(r.Facts) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d facts", a.Count),
				Actual:   fmt.Sprintf("%d facts", len(r.Facts)),
				Facts:    r.Facts,
			}
		}
	case "fact_present", "fact_absent":
		tmpl, err := compiler.TemplateFromRow(a.Fact)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		found := anyFactMatches(r.Facts, tmpl)
		if a.Type == "fact_present" && !found {
			return &AssertionError{
				Type:     a.Type,
				Expected: "a fact matching " + tmpl.Display(),
				Actual:   "no match",
				Facts:    r.Facts,
			}
		}
		if a.Type == "fact_absent" && found {
			return &AssertionError{
				Type:     a.Type,
				Expected: "no fact matching " + tmpl.Display(),
				Actual:   "at least one match",
				Facts:    r.Facts,
			}
		}
	case "query_count":
		qr, ok := findQuery(r.Queries, a.Query)
		if !ok {
			return fmt.Errorf("query_count: no query named %q ran", a.Query)
		}
		if len(qr.Bindings) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("query %q with %d bindings", a.Query, a.Count),
				Actual:   fmt.Sprintf("%d bindings", len(qr.Bindings)),
				Facts:    r.Facts,
			}
		}
	case "rule_active":
		want := true
		if a.Active != nil {
			want = *a.Active
		}
		if got := reg.IsActive(a.Rule); got != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("rule %q active=%v", a.Rule, want),
				Actual:   fmt.Sprintf("active=%v", got),
				Facts:    r.Facts,
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// anyFactMatches checks a single template against the log. Assertion rows
// may use variables and wildcards; a variable here only needs any
// consistent binding within the one fact.
func anyFactMatches(facts []ir.Quad, tmpl ir.Template) bool {
	for _, q := range facts {
		if factMatches(q, tmpl) {
			return true
		}
	}
	return false
}

func factMatches(q ir.Quad, tmpl ir.Template) bool {
	bound := map[string]ir.Value{}
	fields := tmpl.Fields()
	for i, v := range q.Fields() {
		switch f := fields[i].(type) {
		case ir.Wildcard:
		case ir.Literal:
			if f.Val != v {
				return false
			}
		case ir.Variable:
			if prev, ok := bound[f.Name]; ok {
				if prev != v {
					return false
				}
			} else {
				bound[f.Name] = v
			}
		default:
			return false
		}
	}
	return true
}

func findQuery(results []compiler.QueryResult, name string) (compiler.QueryResult, bool) {
	for _, qr := range results {
		if qr.Name == name {
			return qr, true
		}
	}
	return compiler.QueryResult{}, false
}
