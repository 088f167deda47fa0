package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/minigraph/internal/ir"
	"github.com/roach88/minigraph/internal/rules"
)

// Assertion is one ground fact to insert. A nil Context means the log
// assigns a fresh token.
type Assertion struct {
	Source    ir.Value
	Attribute ir.Value
	Value     ir.Value
	Context   ir.Value
}

// NamedQuery is a one-shot pattern evaluated after inserts and rules.
type NamedQuery struct {
	Name    string
	Pattern ir.Pattern
}

// Program is a compiled CUE source: everything needed to drive the four
// graph operations, in declaration order where order is observable.
type Program struct {
	Inserts  []Assertion
	Rules    []rules.Rule
	Queries  []NamedQuery
	Disables []string
}

// CompileString compiles CUE source text. The filename is used in error
// positions only.
func CompileString(src, filename string) (*Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileProgram(v)
}

// CompileProgram parses a CUE value holding the program's top-level
// sections. Unknown top-level fields are rejected - a misspelled section
// silently doing nothing is the worst failure mode a rule file can have.
func CompileProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		switch name := iter.Label(); name {
		case "insert", "rule", "query", "disable":
		default:
			return nil, &CompileError{
				Field:   name,
				Message: "unknown section (expected insert, rule, query, or disable)",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	p := &Program{}
	if err := p.parseInserts(v.LookupPath(cue.ParsePath("insert"))); err != nil {
		return nil, err
	}
	if err := p.parseRules(v.LookupPath(cue.ParsePath("rule"))); err != nil {
		return nil, err
	}
	if err := p.parseQueries(v.LookupPath(cue.ParsePath("query"))); err != nil {
		return nil, err
	}
	if err := p.parseDisables(v.LookupPath(cue.ParsePath("disable"))); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) parseInserts(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		tmpl, err := parseTemplate(iter.Value())
		if err != nil {
			return fmt.Errorf("insert[%d]: %w", i, err)
		}
		if !tmpl.Ground() {
			return &CompileError{
				Field:   fmt.Sprintf("insert[%d]", i),
				Message: "insert rows must be ground (no variables or wildcards)",
				Pos:     iter.Value().Pos(),
			}
		}
		a := Assertion{
			Source:    tmpl.Source.(ir.Literal).Val,
			Attribute: tmpl.Attribute.(ir.Literal).Val,
			Value:     tmpl.Value.(ir.Literal).Val,
		}
		if ctx, ok := tmpl.Context.(ir.Literal); ok {
			a.Context = ctx.Val
		}
		p.Inserts = append(p.Inserts, a)
	}
	return nil
}

func (p *Program) parseRules(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		body := iter.Value()

		match, err := parseTemplates(body.LookupPath(cue.ParsePath("match")))
		if err != nil {
			return fmt.Errorf("rule %q: match: %w", name, err)
		}
		if len(match) == 0 {
			return &CompileError{
				Field:   "rule." + name,
				Message: "match is required and must not be empty",
				Pos:     body.Pos(),
			}
		}
		produce, err := parseTemplates(body.LookupPath(cue.ParsePath("produce")))
		if err != nil {
			return fmt.Errorf("rule %q: produce: %w", name, err)
		}
		if len(produce) == 0 {
			return &CompileError{
				Field:   "rule." + name,
				Message: "produce is required and must not be empty",
				Pos:     body.Pos(),
			}
		}
		nac, err := parseTemplates(body.LookupPath(cue.ParsePath("not")))
		if err != nil {
			return fmt.Errorf("rule %q: not: %w", name, err)
		}

		p.Rules = append(p.Rules, rules.Rule{
			Name:    name,
			Match:   match,
			Produce: produce,
			NAC:     nac,
		})
	}
	return nil
}

func (p *Program) parseQueries(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		templates, err := parseTemplates(iter.Value())
		if err != nil {
			return fmt.Errorf("query %q: %w", name, err)
		}
		if len(templates) == 0 {
			return &CompileError{
				Field:   "query." + name,
				Message: "query must have at least one template",
				Pos:     iter.Value().Pos(),
			}
		}
		p.Queries = append(p.Queries, NamedQuery{
			Name:    name,
			Pattern: ir.Pattern{Templates: templates},
		})
	}
	return nil
}

func (p *Program) parseDisables(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return formatCUEError(err)
		}
		p.Disables = append(p.Disables, name)
	}
	return nil
}

// parseTemplates parses a CUE list of template rows. A missing value
// yields nil, letting optional sections (not:) stay absent.
func parseTemplates(v cue.Value) ([]ir.Template, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Template
	for i := 0; iter.Next(); i++ {
		tmpl, err := parseTemplate(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// parseTemplate parses one row of 3 (context omitted, matches any) or 4
// fields.
func parseTemplate(v cue.Value) (ir.Template, error) {
	iter, err := v.List()
	if err != nil {
		return ir.Template{}, formatCUEError(err)
	}
	var fields []ir.Field
	for iter.Next() {
		f, err := parseField(iter.Value())
		if err != nil {
			return ir.Template{}, err
		}
		fields = append(fields, f)
	}
	switch len(fields) {
	case 3:
		return ir.T(fields[0], fields[1], fields[2]), nil
	case 4:
		return ir.T(fields[0], fields[1], fields[2], fields[3]), nil
	default:
		return ir.Template{}, &CompileError{
			Field:   "template",
			Message: fmt.Sprintf("expected 3 or 4 fields, got %d", len(fields)),
			Pos:     v.Pos(),
		}
	}
}

// parseField maps one CUE scalar to a template field. Strings carry the
// pattern syntax; ints and bools are always literals. Floats are rejected.
func parseField(v cue.Value) (ir.Field, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return parseStringField(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Lit(ir.Int(n)), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Lit(ir.Bool(b)), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "field",
			Message: "floats are forbidden in quad fields - use int",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "field",
			Message: fmt.Sprintf("unsupported field kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func parseStringField(s string) ir.Field {
	switch {
	case s == "_":
		return ir.Any
	case len(s) > 1 && strings.HasPrefix(s, "?"):
		return ir.Var(s[1:])
	case strings.HasPrefix(s, "word:"):
		return ir.Lit(ir.Word(strings.TrimPrefix(s, "word:")))
	case strings.HasPrefix(s, "str:"):
		return ir.Lit(ir.String(strings.TrimPrefix(s, "str:")))
	case wordShaped(s):
		return ir.Lit(ir.Word(s))
	default:
		return ir.Lit(ir.String(s))
	}
}

// CompileTemplates parses a CUE list expression of template rows, e.g.
// `[["?s", "likes", "?o"]]`. The query command uses it for ad-hoc
// patterns given on the command line.
func CompileTemplates(src string) ([]ir.Template, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("pattern"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	tmpls, err := parseTemplates(v)
	if err != nil {
		return nil, err
	}
	if len(tmpls) == 0 {
		return nil, fmt.Errorf("pattern needs at least one template row")
	}
	return tmpls, nil
}

// FieldFromGo maps a plain Go scalar, as decoded from YAML or a command
// line, to a template field using the same syntax as program fields.
func FieldFromGo(v any) (ir.Field, error) {
	switch x := v.(type) {
	case string:
		return parseStringField(x), nil
	case int:
		return ir.Lit(ir.Int(int64(x))), nil
	case int64:
		return ir.Lit(ir.Int(x)), nil
	case bool:
		return ir.Lit(ir.Bool(x)), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in quad fields - use int")
	default:
		return nil, fmt.Errorf("unsupported field type %T", v)
	}
}

// TemplateFromRow maps a row of 3 or 4 Go scalars to a template.
func TemplateFromRow(row []any) (ir.Template, error) {
	fields := make([]ir.Field, 0, len(row))
	for i, cell := range row {
		f, err := FieldFromGo(cell)
		if err != nil {
			return ir.Template{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields = append(fields, f)
	}
	switch len(fields) {
	case 3:
		return ir.T(fields[0], fields[1], fields[2]), nil
	case 4:
		return ir.T(fields[0], fields[1], fields[2], fields[3]), nil
	default:
		return ir.Template{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}
}

// wordShaped reports whether s looks like a bareword identifier:
// letters, digits, '_', '/', '-', '.', starting with a letter or '_'.
func wordShaped(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '/' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
