package ir

import (
	"fmt"
	"strings"
)

// Quad is one stored fact: (source, attribute, value, context) plus the
// insertion sequence number assigned by the fact log. Quads are immutable
// once stored.
type Quad struct {
	Source    Value
	Attribute Value
	Value     Value
	Context   Value
	Seq       int64
}

// Fields returns the four stored values in declaration order.
func (q Quad) Fields() [4]Value {
	return [4]Value{q.Source, q.Attribute, q.Value, q.Context}
}

// Display returns the text form "[source attribute value context]".
func (q Quad) Display() string {
	return fmt.Sprintf("[%s %s %s %s]",
		q.Source.Display(), q.Attribute.Display(), q.Value.Display(), q.Context.Display())
}

// Template is one position within a pattern: four fields, each a literal,
// wildcard, or variable. A zero Field (nil) is malformed and rejected by
// Validate.
type Template struct {
	Source    Field
	Attribute Field
	Value     Field
	Context   Field
}

// Fields returns the four template fields in declaration order, matching
// the specificity preference order used by the activation index.
func (t Template) Fields() [4]Field {
	return [4]Field{t.Source, t.Attribute, t.Value, t.Context}
}

// Display returns the source form "[?x likes _ ctx]".
func (t Template) Display() string {
	parts := make([]string, 0, 4)
	for _, f := range t.Fields() {
		parts = append(parts, f.Display())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Ground reports whether every field of t is a literal.
func (t Template) Ground() bool {
	for _, f := range t.Fields() {
		if !IsGround(f) {
			return false
		}
	}
	return true
}

// T builds a template. A nil context means "match any context" and is
// stored as a wildcard, mirroring the optional fourth position in source
// programs.
func T(source, attribute, value Field, context ...Field) Template {
	t := Template{Source: source, Attribute: attribute, Value: value, Context: Any}
	if len(context) > 0 && context[0] != nil {
		t.Context = context[0]
	}
	return t
}

// Pattern is an ordered template list plus zero or more negative (NAC)
// templates. A candidate match is accepted only if, after substituting its
// bindings, no NAC template matches any stored fact.
type Pattern struct {
	Templates []Template
	NAC       []Template
}

// P builds a pattern without negative templates.
func P(templates ...Template) Pattern {
	return Pattern{Templates: templates}
}

// WithNAC returns a copy of p with the given negative templates attached.
func (p Pattern) WithNAC(nac ...Template) Pattern {
	p.NAC = nac
	return p
}

// Wild reports whether any field across the main templates or the NAC is a
// wildcard or variable. The activation index routes such patterns through
// the wildcard set; purely literal patterns go into a field bucket.
func (p Pattern) Wild() bool {
	for _, t := range p.Templates {
		if !t.Ground() {
			return true
		}
	}
	for _, t := range p.NAC {
		if !t.Ground() {
			return true
		}
	}
	return false
}

// Validate checks structural well-formedness: at least one main template,
// no nil fields, no nil literal values, no empty variable names. Detected
// at pattern construction so matching never sees a malformed template.
func (p Pattern) Validate() error {
	if len(p.Templates) == 0 {
		return fmt.Errorf("pattern has no templates")
	}
	for i, t := range p.Templates {
		if err := t.validate(); err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
	}
	for i, t := range p.NAC {
		if err := t.validate(); err != nil {
			return fmt.Errorf("nac template %d: %w", i, err)
		}
	}
	return nil
}

func (t Template) validate() error {
	names := [4]string{"source", "attribute", "value", "context"}
	for i, f := range t.Fields() {
		switch fld := f.(type) {
		case nil:
			return fmt.Errorf("%s field is nil", names[i])
		case Literal:
			if fld.Val == nil {
				return fmt.Errorf("%s literal has nil value", names[i])
			}
		case Variable:
			if fld.Name == "" {
				return fmt.Errorf("%s variable has empty name", names[i])
			}
		case Wildcard:
			// always well-formed
		default:
			return fmt.Errorf("%s field has unsupported kind %T", names[i], f)
		}
	}
	return nil
}

// DisplayTemplates renders a template list as "[...] [...] [...]".
// Used for rule reification meta-facts.
func DisplayTemplates(ts []Template) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.Display())
	}
	return strings.Join(parts, " ")
}
