package ir

// Field is a sealed interface over the kinds a template position may hold:
// Literal (exact value), Wildcard (matches anything, binds nothing), or
// Variable (binds on first occurrence, requires equality afterwards).
type Field interface {
	field() // Sealed - only these types implement it

	// Display returns the source form: literals print as their value,
	// wildcards as "_", variables as "?name".
	Display() string
}

// Literal matches only its exact value.
type Literal struct {
	Val Value
}

func (Literal) field() {}

// Display returns the wrapped value's display form.
func (l Literal) Display() string { return l.Val.Display() }

// Wildcard matches any value and binds nothing.
type Wildcard struct{}

func (Wildcard) field() {}

// Display returns "_".
func (Wildcard) Display() string { return "_" }

// Variable matches any value; the first occurrence binds it in the match
// environment, later occurrences require equality with the bound value.
type Variable struct {
	Name string
}

func (Variable) field() {}

// Display returns "?name".
func (v Variable) Display() string { return "?" + v.Name }

// Lit wraps a value as a literal field.
func Lit(v Value) Literal { return Literal{Val: v} }

// Var names a variable field.
func Var(name string) Variable { return Variable{Name: name} }

// Any is the wildcard field.
var Any = Wildcard{}

// IsGround reports whether f is a literal (neither wildcard nor variable).
func IsGround(f Field) bool {
	_, ok := f.(Literal)
	return ok
}
