package ir

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface over the atomic kinds a quad field may hold.
// Only Word, String, Int, and Bool implement it. NO floats - floats break
// deterministic canonical encoding.
//
// All implementations are comparable, so two Values are equal exactly when
// their dynamic types and payloads are equal. Word("x") and String("x") are
// distinct values.
type Value interface {
	value() // Sealed - only these types implement it

	// Display returns the human-facing form used by CLI text output and
	// template serialization. Words print bare, strings print quoted.
	Display() string
}

// Word is a bareword identifier, e.g. alice or room/light.
type Word string

func (Word) value() {}

// Display returns the identifier unquoted.
func (w Word) Display() string { return string(w) }

// String is an arbitrary text value.
type String string

func (String) value() {}

// Display returns the text in double quotes.
func (s String) Display() string { return strconv.Quote(string(s)) }

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Display returns the decimal form.
func (i Int) Display() string { return strconv.FormatInt(int64(i), 10) }

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Display returns "true" or "false".
func (b Bool) Display() string { return strconv.FormatBool(bool(b)) }

// ValueKind names a Value variant. Used for diagnostics and snapshot rows.
type ValueKind string

const (
	KindWord   ValueKind = "word"
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindBool   ValueKind = "bool"
)

// Kind returns the variant tag of v. Panics on a foreign implementation,
// which the sealed interface makes impossible outside this package.
func Kind(v Value) ValueKind {
	switch v.(type) {
	case Word:
		return KindWord
	case String:
		return KindString
	case Int:
		return KindInt
	case Bool:
		return KindBool
	default:
		panic(fmt.Sprintf("ir: unknown Value type %T", v))
	}
}

// W, Str, I, and B are shorthand constructors. They keep template and fact
// literals readable at call sites, especially in tests.
func W(s string) Word     { return Word(s) }
func Str(s string) String { return String(s) }
func I(n int64) Int       { return Int(n) }
func B(b bool) Bool       { return Bool(b) }
