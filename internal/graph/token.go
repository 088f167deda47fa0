package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/minigraph/internal/ir"
)

// TokenGenerator produces fresh context tokens for facts appended without
// an explicit context. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type TokenGenerator interface {
	Generate() ir.Value
}

// UUIDv7Generator generates time-sortable UUIDv7 context tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so auto-assigned
// contexts sort by creation time - helpful when eyeballing a dumped log.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a word value.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() ir.Value {
	return ir.Word(uuid.Must(uuid.NewV7()).String())
}

// SequenceGenerator returns "prefix-1", "prefix-2", ... without end.
// Deterministic like FixedGenerator but for runs where the number of fresh
// contexts is not known up front, such as scenario traces.
type SequenceGenerator struct {
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator with the given token prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next numbered token as a word value.
func (g *SequenceGenerator) Generate() ir.Value {
	g.n++
	return ir.Word(fmt.Sprintf("%s-%d", g.prefix, g.n))
}

// FixedGenerator returns predetermined context tokens for deterministic
// tests and golden trace comparison.
type FixedGenerator struct {
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
// Generate panics once the tokens are exhausted - fail fast on a test that
// creates more contexts than it declared.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token as a word value.
func (g *FixedGenerator) Generate() ir.Value {
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return ir.Word(token)
}
