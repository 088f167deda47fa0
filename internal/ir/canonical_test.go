package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue_TaggedForms(t *testing.T) {
	assert.Equal(t, "w:alice", EncodeValue(W("alice")))
	assert.Equal(t, `s:"hi"`, EncodeValue(Str("hi")))
	assert.Equal(t, "i:42", EncodeValue(I(42)))
	assert.Equal(t, "b:true", EncodeValue(B(true)))
}

func TestEncodeValue_KindsNeverCollide(t *testing.T) {
	assert.NotEqual(t, EncodeValue(W("true")), EncodeValue(B(true)))
	assert.NotEqual(t, EncodeValue(W("1")), EncodeValue(I(1)))
	assert.NotEqual(t, EncodeValue(W("x")), EncodeValue(Str("x")))
}

func TestEncodeValue_NFCNormalization(t *testing.T) {
	// "é" precomposed vs combining sequence must encode identically
	composed := Str("café")
	decomposed := Str("café")
	assert.Equal(t, EncodeValue(composed), EncodeValue(decomposed))
}

func TestDecodeValue_RoundTrip(t *testing.T) {
	values := []Value{
		W("alice"),
		W("room/light-1"),
		Str("hello\nworld"),
		Str(""),
		I(-99),
		B(false),
	}
	for _, v := range values {
		got, err := DecodeValue(EncodeValue(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDecodeValue_Malformed(t *testing.T) {
	for _, enc := range []string{"", "alice", "x:1", "i:nope", "b:maybe", `s:unquoted`} {
		_, err := DecodeValue(enc)
		assert.Error(t, err, "input %q", enc)
	}
}

func TestQuadKey_IgnoresSequenceNumber(t *testing.T) {
	a := Quad{Source: W("s"), Attribute: W("a"), Value: I(1), Context: W("c"), Seq: 1}
	b := a
	b.Seq = 99
	assert.Equal(t, QuadKey(a), QuadKey(b))
}

func TestQuadKey_SensitiveToEveryField(t *testing.T) {
	base := Quad{Source: W("s"), Attribute: W("a"), Value: I(1), Context: W("c")}
	variants := []Quad{
		{Source: W("x"), Attribute: W("a"), Value: I(1), Context: W("c")},
		{Source: W("s"), Attribute: W("x"), Value: I(1), Context: W("c")},
		{Source: W("s"), Attribute: W("a"), Value: I(2), Context: W("c")},
		{Source: W("s"), Attribute: W("a"), Value: I(1), Context: W("x")},
	}
	for _, v := range variants {
		assert.NotEqual(t, QuadKey(base), QuadKey(v))
	}
}

func TestCommitID_DependsOnOrder(t *testing.T) {
	q1 := Quad{Source: W("a"), Attribute: W("p"), Value: I(1), Context: W("c")}
	q2 := Quad{Source: W("b"), Attribute: W("p"), Value: I(2), Context: W("c")}

	assert.Equal(t, CommitID([]Quad{q1, q2}), CommitID([]Quad{q1, q2}))
	assert.NotEqual(t, CommitID([]Quad{q1, q2}), CommitID([]Quad{q2, q1}))
	assert.NotEqual(t, CommitID(nil), CommitID([]Quad{q1}))
}

func TestBindingKey_OrderIndependent(t *testing.T) {
	vals := map[string]Value{"x": W("alice"), "y": I(3)}
	lookup := func(name string) (Value, bool) {
		v, ok := vals[name]
		return v, ok
	}
	assert.Equal(t,
		BindingKey([]string{"x", "y"}, lookup),
		BindingKey([]string{"y", "x"}, lookup),
	)
}
