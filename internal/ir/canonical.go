package ir

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EncodeValue produces the canonical tagged text form of a value.
// CRITICAL: this is the ONLY serialization used for identity computation
// (quad keys, commit ids, binding hashes) and for snapshot rows.
//
// Forms:
//
//	w:alice      word
//	s:"hi\n"     string, Go-quoted
//	i:42         int
//	b:true       bool
//
// Word and String payloads are NFC normalized first, so visually identical
// text always encodes (and therefore hashes) identically.
func EncodeValue(v Value) string {
	switch val := v.(type) {
	case Word:
		return "w:" + norm.NFC.String(string(val))
	case String:
		return "s:" + strconv.Quote(norm.NFC.String(string(val)))
	case Int:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case Bool:
		return "b:" + strconv.FormatBool(bool(val))
	default:
		panic(fmt.Sprintf("ir: unknown Value type %T", v))
	}
}

// DecodeValue parses the canonical tagged form back into a Value.
// Inverse of EncodeValue; returns an error on any unrecognized tag or
// malformed payload.
func DecodeValue(enc string) (Value, error) {
	tag, payload, ok := strings.Cut(enc, ":")
	if !ok {
		return nil, fmt.Errorf("decode value %q: missing tag", enc)
	}
	switch tag {
	case "w":
		return Word(payload), nil
	case "s":
		s, err := strconv.Unquote(payload)
		if err != nil {
			return nil, fmt.Errorf("decode string value %q: %w", enc, err)
		}
		return String(s), nil
	case "i":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode int value %q: %w", enc, err)
		}
		return Int(n), nil
	case "b":
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return nil, fmt.Errorf("decode bool value %q: %w", enc, err)
		}
		return Bool(b), nil
	default:
		return nil, fmt.Errorf("decode value %q: unknown tag %q", enc, tag)
	}
}

// EncodeQuad produces the canonical form of a quad's four fields, joined by
// a newline that cannot occur inside an encoded word or int and is escaped
// inside encoded strings. The sequence number is intentionally excluded:
// identity is the 4-tuple, not its position in the log.
func EncodeQuad(q Quad) string {
	return EncodeValue(q.Source) + "\n" +
		EncodeValue(q.Attribute) + "\n" +
		EncodeValue(q.Value) + "\n" +
		EncodeValue(q.Context)
}
