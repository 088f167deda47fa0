// Package ir defines the value and template model shared by every layer
// of minigraph.
//
// Stored facts are quads of atomic values. Values form a sealed variant:
// Word (bareword identifier), String, Int, and Bool. Floats are forbidden -
// they break deterministic canonical encoding and content addressing.
//
// Patterns are built from templates whose fields form a second sealed
// variant: Literal, Wildcard, or Variable. Matching semantics live in
// internal/graph; this package only defines structure, equality, canonical
// encoding, and content hashing.
//
// Canonical encoding (canonical.go) is the ONLY serialization used for
// identity: quad dedup keys, commit ids, and binding hashes all derive from
// it. Strings are NFC normalized so visually identical values hash equal.
package ir
