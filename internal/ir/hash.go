package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Domain prefixes for content-addressed identity. Version suffix enables
// future algorithm migration.
const (
	DomainQuad    = "minigraph/quad/v1"
	DomainCommit  = "minigraph/commit/v1"
	DomainBinding = "minigraph/binding/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QuadKey computes the content key of a quad's 4-tuple. The fact log uses
// it for exact-identity dedup: two appends with the same key are one fact.
func QuadKey(q Quad) string {
	return hashWithDomain(DomainQuad, []byte(EncodeQuad(q)))
}

// CommitID computes the content id of a snapshot: the quads' canonical
// encodings concatenated in log order, hashed under the commit domain.
// The same log contents always produce the same commit id.
func CommitID(quads []Quad) string {
	h := sha256.New()
	h.Write([]byte(DomainCommit))
	h.Write([]byte{0x00})
	for _, q := range quads {
		h.Write([]byte(EncodeQuad(q)))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BindingKey computes a stable key for a set of variable bindings, with
// names sorted so map iteration order cannot leak into the hash. Used by
// tests and the harness to dedup and order match traces.
func BindingKey(names []string, lookup func(string) (Value, bool)) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(DomainBinding))
	h.Write([]byte{0x00})
	for _, name := range sorted {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		h.Write([]byte(name))
		h.Write([]byte{0x00})
		h.Write([]byte(EncodeValue(v)))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}
