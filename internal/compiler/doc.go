// Package compiler turns CUE program sources into graph operations.
//
// A program is a CUE file with up to four top-level sections:
//
//	insert: [
//	    ["alice", "likes", "bob"],            // context auto-assigned
//	    ["alice", "age", 30, "census"],       // explicit context
//	]
//	rule: "becomes-b": {
//	    match:   [["?x", "type", "A"]]
//	    produce: [["?x", "type", "B"]]
//	    not:     [["?x", "type", "B"]]        // optional NAC
//	}
//	query: chain: [["?x", "likes", "?y"], ["?y", "likes", "?z"]]
//	disable: ["becomes-b"]
//
// Field syntax: "?name" is a variable, "_" is a wildcard, ints and bools
// are literals of their kind, and any other string is a word literal when
// it is identifier-shaped (letters, digits, '_', '/', '-', '.') or a text
// string otherwise. The prefixes "word:" and "str:" force a kind when the
// shape rule is not what was meant. Insert rows must be fully ground.
//
// The compiler never touches engine internals: Execute drives everything
// through the four public graph operations (inserts run inside one Batch,
// rules register watches, queries evaluate one-shot) plus the rule
// registry's disable meta-fact.
package compiler
