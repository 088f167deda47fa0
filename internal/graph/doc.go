// Package graph implements the minigraph core: an in-memory quad log with
// an incremental forward-chaining pattern engine.
//
// ARCHITECTURE:
//
// Facts are (source, attribute, value, context) quads appended to an
// ordered log. Callers register patterns - template lists with optional
// negative (NAC) templates - either one-shot (Query) or persistent (Watch).
// Each matcher tracks partial matches and extends them incrementally as
// facts arrive, so a new fact costs work proportional to the partial state
// it can actually touch, not to the whole pattern set: an activation index
// routes each fact only to the matchers that could possibly care.
//
// Forward chaining is re-entrant: a watch callback may call Append, which
// notifies matchers before returning, which may fire further callbacks.
// Propagation is therefore depth-first and runs to completion inside the
// outermost Append call. There is no work queue and no cycle detection;
// non-terminating rule cycles are a caller bug, typically prevented with a
// NAC guard on the producing rule.
//
// CONCURRENCY:
//
// Strictly single-threaded and synchronous. A Graph is owned by exactly
// one goroutine; nothing here locks, suspends, or defers work. Facts are
// processed by every affected matcher in exact insertion order, including
// facts produced recursively by rule firing.
//
// RECOVERY:
//
// Batch is the only grouped mutation. Appends inside the body are buffered
// and invisible to matchers; on success they commit one at a time, each
// notifying matchers as if appended individually. On any failure the log
// is rolled back to its pre-batch length and sequence counter, and every
// registered matcher is reset and replayed from the surviving log. Replay
// cost buys the guarantee that matcher state can never diverge from log
// content after a partial failure.
package graph
