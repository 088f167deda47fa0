package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/minigraph/internal/ir"
)

// PatternError reports a malformed pattern, detected when a Query or Watch
// is constructed - never per fact, so a bad template fails fast instead of
// corrupting index state. Callers must treat it as fatal to that call: fix
// the template and retry.
type PatternError struct {
	// Pattern is the rejected pattern, for diagnostics.
	Pattern ir.Pattern

	// Err describes which template field is malformed.
	Err error
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("malformed pattern: %v", e.Err)
}

// Unwrap returns the underlying validation error.
func (e *PatternError) Unwrap() error { return e.Err }

// IsPatternError reports whether err is (or wraps) a PatternError.
func IsPatternError(err error) bool {
	var pe *PatternError
	return errors.As(err, &pe)
}

// BatchError wraps the failure raised inside a Batch body. By the time the
// caller sees it, rollback and replay have already completed: the log and
// every matcher are back in a consistent pre-batch state, so the error is
// recoverable.
type BatchError struct {
	// Err is the original failure from the batch body, unchanged.
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch failed (rolled back): %v", e.Err)
}

// Unwrap returns the original body error.
func (e *BatchError) Unwrap() error { return e.Err }

// IsBatchError reports whether err is (or wraps) a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// ErrNestedBatch is returned when Batch is called from inside a running
// batch body. The log has exactly one buffering scope; nesting would make
// the rollback length ambiguous.
var ErrNestedBatch = errors.New("graph: nested batch")
