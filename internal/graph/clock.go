package graph

// Clock is the monotonic logical clock that stamps every stored quad.
//
// Sequence numbers are strictly increasing and never reused, which makes
// log order explicit and replay deterministic. The batch rollback path
// restores the clock to its pre-batch position along with the log.
//
// The engine is single-threaded, so plain integer arithmetic suffices;
// there is no concurrent caller to guard against.
type Clock struct {
	seq int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific sequence number.
// Used by snapshot restore to continue numbering where a commit left off.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq
}

// Rewind moves the clock back to a previously observed position.
// Only the batch rollback path calls this.
func (c *Clock) Rewind(to int64) {
	c.seq = to
}
