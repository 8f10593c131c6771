package store

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// KeyGenerator produces entity keys.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock is a monotonic logical clock stamping every flushed write.
// Ordering by revision never depends on wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock resuming after start.
// Open uses the highest stored revision so revisions keep increasing across runs.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next revision and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued revision without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
