package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates predictable entity keys for tests and golden traces.
//
// Keys are the prefix followed by a zero-padded counter: "key-0001", "key-0002".
// Unlike store.UUIDv7Generator, SequentialKeys can be reset so the same
// scenario produces byte-identical output on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeys creates a key generator. An empty prefix means "key".
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &SequentialKeys{prefix: prefix}
}

// Generate returns the next key.
//
// Implements store.KeyGenerator.
func (g *SequentialKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Issued returns how many keys have been generated since the last Reset.
func (g *SequentialKeys) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. The next key is "<prefix>-0001".
func (g *SequentialKeys) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
