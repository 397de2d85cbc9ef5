package testutil

import (
	"fmt"
	"sync"
)

// FixedGroupGenerator generates the same group token every time.
//
// Unlike relate.FixedGenerator which returns tokens in sequence, this
// generator never runs out. Scenarios with a single group token use it to
// stamp every group with that token.
//
// Thread-safety: FixedGroupGenerator is stateless and safe for concurrent use.
type FixedGroupGenerator struct {
	token string
}

// NewFixedGroupGenerator creates a new fixed group token generator.
// If token is empty, Generate() returns "test-group-default".
func NewFixedGroupGenerator(token string) *FixedGroupGenerator {
	if token == "" {
		token = "test-group-default"
	}
	return &FixedGroupGenerator{token: token}
}

// Generate returns the fixed group token.
//
// Implements relate.GroupTokenGenerator interface.
func (g *FixedGroupGenerator) Generate() string {
	return g.token
}

// SequentialGroupGenerator generates "group-1", "group-2", ...
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialGroupGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialGroupGenerator creates a generator whose first token is "group-1".
func NewSequentialGroupGenerator() *SequentialGroupGenerator {
	return &SequentialGroupGenerator{}
}

// Generate returns the next token.
//
// Implements relate.GroupTokenGenerator interface.
func (g *SequentialGroupGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("group-%d", g.seq)
}
