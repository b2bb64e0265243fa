package engine

import (
	"sync"

	"github.com/google/uuid"
)

// CycleTokenGenerator generates the correlation token stamped on every
// transcript and queued build plan of one evaluation cycle.
type CycleTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 cycle tokens, so the audit
// log sorts by cycle start when listed by token.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined cycle tokens in order, for tests
// that run several cycles and compare their audit output.
//
// Safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewSequenceGenerator creates a generator that returns tokens in order.
func NewSequenceGenerator(tokens ...string) *SequenceGenerator {
	return &SequenceGenerator{tokens: tokens}
}

// Generate returns the next token.
// Panics once every token has been used; a test that runs more cycles
// than it planned is misconfigured.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("SequenceGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
