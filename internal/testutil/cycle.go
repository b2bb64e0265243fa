package testutil

// FixedCycleGenerator generates the same cycle token every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same generator produces byte-identical
// transcripts, IDs included.
//
// Thread-safety: FixedCycleGenerator is stateless and safe for concurrent use.
type FixedCycleGenerator struct {
	token string
}

// NewFixedCycleGenerator creates a fixed cycle token generator.
// If token is empty, Generate() returns "test-cycle-default".
func NewFixedCycleGenerator(token string) *FixedCycleGenerator {
	if token == "" {
		token = "test-cycle-default"
	}
	return &FixedCycleGenerator{token: token}
}

// Generate returns the fixed cycle token.
//
// Implements engine.CycleTokenGenerator.
func (g *FixedCycleGenerator) Generate() string {
	return g.token
}
