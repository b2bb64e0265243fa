package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	token := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err, "token should be valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, token)
}

func TestUUIDv7Generator_Uniqueness(t *testing.T) {
	gen := UUIDv7Generator{}
	const iterations = 1000

	seen := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		token := gen.Generate()
		require.False(t, seen[token], "token %s generated twice", token)
		seen[token] = true
	}
}

func TestSequenceGenerator_InOrder(t *testing.T) {
	gen := NewSequenceGenerator("cycle-1", "cycle-2")

	assert.Equal(t, "cycle-1", gen.Generate())
	assert.Equal(t, "cycle-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = uuid.NewString()
	}
	gen := NewSequenceGenerator(tokens...)

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < len(tokens); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := gen.Generate()
			mu.Lock()
			seen[tok] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, len(tokens))
}
