package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a store loaded with testdata/fixture.yaml.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	f, err := LoadFixture(filepath.Join("testdata", "fixture.yaml"))
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), f))
	return s
}
