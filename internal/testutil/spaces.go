// Package testutil provides shared fixtures for spacelink tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/brplusa/spacelink/internal/space"
	"github.com/brplusa/spacelink/internal/store"
)

// Space returns an external space with the given id and design airflows.
// Name and number are derived from the id.
func Space(id string, supply, ret, exhaust float64) space.External {
	return space.External{
		ID:     id,
		Name:   "Space " + id,
		Number: id,
		Design: space.Airflow{Supply: supply, Return: ret, Exhaust: exhaust},
	}
}

// Spaces returns external spaces for ids, all with the same default airflows
// (supply 120, return 80, exhaust 40).
func Spaces(ids ...string) []space.External {
	out := make([]space.External, len(ids))
	for i, id := range ids {
		out[i] = Space(id, 120, 80, 40)
	}
	return out
}

// OpenStore opens a store at a fresh path inside t.TempDir() and closes it
// when the test ends.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), space.StoreFileName))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
