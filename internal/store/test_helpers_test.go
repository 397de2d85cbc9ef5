package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/brplusa/spacelink/internal/space"
)

// createTestStore creates a new store in a temp dir. The backing file is not
// created until the first write.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), space.StoreFileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createInitializedStore creates a store whose backing file exists.
func createInitializedStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() failed: %v", err)
	}
	return s
}

// createTestRecord creates a record with minimal required fields.
func createTestRecord(id string, peers ...string) space.Record {
	return space.Record{
		ID:           id,
		Name:         "Space " + id,
		Number:       id,
		GroupID:      "test-group",
		ConnectedIDs: peers,
		Specified:    space.Airflow{Supply: 120, Return: 80, Exhaust: 40},
	}
}

// getTableColumns returns column names for a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("failed to get columns for %s: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column name: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
