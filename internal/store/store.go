package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// indexSQL creates the secondary lookup index on space ids.
const indexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_spaces_id ON spaces(id)`

var (
	// ErrNotFound is returned when a space id is not tracked.
	ErrNotFound = errors.New("space not found")

	// ErrDuplicateKey is matched by *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate space id")

	// ErrDanglingEdge is returned when a peer id does not resolve to a record.
	ErrDanglingEdge = errors.New("dangling connection")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrEmptyPath is returned by Open when no file path is given.
	ErrEmptyPath = errors.New("failed to open database: empty path")
)

// DuplicateKeyError reports the ids that made an insert fail.
// Nothing from the rejected batch is written.
type DuplicateKeyError struct {
	IDs []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDuplicateKey, e.IDs)
}

// Is makes errors.Is(err, ErrDuplicateKey) true.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// Store provides durable storage for space records in a single SQLite file.
type Store struct {
	path   string
	db     *sql.DB
	closed bool
}

// Open prepares a store backed by the SQLite file at path.
//
// If the file exists it is opened immediately; otherwise the file is created on
// the first write. The path must not be empty and its parent directory must
// exist.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	// The driver treats "" as a private temporary database
	if path == "" {
		return nil, ErrEmptyPath
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open database: %s is not a directory", dir)
	}

	s := &Store{path: path}
	if _, err := s.reader(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection. Safe to call on a store whose file
// was never created, and safe to call more than once.
func (s *Store) Close() error {
	s.closed = true
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Path returns the path of the backing file.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sql.DB for direct queries, or nil if the backing
// file has not been created yet.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Exists reports whether the backing file has been created.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// reader returns the connection for read operations. It returns a nil
// connection without error when the backing file has not been created yet.
func (s *Store) reader() (*sql.DB, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.db != nil {
		return s.db, nil
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s.db, nil
}

// writer returns the connection for write operations, creating the backing
// file if needed.
func (s *Store) writer() (*sql.DB, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.db == nil {
		if err := s.connect(); err != nil {
			return nil, err
		}
	}
	return s.db, nil
}

func (s *Store) connect() error {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// EnsureIndex creates the secondary index on space ids.
// Idempotent. InsertMany already ensures it; this is for stores written by
// other tools.
func (s *Store) EnsureIndex(ctx context.Context) error {
	db, err := s.writer()
	if err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// isKeyViolation reports whether err is a SQLite primary key or unique
// constraint failure.
func isKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
