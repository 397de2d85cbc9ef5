package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brplusa/spacelink/internal/space"
)

const selectColumns = `id, name, number, group_id, connected_ids, specified_supply, specified_return, specified_exhaust`

// Find retrieves a single space by id.
// Returns found=false (and no error) if the id is not tracked or the backing
// file has not been created.
func (s *Store) Find(ctx context.Context, id string) (rec space.Record, found bool, err error) {
	db, err := s.reader()
	if err != nil {
		return space.Record{}, false, fmt.Errorf("find space: %w", err)
	}
	if db == nil {
		return space.Record{}, false, nil
	}

	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM spaces WHERE id = ?`, id)
	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return space.Record{}, false, nil
	}
	if err != nil {
		return space.Record{}, false, fmt.Errorf("find space: %w", err)
	}
	return rec, true, nil
}

// FindPeers resolves the peers of id into full records, in peer id order.
//
// Calling FindPeers on an untracked id is a precondition violation and returns
// ErrNotFound. A peer id that does not resolve returns ErrDanglingEdge.
func (s *Store) FindPeers(ctx context.Context, id string) ([]space.Record, error) {
	rec, found, err := s.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find peers: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("find peers of %s: %w", id, ErrNotFound)
	}

	peers := make([]space.Record, 0, len(rec.ConnectedIDs))
	for _, peerID := range rec.ConnectedIDs {
		peer, found, err := s.Find(ctx, peerID)
		if err != nil {
			return nil, fmt.Errorf("find peers of %s: %w", id, err)
		}
		if !found {
			return nil, fmt.Errorf("find peers of %s: peer %s: %w", id, peerID, ErrDanglingEdge)
		}
		peers = append(peers, peer)
	}
	return peers, nil
}

// Contains reports whether id is tracked.
// A backing file that was never created contains nothing.
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	db, err := s.reader()
	if err != nil {
		return false, fmt.Errorf("check space: %w", err)
	}
	if db == nil {
		return false, nil
	}

	var count int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spaces WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check space: %w", err)
	}
	return count > 0, nil
}

// All returns every tracked space ordered by id.
// Returns an empty slice (not nil) if nothing is tracked.
func (s *Store) All(ctx context.Context) ([]space.Record, error) {
	db, err := s.reader()
	if err != nil {
		return nil, fmt.Errorf("query spaces: %w", err)
	}
	if db == nil {
		return []space.Record{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM spaces
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query spaces: %w", err)
	}
	defer rows.Close()

	records := []space.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (space.Record, error) {
	var (
		rec       space.Record
		connected string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Number,
		&rec.GroupID,
		&connected,
		&rec.Specified.Supply,
		&rec.Specified.Return,
		&rec.Specified.Exhaust,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return space.Record{}, err
		}
		return space.Record{}, fmt.Errorf("scan space: %w", err)
	}

	rec.ConnectedIDs, err = unmarshalConnected(connected)
	if err != nil {
		return space.Record{}, fmt.Errorf("scan space %s: %w", rec.ID, err)
	}
	return rec, nil
}
