package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brplusa/spacelink/internal/space"
)

// InsertMany inserts records in a single transaction.
//
// If any id already exists in the store, or appears twice in records, the
// whole batch is rejected with a *DuplicateKeyError and nothing is written.
// The id index is ensured in the same transaction, so a committed batch is
// always indexed.
func (s *Store) InsertMany(ctx context.Context, records []space.Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(records))
	var repeated []string
	for _, rec := range records {
		if seen[rec.ID] {
			repeated = append(repeated, rec.ID)
		}
		seen[rec.ID] = true
	}
	if len(repeated) > 0 {
		return fmt.Errorf("insert spaces: %w", &DuplicateKeyError{IDs: repeated})
	}

	db, err := s.writer()
	if err != nil {
		return fmt.Errorf("insert spaces: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert spaces: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Check every id up front so the error names all offenders
	var existing []string
	for _, rec := range records {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM spaces WHERE id = ?`, rec.ID).Scan(&one)
		switch {
		case err == nil:
			existing = append(existing, rec.ID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("insert spaces: check %s: %w", rec.ID, err)
		}
	}
	if len(existing) > 0 {
		return fmt.Errorf("insert spaces: %w", &DuplicateKeyError{IDs: existing})
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spaces
		(id, name, number, group_id, connected_ids, specified_supply, specified_return, specified_exhaust)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert spaces: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		connected, err := marshalConnected(rec.ConnectedIDs)
		if err != nil {
			return fmt.Errorf("insert spaces: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID,
			rec.Name,
			rec.Number,
			rec.GroupID,
			connected,
			rec.Specified.Supply,
			rec.Specified.Return,
			rec.Specified.Exhaust,
		)
		if isKeyViolation(err) {
			return fmt.Errorf("insert spaces: %w", &DuplicateKeyError{IDs: []string{rec.ID}})
		}
		if err != nil {
			return fmt.Errorf("insert spaces: %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("insert spaces: ensure index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert spaces: commit: %w", err)
	}
	return nil
}

// Update replaces every mutable field of the record with the same id.
// Returns ErrNotFound if the id is not tracked.
func (s *Store) Update(ctx context.Context, rec space.Record) error {
	db, err := s.reader()
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	if db == nil {
		return fmt.Errorf("update space %s: %w", rec.ID, ErrNotFound)
	}

	connected, err := marshalConnected(rec.ConnectedIDs)
	if err != nil {
		return fmt.Errorf("update space %s: %w", rec.ID, err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE spaces
		SET name = ?, number = ?, group_id = ?, connected_ids = ?,
		    specified_supply = ?, specified_return = ?, specified_exhaust = ?
		WHERE id = ?
	`,
		rec.Name,
		rec.Number,
		rec.GroupID,
		connected,
		rec.Specified.Supply,
		rec.Specified.Return,
		rec.Specified.Exhaust,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update space %s: %w", rec.ID, err)
	}
	return requireAffected(result, "update space", rec.ID)
}

// Delete removes the record with the given id. Peers are not touched.
// Returns ErrNotFound if the id is not tracked.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.reader()
	if err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	if db == nil {
		return fmt.Errorf("delete space %s: %w", id, ErrNotFound)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM spaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete space %s: %w", id, err)
	}
	return requireAffected(result, "delete space", id)
}

func requireAffected(result sql.Result, op, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
