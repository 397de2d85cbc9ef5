// Package drift decides whether the specified airflows cached for a tracked
// space have drifted from the current design values, and refreshes them.
//
// Comparison is exact by default: a field has drifted when the fresh value is
// not == the cached one. Values persisted through SQLite REAL columns round
// trip without loss, so exact comparison is stable across sessions. The one
// exception is the sign of zero: SQLite stores -0.0 as 0.0, so the comparison
// is IEEE-754 ==, under which -0.0 and 0.0 are equal. A bitwise comparison
// would report drift that no sync could clear. Callers
// that compare computed design values can opt into an absolute tolerance with
// WithTolerance; doing so changes which spaces NeedsUpdate reports.
package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/brplusa/spacelink/internal/space"
)

// ErrNotTracked is returned when the space id is not in the store.
var ErrNotTracked = errors.New("space is not tracked")

// Store is the subset of the relationship store the detector needs.
// *store.Store implements it.
type Store interface {
	Find(ctx context.Context, id string) (space.Record, bool, error)
	Update(ctx context.Context, rec space.Record) error
}

// Report holds the per-field outcome of a comparison.
type Report struct {
	ID        string        `json:"id"`
	Supply    bool          `json:"supply"`
	Return    bool          `json:"return"`
	Exhaust   bool          `json:"exhaust"`
	Specified space.Airflow `json:"specified"`
	Design    space.Airflow `json:"design"`
}

// NeedsUpdate reports whether any of the three fields drifted.
func (r Report) NeedsUpdate() bool {
	return r.Supply || r.Return || r.Exhaust
}

// Detector compares cached values against fresh design values.
type Detector struct {
	store     Store
	tolerance float64
	logger    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithTolerance treats values within tol of each other as equal.
// A tolerance of 0 (the default) means exact equality. Negative values are
// treated as 0.
func WithTolerance(tol float64) Option {
	return func(d *Detector) { d.tolerance = math.Max(tol, 0) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// New creates a detector over st.
func New(st Store, opts ...Option) *Detector {
	d := &Detector{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tolerance returns the configured tolerance.
func (d *Detector) Tolerance() float64 {
	return d.tolerance
}

// Compare looks up id and compares each cached field with fresh.
func (d *Detector) Compare(ctx context.Context, id string, fresh space.Airflow) (Report, error) {
	rec, err := d.lookup(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return Report{
		ID:        id,
		Supply:    d.differs(rec.Specified.Supply, fresh.Supply),
		Return:    d.differs(rec.Specified.Return, fresh.Return),
		Exhaust:   d.differs(rec.Specified.Exhaust, fresh.Exhaust),
		Specified: rec.Specified,
		Design:    fresh,
	}, nil
}

// NeedsUpdate reports whether at least one of supply, return or exhaust in
// fresh differs from the cached value of id. It has no side effects, so
// repeated calls give the same answer until ApplyUpdate runs.
func (d *Detector) NeedsUpdate(ctx context.Context, id string, fresh space.Airflow) (bool, error) {
	report, err := d.Compare(ctx, id, fresh)
	if err != nil {
		return false, err
	}
	return report.NeedsUpdate(), nil
}

// ApplyUpdate overwrites the cached values of id with fresh.
// Peer connections are left untouched.
func (d *Detector) ApplyUpdate(ctx context.Context, id string, fresh space.Airflow) error {
	rec, err := d.lookup(ctx, id)
	if err != nil {
		return err
	}

	previous := rec.Specified
	rec.Specified = fresh
	if err := d.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("apply update %s: %w", id, err)
	}

	d.logger.Info("specified airflow updated",
		"space", id,
		"previous", previous,
		"current", fresh,
	)
	return nil
}

func (d *Detector) lookup(ctx context.Context, id string) (space.Record, error) {
	rec, found, err := d.store.Find(ctx, id)
	if err != nil {
		return space.Record{}, fmt.Errorf("lookup %s: %w", id, err)
	}
	if !found {
		return space.Record{}, fmt.Errorf("lookup %s: %w", id, ErrNotTracked)
	}
	return rec, nil
}

func (d *Detector) differs(cached, fresh float64) bool {
	if d.tolerance == 0 {
		return cached != fresh
	}
	return math.Abs(cached-fresh) > d.tolerance
}
