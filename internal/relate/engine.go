package relate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/brplusa/spacelink/internal/space"
	"github.com/brplusa/spacelink/internal/store"
)

// Store is the keyed collection the engine works on. *store.Store implements it.
type Store interface {
	Find(ctx context.Context, id string) (space.Record, bool, error)
	FindPeers(ctx context.Context, id string) ([]space.Record, error)
	Contains(ctx context.Context, id string) (bool, error)
	All(ctx context.Context) ([]space.Record, error)
	InsertMany(ctx context.Context, records []space.Record) error
	Update(ctx context.Context, rec space.Record) error
	Delete(ctx context.Context, id string) error
}

var _ Store = (*store.Store)(nil)

// Engine creates and breaks connection groups.
type Engine struct {
	store     Store
	tokens    GroupTokenGenerator
	logger    *slog.Logger
	tracers   trace.TracerProvider
	meters    metric.MeterProvider
	telemetry *telemetry
}

// Option configures an Engine.
type Option func(*Engine)

// WithGroupTokens sets the generator for group tokens.
// Defaults to UUIDv7Generator.
func WithGroupTokens(g GroupTokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracerProvider sets the provider of the span tracer.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracers = tp }
}

// WithMeterProvider sets the provider of the operation metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meters = mp }
}

// New creates an engine over st.
func New(st Store, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		tokens:  UUIDv7Generator{},
		logger:  slog.Default(),
		tracers: otel.GetTracerProvider(),
		meters:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(e)
	}

	t, err := newTelemetry(e.tracers, e.meters)
	if err != nil {
		e.logger.Warn("telemetry disabled", "error", err)
		t = noopTelemetry()
	}
	e.telemetry = t
	return e
}

// CreateGroup connects every space in spaces to every other one.
//
// The group must hold at least two distinct spaces. If none of them is
// tracked, one record per space is inserted in a single transaction that
// also ensures the id index, each connected to all the others but never to
// itself. If any of them is already tracked the call fails with
// ErrCodeGroupMergeUnsupported and nothing is written.
func (e *Engine) CreateGroup(ctx context.Context, spaces []space.External) (err error) {
	const op = "CreateGroup"
	ctx, span := e.telemetry.startOperation(ctx, op, attribute.Int("relate.spaces", len(spaces)))
	start := time.Now()
	defer func() { e.telemetry.endOperation(ctx, span, op, start, err) }()
	defer recoverInto(&err, op)

	ids, err := validateGroup(op, spaces)
	if err != nil {
		return err
	}

	tracked, err := e.trackedAmong(ctx, ids)
	if err != nil {
		return classify(op, ids, err)
	}
	if len(tracked) > 0 {
		e.logger.Warn("group merge requested",
			"tracked", tracked,
			"spaces", ids,
		)
		return &Error{
			Code:     ErrCodeGroupMergeUnsupported,
			Op:       op,
			Message:  "some spaces are already connected to other spaces",
			SpaceIDs: tracked,
		}
	}

	groupID := e.tokens.Generate()
	records := make([]space.Record, 0, len(spaces))
	for _, ext := range spaces {
		records = append(records, space.NewRecord(ext, groupID, ids))
	}

	if err := e.store.InsertMany(ctx, records); err != nil {
		return classify(op, ids, err)
	}

	e.logger.Info("group created",
		"group_id", groupID,
		"spaces", ids,
	)
	return nil
}

// validateGroup checks that spaces can form a group and returns their ids in
// input order.
func validateGroup(op string, spaces []space.External) ([]string, error) {
	ids := make([]string, 0, len(spaces))
	seen := make(map[string]bool, len(spaces))
	var repeated []string
	for _, ext := range spaces {
		if err := ext.Validate(); err != nil {
			return nil, &Error{Code: ErrCodeInvalidGroup, Op: op, Err: err}
		}
		if seen[ext.ID] {
			repeated = append(repeated, ext.ID)
			continue
		}
		seen[ext.ID] = true
		ids = append(ids, ext.ID)
	}
	if len(repeated) > 0 {
		return nil, &Error{
			Code:     ErrCodeInvalidGroup,
			Op:       op,
			Message:  "space selected more than once",
			SpaceIDs: repeated,
		}
	}
	if len(ids) < 2 {
		return nil, &Error{
			Code:     ErrCodeInvalidGroup,
			Op:       op,
			Message:  fmt.Sprintf("a group needs at least 2 spaces, got %d", len(ids)),
			SpaceIDs: ids,
		}
	}
	return ids, nil
}

// trackedAmong returns the ids that are already tracked.
func (e *Engine) trackedAmong(ctx context.Context, ids []string) ([]string, error) {
	var tracked []string
	for _, id := range ids {
		found, err := e.store.Contains(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			tracked = append(tracked, id)
		}
	}
	return tracked, nil
}

// BreakGroup disconnects every id with BreakOne.
//
// Every id is attempted even after a failure. If any fails, the returned
// *BatchError lists what was broken and what failed; broken entries are not
// restored.
func (e *Engine) BreakGroup(ctx context.Context, ids ...string) (err error) {
	const op = "BreakGroup"
	ctx, span := e.telemetry.startOperation(ctx, op, attribute.Int("relate.spaces", len(ids)))
	start := time.Now()
	defer func() { e.telemetry.endOperation(ctx, span, op, start, err) }()
	defer recoverInto(&err, op)

	batch := &BatchError{}
	for _, id := range ids {
		if err := e.BreakOne(ctx, id); err != nil {
			batch.Failed = append(batch.Failed, Failure{ID: id, Err: err})
			continue
		}
		batch.Broken = append(batch.Broken, id)
	}

	if len(batch.Failed) > 0 {
		e.logger.Warn("break group incomplete",
			"broken", batch.Broken,
			"failed", len(batch.Failed),
		)
		return batch
	}
	return nil
}

// BreakOne removes id from the store and strips it from every peer.
//
// An untracked id fails with ErrCodeNotFound. Once the record is deleted the
// operation is best-effort: every peer is attempted, and peers that could not
// be updated are reported together as ErrCodeCleanupIncomplete.
func (e *Engine) BreakOne(ctx context.Context, id string) (err error) {
	const op = "BreakOne"
	ctx, span := e.telemetry.startOperation(ctx, op, attribute.String("relate.space", id))
	start := time.Now()
	defer func() { e.telemetry.endOperation(ctx, span, op, start, err) }()
	defer recoverInto(&err, op)

	rec, found, err := e.store.Find(ctx, id)
	if err != nil {
		return classify(op, []string{id}, err)
	}
	if !found {
		return &Error{Code: ErrCodeNotFound, Op: op, Message: "space is not tracked", SpaceIDs: []string{id}}
	}

	peers := rec.ConnectedIDs

	if err := e.store.Delete(ctx, id); err != nil {
		return classify(op, []string{id}, err)
	}

	var (
		errs  []error
		stale []string
	)
	for _, peerID := range peers {
		if err := e.detach(ctx, peerID, id); err != nil {
			errs = append(errs, err)
			stale = append(stale, peerID)
		}
	}
	if len(errs) > 0 {
		e.logger.Error("disconnect left stale peers",
			"space", id,
			"peers", stale,
		)
		return &Error{
			Code:     ErrCodeCleanupIncomplete,
			Op:       op,
			Message:  fmt.Sprintf("space %s removed but peers still reference it", id),
			SpaceIDs: stale,
			Err:      errors.Join(errs...),
		}
	}

	e.logger.Info("space disconnected",
		"space", id,
		"peers", peers,
	)
	return nil
}

// detach removes removedID from peerID's connections.
// A peer that no longer exists holds no edge and is skipped.
func (e *Engine) detach(ctx context.Context, peerID, removedID string) error {
	peer, found, err := e.store.Find(ctx, peerID)
	if err != nil {
		return fmt.Errorf("peer %s: %w", peerID, err)
	}
	if !found {
		e.logger.Warn("peer already missing", "space", removedID, "peer", peerID)
		return nil
	}
	if !peer.Disconnect(removedID) {
		e.logger.Debug("peer was not connected back", "space", removedID, "peer", peerID)
		return nil
	}
	if err := e.store.Update(ctx, peer); err != nil {
		return fmt.Errorf("peer %s: %w", peerID, err)
	}
	return nil
}

// IsTracked reports whether id is tracked. Callers use it before CreateGroup
// to route selections that contain tracked spaces elsewhere.
func (e *Engine) IsTracked(ctx context.Context, id string) (bool, error) {
	found, err := e.store.Contains(ctx, id)
	if err != nil {
		return false, classify("IsTracked", []string{id}, err)
	}
	return found, nil
}

// Find returns the record for id, with found=false if it is not tracked.
func (e *Engine) Find(ctx context.Context, id string) (space.Record, bool, error) {
	rec, found, err := e.store.Find(ctx, id)
	if err != nil {
		return space.Record{}, false, classify("Find", []string{id}, err)
	}
	return rec, found, nil
}

// FindPeers returns the peer records of id. An untracked id fails with
// ErrCodeNotFound.
func (e *Engine) FindPeers(ctx context.Context, id string) ([]space.Record, error) {
	peers, err := e.store.FindPeers(ctx, id)
	if err != nil {
		return nil, classify("FindPeers", []string{id}, err)
	}
	return peers, nil
}

// Group returns the record for id followed by its peers.
func (e *Engine) Group(ctx context.Context, id string) ([]space.Record, error) {
	rec, found, err := e.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &Error{Code: ErrCodeNotFound, Op: "Group", Message: "space is not tracked", SpaceIDs: []string{id}}
	}
	peers, err := e.FindPeers(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]space.Record{rec}, peers...), nil
}
