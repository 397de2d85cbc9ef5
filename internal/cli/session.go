package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/drift"
	"github.com/brplusa/spacelink/internal/lifecycle"
	"github.com/brplusa/spacelink/internal/relate"
	"github.com/brplusa/spacelink/internal/store"
)

// Session holds the store and the services built on it for the lifetime of
// one open document. It is registered on a lifecycle.Registry.
type Session struct {
	storePath string // overrides the document's store path when set
	tolerance float64
	tokens    relate.GroupTokenGenerator
	logger    *slog.Logger

	Store    *store.Store
	Engine   *relate.Engine
	Detector *drift.Detector
}

var _ lifecycle.Updater = (*Session)(nil)

// Name implements lifecycle.Updater.
func (s *Session) Name() string { return "session" }

// Register opens the store for doc and builds the engine and detector on it.
func (s *Session) Register(_ context.Context, doc lifecycle.Document) error {
	path := s.storePath
	if path == "" {
		path = doc.StorePath()
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}

	tokens := s.tokens
	if tokens == nil {
		tokens = relate.UUIDv7Generator{}
	}

	s.Store = st
	s.Engine = relate.New(st, relate.WithGroupTokens(tokens), relate.WithLogger(s.logger))
	s.Detector = drift.New(st, drift.WithTolerance(s.tolerance), drift.WithLogger(s.logger))
	s.logger.Debug("store opened", "path", path, "exists", st.Exists())
	return nil
}

// Deregister closes the store.
func (s *Session) Deregister(context.Context) error {
	if s.Store == nil {
		return nil
	}
	err := s.Store.Close()
	s.Store, s.Engine, s.Detector = nil, nil, nil
	return err
}

// errNoStore is returned when neither --db nor --doc is set.
var errNoStore = errors.New("either --db or --doc is required")

// document resolves the document to open and, with --db, the explicit store
// path.
func (o *RootOptions) document() (lifecycle.Document, string, error) {
	switch {
	case o.Database != "":
		docPath := o.Document
		if docPath == "" {
			docPath = filepath.Join(filepath.Dir(o.Database), "document")
		}
		return lifecycle.Document{Path: docPath}, o.Database, nil
	case o.Document != "":
		return lifecycle.Document{Path: o.Document}, "", nil
	default:
		return lifecycle.Document{}, "", errNoStore
	}
}

// withSession opens the document on a fresh registry, runs fn with the
// session, and closes the document on every exit path.
func withSession(cmd *cobra.Command, opts *RootOptions, tolerance float64, fn func(ctx context.Context, s *Session) error) (err error) {
	doc, storePath, err := opts.document()
	if err != nil {
		return WrapExitError(ExitCommandError, "no store selected", err)
	}

	ctx := commandContext(cmd)
	logger := opts.logger()
	sess := &Session{
		storePath: storePath,
		tolerance: tolerance,
		tokens:    opts.GroupTokens,
		logger:    logger,
	}

	registry := lifecycle.NewRegistry(logger)
	registry.Add(sess)
	if err := registry.Opened(ctx, doc); err != nil {
		f := opts.formatter(cmd)
		if f.JSON() {
			_ = f.Error(ErrCodeStore, "failed to open store", err.Error())
		}
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := registry.Closed(ctx); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
			if err == nil {
				err = WrapExitError(ExitFailure, "failed to close store", closeErr)
			}
		}
	}()

	return fn(ctx, sess)
}

// commandContext returns the command's context, or context.Background() when
// the command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// operationFailed reports an engine or detector failure and returns the
// matching exit error.
func operationFailed(cmd *cobra.Command, opts *RootOptions, message string, err error) error {
	f := opts.formatter(cmd)
	if f.JSON() {
		details := map[string]any{"cause": err.Error()}
		var re *relate.Error
		if errors.As(err, &re) && len(re.SpaceIDs) > 0 {
			details["space_ids"] = re.SpaceIDs
		}
		if encErr := f.Error(errorCode(err), message, details); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(ExitFailure, message, err)
}

// notTracked reports an untracked space.
func notTracked(cmd *cobra.Command, opts *RootOptions, id string) error {
	message := fmt.Sprintf("space %s is not tracked", id)
	f := opts.formatter(cmd)
	if f.JSON() {
		if err := f.Error(ErrCodeNotTracked, message, map[string]any{"space_ids": []string{id}}); err != nil {
			return err
		}
	}
	return NewExitError(ExitFailure, message)
}
