package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brplusa/spacelink/internal/lifecycle"
	"github.com/brplusa/spacelink/internal/space"
	"github.com/brplusa/spacelink/internal/store"
	"github.com/brplusa/spacelink/internal/testutil"
)

func TestRootOptions_Document(t *testing.T) {
	tests := []struct {
		name      string
		opts      RootOptions
		wantDoc   string
		wantStore string
		wantErr   bool
	}{
		{
			name:      "db only",
			opts:      RootOptions{Database: filepath.Join("data", "links.db")},
			wantDoc:   filepath.Join("data", "document"),
			wantStore: filepath.Join("data", "links.db"),
		},
		{
			name:      "db overrides doc",
			opts:      RootOptions{Database: "links.db", Document: filepath.Join("models", "tower.rvt")},
			wantDoc:   filepath.Join("models", "tower.rvt"),
			wantStore: "links.db",
		},
		{
			name:    "doc only",
			opts:    RootOptions{Document: filepath.Join("models", "tower.rvt")},
			wantDoc: filepath.Join("models", "tower.rvt"),
		},
		{
			name:    "neither",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, storePath, err := tt.opts.document()
			if tt.wantErr {
				assert.ErrorIs(t, err, errNoStore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDoc, doc.Path)
			assert.Equal(t, tt.wantStore, storePath)
		})
	}
}

func TestSession_RegisterAndDeregister(t *testing.T) {
	dir := t.TempDir()
	sess := &Session{
		tokens: testutil.NewSequentialGroupGenerator(),
		logger: discardLogger(),
	}
	ctx := context.Background()

	require.NoError(t, sess.Register(ctx, lifecycle.Document{Path: filepath.Join(dir, "tower.rvt")}))
	require.NotNil(t, sess.Engine)
	require.NotNil(t, sess.Detector)
	assert.Equal(t, filepath.Join(dir, space.StoreFileName), sess.Store.Path())

	require.NoError(t, sess.Engine.CreateGroup(ctx, testutil.Spaces("A", "B")))

	require.NoError(t, sess.Deregister(ctx))
	assert.Nil(t, sess.Store)
	assert.NoError(t, sess.Deregister(ctx), "second deregister is a no-op")

	st, err := store.Open(filepath.Join(dir, space.StoreFileName))
	require.NoError(t, err)
	defer st.Close()
	found, err := st.Contains(ctx, "A")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestWithSession_ClosesStoreAfterFailure(t *testing.T) {
	opts := &RootOptions{Database: filepath.Join(t.TempDir(), space.StoreFileName), Logger: discardLogger()}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	var captured *Session
	err := withSession(cmd, opts, 0, func(ctx context.Context, s *Session) error {
		captured = s
		return NewExitError(ExitFailure, "boom")
	})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, captured)
	assert.Nil(t, captured.Store, "store must be released on the error path")
}

func TestWithSession_TolerancePassedToDetector(t *testing.T) {
	opts := &RootOptions{Database: filepath.Join(t.TempDir(), space.StoreFileName), Logger: discardLogger()}
	cmd := &cobra.Command{}

	err := withSession(cmd, opts, 0.25, func(ctx context.Context, s *Session) error {
		assert.Equal(t, 0.25, s.Detector.Tolerance())
		return nil
	})
	require.NoError(t, err)
}
