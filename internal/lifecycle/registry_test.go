package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingUpdater appends its lifecycle events to a shared log.
type recordingUpdater struct {
	name           string
	log            *[]string
	failRegister   error
	failDeregister error
}

func (u *recordingUpdater) Name() string { return u.name }

func (u *recordingUpdater) Register(_ context.Context, doc Document) error {
	if u.failRegister != nil {
		return u.failRegister
	}
	*u.log = append(*u.log, "register "+u.name+" "+doc.Path)
	return nil
}

func (u *recordingUpdater) Deregister(context.Context) error {
	*u.log = append(*u.log, "deregister "+u.name)
	return u.failDeregister
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStorePath(t *testing.T) {
	got := StorePath(filepath.Join("projects", "tower", "model.rvt"))
	assert.Equal(t, filepath.Join("projects", "tower", "SpatialData.db"), got)

	doc := Document{Path: filepath.Join("a", "b.rvt")}
	assert.Equal(t, filepath.Join("a", "SpatialData.db"), doc.StorePath())
}

func TestRegistry_OpenedAndClosed(t *testing.T) {
	var log []string
	r := newTestRegistry()
	r.Add(
		&recordingUpdater{name: "first", log: &log},
		&recordingUpdater{name: "second", log: &log},
	)
	ctx := context.Background()

	require.NoError(t, r.Opened(ctx, Document{Path: "model.rvt"}))
	doc, open := r.Active()
	assert.True(t, open)
	assert.Equal(t, "model.rvt", doc.Path)

	require.NoError(t, r.Closed(ctx))
	_, open = r.Active()
	assert.False(t, open)

	assert.Equal(t, []string{
		"register first model.rvt",
		"register second model.rvt",
		"deregister second",
		"deregister first",
	}, log)
}

func TestRegistry_RegisterFailureRollsBack(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := newTestRegistry()
	r.Add(
		&recordingUpdater{name: "first", log: &log},
		&recordingUpdater{name: "second", log: &log, failRegister: boom},
		&recordingUpdater{name: "third", log: &log},
	)

	err := r.Opened(context.Background(), Document{Path: "model.rvt"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "register second")

	_, open := r.Active()
	assert.False(t, open)
	assert.Equal(t, []string{"register first model.rvt", "deregister first"}, log)
}

func TestRegistry_DeregisterErrorsAreJoined(t *testing.T) {
	var log []string
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	r := newTestRegistry()
	r.Add(
		&recordingUpdater{name: "a", log: &log, failDeregister: errA},
		&recordingUpdater{name: "b", log: &log, failDeregister: errB},
	)
	ctx := context.Background()

	require.NoError(t, r.Opened(ctx, Document{Path: "m"}))
	err := r.Closed(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"register a m", "register b m", "deregister b", "deregister a"}, log)
}

func TestRegistry_OneDocumentAtATime(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, r.Opened(ctx, Document{Path: "one"}))
	err := r.Opened(ctx, Document{Path: "two"})
	assert.ErrorIs(t, err, ErrDocumentOpen)

	require.NoError(t, r.Closed(ctx))
	assert.ErrorIs(t, r.Closed(ctx), ErrNoDocument)
}

func TestRegistry_ReopenAfterClose(t *testing.T) {
	var log []string
	r := newTestRegistry()
	r.Add(&recordingUpdater{name: "u", log: &log})
	ctx := context.Background()

	require.NoError(t, r.Opened(ctx, Document{Path: "one"}))
	require.NoError(t, r.Closed(ctx))
	require.NoError(t, r.Opened(ctx, Document{Path: "two"}))
	require.NoError(t, r.Closed(ctx))

	assert.Equal(t, []string{"register u one", "deregister u", "register u two", "deregister u"}, log)
}
