package relate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brplusa/spacelink/internal/space"
)

func TestVerify_EmptyStore(t *testing.T) {
	e, st := newTestEngine(t)

	violations, err := e.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.False(t, st.Exists())
}

func TestVerify_ReportsEveryKind(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	// Written straight to the store, bypassing the engine's invariants
	records := []space.Record{
		{ID: "A", ConnectedIDs: []string{"A", "B"}},
		{ID: "B", ConnectedIDs: []string{}},
		{ID: "C", ConnectedIDs: []string{"ghost"}},
	}
	require.NoError(t, st.InsertMany(ctx, records))

	violations, err := e.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Violation{
		{Kind: ViolationSelfLoop, SpaceID: "A", PeerID: "A"},
		{Kind: ViolationAsymmetric, SpaceID: "A", PeerID: "B"},
		{Kind: ViolationDangling, SpaceID: "C", PeerID: "ghost"},
	}, violations)
}

func TestViolation_String(t *testing.T) {
	assert.Equal(t, "self_loop: A is connected to itself",
		Violation{Kind: ViolationSelfLoop, SpaceID: "A", PeerID: "A"}.String())
	assert.Equal(t, "asymmetric: A lists B but B does not list A",
		Violation{Kind: ViolationAsymmetric, SpaceID: "A", PeerID: "B"}.String())
	assert.Equal(t, "dangling: C lists untracked ghost",
		Violation{Kind: ViolationDangling, SpaceID: "C", PeerID: "ghost"}.String())
}
