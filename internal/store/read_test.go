package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brplusa/spacelink/internal/space"
)

func TestFind_NeverCreatedStore(t *testing.T) {
	s := createTestStore(t)

	_, found, err := s.Find(context.Background(), "A")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if found {
		t.Error("Find() on never-created store reported found")
	}
	if s.Exists() {
		t.Error("Find() must not create the backing file")
	}
}

func TestFind_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := space.Record{
		ID:           "A",
		Name:         "Office",
		Number:       "101",
		GroupID:      "group-1",
		ConnectedIDs: []string{"B", "C"},
		Specified:    space.Airflow{Supply: 120.5, Return: 80.25, Exhaust: 0.1},
	}
	records := []space.Record{want, createTestRecord("B", "A", "C"), createTestRecord("C", "A", "B")}
	if err := s.InsertMany(ctx, records); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}

	got, found, err := s.Find(ctx, "A")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if !found {
		t.Fatal("Find() did not find inserted record")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_Missing(t *testing.T) {
	s := createInitializedStore(t)

	_, found, err := s.Find(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if found {
		t.Error("Find() reported found for missing id")
	}
}

func TestFindPeers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	records := []space.Record{
		createTestRecord("A", "B", "C"),
		createTestRecord("B", "A", "C"),
		createTestRecord("C", "A", "B"),
	}
	if err := s.InsertMany(ctx, records); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}

	peers, err := s.FindPeers(ctx, "A")
	if err != nil {
		t.Fatalf("FindPeers() failed: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("FindPeers() returned %d peers, want 2", len(peers))
	}
	if peers[0].ID != "B" || peers[1].ID != "C" {
		t.Errorf("FindPeers() ids = [%s %s], want [B C]", peers[0].ID, peers[1].ID)
	}
}

func TestFindPeers_UntrackedIsError(t *testing.T) {
	s := createInitializedStore(t)

	_, err := s.FindPeers(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindPeers() error = %v, want ErrNotFound", err)
	}
}

func TestFindPeers_DanglingEdge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Store is a plain collection; it accepts a peer that does not exist
	if err := s.InsertMany(ctx, []space.Record{createTestRecord("A", "ghost")}); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}

	_, err := s.FindPeers(ctx, "A")
	if !errors.Is(err, ErrDanglingEdge) {
		t.Errorf("FindPeers() error = %v, want ErrDanglingEdge", err)
	}
}

func TestContains(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	found, err := s.Contains(ctx, "A")
	if err != nil {
		t.Fatalf("Contains() on never-created store failed: %v", err)
	}
	if found {
		t.Error("Contains() on never-created store = true")
	}

	if err := s.InsertMany(ctx, []space.Record{createTestRecord("A", "B"), createTestRecord("B", "A")}); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}

	found, err = s.Contains(ctx, "A")
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if !found {
		t.Error("Contains() = false for inserted id")
	}

	found, err = s.Contains(ctx, "Z")
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if found {
		t.Error("Contains() = true for missing id")
	}
}

func TestAll_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() on never-created store failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("All() on never-created store = %#v, want empty non-nil slice", empty)
	}

	records := []space.Record{
		createTestRecord("C", "A"),
		createTestRecord("A", "C"),
		createTestRecord("B"),
	}
	if err := s.InsertMany(ctx, records); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	var ids []string
	for _, rec := range all {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, ids); diff != "" {
		t.Errorf("All() order mismatch (-want +got):\n%s", diff)
	}
	if all[1].ConnectedIDs == nil {
		t.Error("record without peers should have an empty, non-nil peer set")
	}
}
