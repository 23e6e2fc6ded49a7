package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/dan-solli/socialgraph/pkg/store"
)

// setupChain builds users a,b,c,d with edges a-b, b-c, c-d plus an isolated
// user e, and returns the store, the engine, and the ids by name.
func setupChain(t *testing.T) (*store.SQLiteStore, *Engine, map[string]int64) {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	ids := make(map[string]int64)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		user, err := s.CreateUser(ctx, name, "User "+name)
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
		ids[name] = user.InternalID
	}

	for _, edge := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		if _, err := s.Connect(ctx, ids[edge[0]], ids[edge[1]]); err != nil {
			t.Fatalf("Connect(%s, %s) failed: %v", edge[0], edge[1], err)
		}
	}

	return s, NewEngine(s), ids
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// TestDirectFriends tests one-hop adjacency.
func TestDirectFriends(t *testing.T) {
	_, engine, ids := setupChain(t)

	friends, err := engine.DirectFriends(context.Background(), ids["b"])
	if err != nil {
		t.Fatalf("DirectFriends failed: %v", err)
	}

	got := toSet(friends)
	if len(got) != 2 || !got[ids["a"]] || !got[ids["c"]] {
		t.Errorf("DirectFriends(b) = %v, want {a, c}", friends)
	}
}

// TestFriendsOfFriends tests the two-hop set on the chain a-b-c-d.
func TestFriendsOfFriends(t *testing.T) {
	_, engine, ids := setupChain(t)

	fof, err := engine.FriendsOfFriends(context.Background(), ids["a"])
	if err != nil {
		t.Fatalf("FriendsOfFriends failed: %v", err)
	}

	got := toSet(fof)
	if len(got) != 1 || !got[ids["c"]] {
		t.Errorf("FriendsOfFriends(a) = %v, want {c}", fof)
	}
}

// TestFriendsOfFriends_ExcludesSelfAndDirect tests the exclusion rules on a
// triangle a-b, b-c, a-c: everyone two hops away is already a direct friend.
func TestFriendsOfFriends_ExcludesSelfAndDirect(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		user, err := s.CreateUser(ctx, name, "User "+name)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		ids = append(ids, user.InternalID)
	}
	for _, edge := range [][2]int{{0, 1}, {1, 2}, {0, 2}} {
		if _, err := s.Connect(ctx, ids[edge[0]], ids[edge[1]]); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
	}

	engine := NewEngine(s)
	fof, err := engine.FriendsOfFriends(ctx, ids[0])
	if err != nil {
		t.Fatalf("FriendsOfFriends failed: %v", err)
	}
	if len(fof) != 0 {
		t.Errorf("FriendsOfFriends(a) on a triangle = %v, want empty", fof)
	}
}

// TestFriendsOfFriends_StarGraph tests that all leaves of a star see each
// other as friends-of-friends through the center.
func TestFriendsOfFriends_StarGraph(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	center, err := s.CreateUser(ctx, "center", "Center")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	const leafCount = 5
	leaves := make([]int64, leafCount)
	for i := range leaves {
		user, err := s.CreateUser(ctx, fmt.Sprintf("leaf-%d", i), "Leaf")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		leaves[i] = user.InternalID
		if _, err := s.Connect(ctx, center.InternalID, user.InternalID); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
	}

	engine := NewEngine(s)
	fof, err := engine.FriendsOfFriends(ctx, leaves[0])
	if err != nil {
		t.Fatalf("FriendsOfFriends failed: %v", err)
	}

	got := toSet(fof)
	if len(got) != leafCount-1 {
		t.Fatalf("Expected %d friends-of-friends, got %d (%v)", leafCount-1, len(got), fof)
	}
	if got[leaves[0]] {
		t.Error("FriendsOfFriends contains the user itself")
	}
	if got[center.InternalID] {
		t.Error("FriendsOfFriends contains a direct friend")
	}
	for _, leaf := range leaves[1:] {
		if !got[leaf] {
			t.Errorf("Expected leaf %d in friends-of-friends", leaf)
		}
	}
}

// TestFriendsOfFriends_Deduplicates tests that a node reachable through two
// different direct friends appears once. Diamond: a-b, a-c, b-d, c-d.
func TestFriendsOfFriends_Deduplicates(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var ids []int64
	for _, name := range []string{"a", "b", "c", "d"} {
		user, err := s.CreateUser(ctx, name, "User "+name)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		ids = append(ids, user.InternalID)
	}
	for _, edge := range [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}} {
		if _, err := s.Connect(ctx, ids[edge[0]], ids[edge[1]]); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
	}

	engine := NewEngine(s)
	fof, err := engine.FriendsOfFriends(ctx, ids[0])
	if err != nil {
		t.Fatalf("FriendsOfFriends failed: %v", err)
	}
	if len(fof) != 1 || fof[0] != ids[3] {
		t.Errorf("FriendsOfFriends(a) = %v, want exactly {d}", fof)
	}
}

// TestDegreeOfSeparation tests shortest-path hop counts along the chain.
func TestDegreeOfSeparation(t *testing.T) {
	_, engine, ids := setupChain(t)
	ctx := context.Background()

	tests := []struct {
		from, to string
		want     int
	}{
		{"a", "a", 0},
		{"a", "b", 1},
		{"a", "c", 2},
		{"a", "d", 3},
		{"d", "a", 3},
	}

	for _, tt := range tests {
		degree, err := engine.DegreeOfSeparation(ctx, ids[tt.from], ids[tt.to])
		if err != nil {
			t.Fatalf("DegreeOfSeparation(%s, %s) failed: %v", tt.from, tt.to, err)
		}
		if degree != tt.want {
			t.Errorf("DegreeOfSeparation(%s, %s) = %d, want %d", tt.from, tt.to, degree, tt.want)
		}
	}
}

// TestDegreeOfSeparation_Unreachable tests the unreachable sentinel for an
// isolated user, in both directions.
func TestDegreeOfSeparation_Unreachable(t *testing.T) {
	_, engine, ids := setupChain(t)
	ctx := context.Background()

	degree, err := engine.DegreeOfSeparation(ctx, ids["a"], ids["e"])
	if err != nil {
		t.Fatalf("DegreeOfSeparation failed: %v", err)
	}
	if degree != Unreachable {
		t.Errorf("DegreeOfSeparation(a, e) = %d, want Unreachable", degree)
	}

	// Isolated start short-circuits before traversal
	degree, err = engine.DegreeOfSeparation(ctx, ids["e"], ids["a"])
	if err != nil {
		t.Fatalf("DegreeOfSeparation failed: %v", err)
	}
	if degree != Unreachable {
		t.Errorf("DegreeOfSeparation(e, a) = %d, want Unreachable", degree)
	}
}

// TestDegreeOfSeparation_SelfIsolated tests that an isolated user is still
// at degree 0 from itself.
func TestDegreeOfSeparation_SelfIsolated(t *testing.T) {
	_, engine, ids := setupChain(t)

	degree, err := engine.DegreeOfSeparation(context.Background(), ids["e"], ids["e"])
	if err != nil {
		t.Fatalf("DegreeOfSeparation failed: %v", err)
	}
	if degree != 0 {
		t.Errorf("DegreeOfSeparation(e, e) = %d, want 0", degree)
	}
}

// TestDegreeOfSeparation_ShortestPathWins tests that BFS reports the short
// route when a longer one also exists: a-b-e (2 hops) vs a-c-d-e (3 hops).
func TestDegreeOfSeparation_ShortestPathWins(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	ids := make(map[string]int64)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		user, err := s.CreateUser(ctx, name, "User "+name)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		ids[name] = user.InternalID
	}
	for _, edge := range [][2]string{{"a", "b"}, {"b", "e"}, {"a", "c"}, {"c", "d"}, {"d", "e"}} {
		if _, err := s.Connect(ctx, ids[edge[0]], ids[edge[1]]); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
	}

	engine := NewEngine(s)
	degree, err := engine.DegreeOfSeparation(ctx, ids["a"], ids["e"])
	if err != nil {
		t.Fatalf("DegreeOfSeparation failed: %v", err)
	}
	if degree != 2 {
		t.Errorf("DegreeOfSeparation(a, e) = %d, want 2", degree)
	}
}

// TestDegreeOfSeparation_AfterDisconnect tests that removing an edge changes
// the reported distance.
func TestDegreeOfSeparation_AfterDisconnect(t *testing.T) {
	s, engine, ids := setupChain(t)
	ctx := context.Background()

	if err := s.Disconnect(ctx, ids["b"], ids["c"]); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	degree, err := engine.DegreeOfSeparation(ctx, ids["a"], ids["d"])
	if err != nil {
		t.Fatalf("DegreeOfSeparation failed: %v", err)
	}
	if degree != Unreachable {
		t.Errorf("DegreeOfSeparation(a, d) after cut = %d, want Unreachable", degree)
	}
}
