package bolt

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/habit"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) (*Store, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	}

	return store, cleanup
}

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func TestOpen(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestListHabits_Empty(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	habits, err := store.ListHabits("testuser")
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}

	if len(habits) != 0 {
		t.Fatalf("expected empty list, got %d items", len(habits))
	}
}

func TestListHabits_OrderedByOrder(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	habits := []habit.Habit{
		{ID: "b", Name: "guitar", Frequency: habit.FrequencyDaily, Order: 20},
		{ID: "a", Name: "exercise", Frequency: habit.FrequencyDaily, Order: 30},
		{ID: "c", Name: "reading", Frequency: habit.FrequencyDaily, Order: 10},
	}
	for _, h := range habits {
		if err := store.PutHabit("testuser", h); err != nil {
			t.Fatalf("PutHabit failed: %v", err)
		}
	}

	got, err := store.ListHabits("testuser")
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d habits, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestGetHabit(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	desc := "scales"
	h := habit.Habit{
		ID:          "h1",
		Name:        "guitar",
		Description: &desc,
		Frequency:   habit.FrequencyWeekly,
		TargetDays:  []habit.Weekday{"mon", "thu"},
		CreatedAt:   base,
	}
	if err := store.PutHabit("testuser", h); err != nil {
		t.Fatalf("PutHabit failed: %v", err)
	}

	got, err := store.GetHabit("testuser", "h1")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Name != "guitar" || *got.Description != "scales" || len(got.TargetDays) != 2 {
		t.Fatalf("unexpected habit: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("expected created_at %v, got %v", base, got.CreatedAt)
	}

	if _, err := store.GetHabit("testuser", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetHabit("nobody", "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestDeleteHabit_RemovesCompletions(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for _, id := range []string{"keep", "drop"} {
		if err := store.PutHabit("testuser", habit.Habit{ID: id, Frequency: habit.FrequencyDaily}); err != nil {
			t.Fatalf("PutHabit failed: %v", err)
		}
	}
	completions := []habit.Completion{
		{ID: "c1", HabitID: "drop", CompletedAt: base},
		{ID: "c2", HabitID: "keep", CompletedAt: base},
		{ID: "c3", HabitID: "drop", CompletedAt: base.Add(24 * time.Hour)},
	}
	for _, c := range completions {
		if err := store.PutCompletion("testuser", c); err != nil {
			t.Fatalf("PutCompletion failed: %v", err)
		}
	}

	if err := store.DeleteHabit("testuser", "drop"); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}

	cs, err := store.ListCompletions("testuser")
	if err != nil {
		t.Fatalf("ListCompletions failed: %v", err)
	}
	if len(cs) != 1 || cs[0].ID != "c2" {
		t.Fatalf("expected only c2 to remain, got %+v", cs)
	}

	if err := store.DeleteHabit("testuser", "drop"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListCompletions_TimeOrdered(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for i, offset := range []int{3, 1, 2} {
		c := habit.Completion{
			ID:          string(rune('a' + i)),
			HabitID:     "h1",
			CompletedAt: base.Add(time.Duration(offset) * time.Hour),
		}
		if err := store.PutCompletion("testuser", c); err != nil {
			t.Fatalf("PutCompletion failed: %v", err)
		}
	}

	cs, err := store.ListCompletions("testuser")
	if err != nil {
		t.Fatalf("ListCompletions failed: %v", err)
	}
	for i := 1; i < len(cs); i++ {
		if cs[i].CompletedAt.Before(cs[i-1].CompletedAt) {
			t.Fatalf("completions out of order: %+v", cs)
		}
	}

	if err := store.DeleteCompletion("testuser", "b"); err != nil {
		t.Fatalf("DeleteCompletion failed: %v", err)
	}
	if err := store.DeleteCompletion("testuser", "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if err := store.PutCategory("testuser", habit.Category{ID: "c1", Name: "Health", Order: 2}); err != nil {
		t.Fatalf("PutCategory failed: %v", err)
	}
	if err := store.PutCategory("testuser", habit.Category{ID: "c2", Name: "Music", Order: 1}); err != nil {
		t.Fatalf("PutCategory failed: %v", err)
	}

	cats, err := store.ListCategories("testuser")
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != "c2" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	if err := store.DeleteCategory("testuser", "c1"); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	cats, _ = store.ListCategories("testuser")
	if len(cats) != 1 {
		t.Fatalf("expected 1 category after delete, got %d", len(cats))
	}
}

func TestUserIsolation(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	// Add habit for alice
	aliceHabit := habit.Habit{ID: "h1", Name: "guitar", Frequency: habit.FrequencyDaily}
	if err := store.PutHabit("alice", aliceHabit); err != nil {
		t.Fatalf("PutHabit failed: %v", err)
	}

	// Alice should see her habit
	aliceHabits, err := store.ListHabits("alice")
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(aliceHabits) != 1 || aliceHabits[0].Name != "guitar" {
		t.Fatalf("alice should see 'guitar', got %v", aliceHabits)
	}

	// Bob should see nothing
	bobHabits, err := store.ListHabits("bob")
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(bobHabits) != 0 {
		t.Fatalf("bob should see no habits, got %v", bobHabits)
	}

	users, err := store.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 || users[0] != "alice" {
		t.Fatalf("expected only alice, got %v", users)
	}
}

func TestMaxOrder(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	got, err := store.MaxOrder()
	if err != nil {
		t.Fatalf("MaxOrder failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 on empty store, got %d", got)
	}

	_ = store.PutHabit("alice", habit.Habit{ID: "a", Order: 5})
	_ = store.PutHabit("bob", habit.Habit{ID: "b", Order: 42})
	_ = store.PutCategory("alice", habit.Category{ID: "c", Order: 7})

	got, err = store.MaxOrder()
	if err != nil {
		t.Fatalf("MaxOrder failed: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestGetAPIKey_NonExistent(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, found, err := store.GetAPIKey("nonexistent-key")
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if found {
		t.Fatal("expected key not found, but found=true")
	}
}

func TestGetAPIKey_Valid(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	err := store.PutAPIKey("test-hash", "user-123")
	if err != nil {
		t.Fatalf("PutAPIKey failed: %v", err)
	}

	userID, found, err := store.GetAPIKey("test-hash")
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if userID != "user-123" {
		t.Fatalf("expected userID 'user-123', got '%s'", userID)
	}
}

func TestListAPIKeyHashes(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for hash, user := range map[string]string{"key1": "user1", "key2": "user1", "key3": "user2"} {
		if err := store.PutAPIKey(hash, user); err != nil {
			t.Fatalf("PutAPIKey failed: %v", err)
		}
	}

	hashes, err := store.ListAPIKeyHashes("user1")
	if err != nil {
		t.Fatalf("ListAPIKeyHashes failed: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("expected 2 hashes for user1, got %d", len(hashes))
	}

	hashes, err = store.ListAPIKeyHashes("user2")
	if err != nil {
		t.Fatalf("ListAPIKeyHashes failed: %v", err)
	}
	if len(hashes) != 1 {
		t.Fatalf("expected 1 hash for user2, got %d", len(hashes))
	}
}

func TestDeleteAPIKey(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if err := store.PutAPIKey("delete-me", "user-123"); err != nil {
		t.Fatalf("PutAPIKey failed: %v", err)
	}
	if err := store.DeleteAPIKey("delete-me"); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}

	_, found, err := store.GetAPIKey("delete-me")
	if err != nil {
		t.Fatalf("GetAPIKey failed after delete: %v", err)
	}
	if found {
		t.Fatal("expected key not to be found after delete")
	}
}

func TestRefreshToken(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if _, found, err := store.GetRefreshToken("user-1"); err != nil || found {
		t.Fatalf("expected no token, got found=%v err=%v", found, err)
	}

	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: base}
	if err := store.PutRefreshToken("user-1", tok); err != nil {
		t.Fatalf("PutRefreshToken failed: %v", err)
	}

	got, found, err := store.GetRefreshToken("user-1")
	if err != nil || !found {
		t.Fatalf("GetRefreshToken failed: found=%v err=%v", found, err)
	}
	if got.RefreshToken != "rt" || !got.Expiry.Equal(base) {
		t.Fatalf("unexpected token: %+v", got)
	}

	if err := store.DeleteRefreshToken("user-1"); err != nil {
		t.Fatalf("DeleteRefreshToken failed: %v", err)
	}
	if _, found, _ := store.GetRefreshToken("user-1"); found {
		t.Fatal("expected token to be gone")
	}
}
