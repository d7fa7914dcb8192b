package store

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
)

func TestInMemoryRecentBoundAndOrder(t *testing.T) {
	testRecentBoundAndOrder(t, NewInMemoryStore())
}

func TestInMemoryClearIdempotent(t *testing.T) {
	testClearIdempotent(t, NewInMemoryStore())
}

func TestSQLiteRecentBoundAndOrder(t *testing.T) {
	testRecentBoundAndOrder(t, newTestSQLiteStore(t))
}

func TestSQLiteClearIdempotent(t *testing.T) {
	testClearIdempotent(t, newTestSQLiteStore(t))
}

func TestSQLitePersistsAudioFields(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	saved, err := s.SaveTurn(ctx, Turn{
		Role:        RoleAssistant,
		Content:     "spoken reply",
		InputMethod: InputText,
		HasAudio:    true,
		AudioURL:    "data:audio/mp3;base64,QUJD",
	})
	if err != nil {
		t.Fatalf("SaveTurn error = %v", err)
	}
	if saved.ID == "" || saved.Timestamp.IsZero() {
		t.Fatalf("SaveTurn did not assign id/timestamp: %+v", saved)
	}

	turns, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
	got := turns[0]
	if !got.HasAudio || got.AudioURL != saved.AudioURL {
		t.Fatalf("audio fields lost: %+v", got)
	}
	if got.HasAudio != (got.AudioURL != "") {
		t.Fatalf("hasAudio/audioUrl mismatch: %+v", got)
	}
}

func TestFactoryFallsBackToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewStore error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore type = %T, want *InMemoryStore", s)
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turns.db")
	s, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteStore error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecentBoundAndOrder(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// Persist M+K turns, expect exactly the last M back, oldest first.
	const total, bound = 7, 5
	for i := 0; i < total; i++ {
		if _, err := s.SaveTurn(ctx, Turn{
			Role:        RoleUser,
			Content:     "turn " + strconv.Itoa(i),
			InputMethod: InputText,
		}); err != nil {
			t.Fatalf("SaveTurn(%d) error = %v", i, err)
		}
	}

	turns, err := s.Recent(ctx, bound)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != bound {
		t.Fatalf("len(turns) = %d, want %d", len(turns), bound)
	}
	for i, turn := range turns {
		want := "turn " + strconv.Itoa(total-bound+i)
		if turn.Content != want {
			t.Fatalf("turns[%d].Content = %q, want %q", i, turn.Content, want)
		}
	}
}

func testClearIdempotent(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.SaveTurn(ctx, Turn{Role: RoleUser, Content: "hello", InputMethod: InputText}); err != nil {
		t.Fatalf("SaveTurn error = %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("first Clear error = %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear error = %v", err)
	}
	turns, err := s.Recent(ctx, 50)
	if err != nil {
		t.Fatalf("Recent after Clear error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len(turns) after Clear = %d, want 0", len(turns))
	}
}
