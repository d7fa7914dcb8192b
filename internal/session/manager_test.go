package session

import (
	"errors"
	"testing"
)

func TestRegisterAndUnregister(t *testing.T) {
	m := NewManager()

	s := m.Register("127.0.0.1:51000")
	if s.ID == "" {
		t.Fatalf("Register returned session without id")
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", m.ActiveCount())
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("Get returned session %q, want %q", got.ID, s.ID)
	}

	m.Unregister(s.ID)
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after Unregister = %d, want 0", m.ActiveCount())
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Unregister error = %v, want ErrNotFound", err)
	}
}

func TestGenerationGate(t *testing.T) {
	m := NewManager()
	s := m.Register("127.0.0.1:51001")

	if !s.BeginGeneration() {
		t.Fatalf("first BeginGeneration = false, want true")
	}
	if s.BeginGeneration() {
		t.Fatalf("second BeginGeneration = true, want rejection while in flight")
	}
	if !s.Generating() {
		t.Fatalf("Generating = false while in flight")
	}

	s.EndGeneration()
	if s.Generating() {
		t.Fatalf("Generating = true after EndGeneration")
	}
	if !s.BeginGeneration() {
		t.Fatalf("BeginGeneration after EndGeneration = false, want true")
	}
}
