package history

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Append("sam", RoleUser, "good morning"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := s.Append("sam", RoleAssistant, "morning! you slept 7h 45m"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	messages, err := s.Recent("sam", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2", len(messages))
	}
	if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
		t.Errorf("roles = %s, %s, want user then assistant", messages[0].Role, messages[1].Role)
	}
	if messages[0].Content != "good morning" {
		t.Errorf("content = %q", messages[0].Content)
	}
}

func TestRecentWindow(t *testing.T) {
	s := newTestStore(t)
	for i := range 30 {
		if _, err := s.Append("sam", RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	messages, err := s.Recent("sam", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 5 {
		t.Fatalf("len = %d, want 5", len(messages))
	}
	// Oldest-first within the newest five.
	if messages[0].Content != "message 25" || messages[4].Content != "message 29" {
		t.Errorf("window = %q .. %q, want message 25 .. message 29",
			messages[0].Content, messages[4].Content)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append("sam", RoleUser, "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append("alex", RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}

	messages, err := s.Recent("sam", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 || messages[0].Content != "hi" {
		t.Errorf("sam's messages = %v, want only \"hi\"", messages)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append("sam", RoleUser, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear("sam"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	messages, err := s.Recent("sam", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("len after clear = %d, want 0", len(messages))
	}
}
