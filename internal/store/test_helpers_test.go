package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/engram/internal/item"
)

// createTestStore creates a store backed by a temp-dir database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession ensures a session row exists.
func createTestSession(t *testing.T, s *Store, sessionID string) {
	t.Helper()
	if err := s.EnsureSession(context.Background(), sessionID); err != nil {
		t.Fatalf("EnsureSession(%q) failed: %v", sessionID, err)
	}
}

// saveTestItem saves an item and returns the appended change.
func saveTestItem(t *testing.T, s *Store, sessionID, key, category string, priority item.Priority) item.Change {
	t.Helper()
	change, err := s.SaveItem(context.Background(), item.Item{
		SessionID: sessionID,
		Key:       key,
		Value:     "value-" + key,
		Category:  category,
		Priority:  priority,
	})
	if err != nil {
		t.Fatalf("SaveItem(%q) failed: %v", key, err)
	}
	return change
}

// fixedClock returns a clock function pinned to a known instant.
func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}
