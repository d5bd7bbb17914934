package testutil

import (
	"context"
	"testing"

	"github.com/nhle/lecture-board/internal/store"
)

// NewTestStore creates an in-memory SQLite client with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLClient {
	t.Helper()

	s, err := store.NewSQLiteStore(context.Background(), ":memory:", true)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestStoreWithoutGoals is NewTestStore with the goals table dropped,
// reproducing a deployment whose goals migration was never applied.
func NewTestStoreWithoutGoals(t *testing.T) *store.SQLClient {
	t.Helper()

	s := NewTestStore(t)
	if _, err := s.DB().Exec("DROP TABLE goals"); err != nil {
		t.Fatalf("dropping goals table: %v", err)
	}
	return s
}
