// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"testing"

	"github.com/rr-brian/rts-ai/internal/repository"
)

// NewTestSQLiteStore returns a migrated in-memory store closed at test end.
func NewTestSQLiteStore(t *testing.T) *repository.SQLStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
