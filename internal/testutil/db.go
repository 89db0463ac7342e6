// Package testutil builds throwaway databases and seed rows for handler and
// job tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/codr1/StaycationHaven/internal/db"
)

// NewTestDB returns a migrated SQLite database in a per-test temp dir. It is
// closed when the test ends.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "haven.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewMockDB returns a DB backed by sqlmock for failure paths a real SQLite
// file cannot produce. Unmet expectations fail the test at cleanup.
func NewMockDB(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("sql expectations: %v", err)
		}
		_ = conn.Close()
	})
	return db.Wrap(conn), mock
}
