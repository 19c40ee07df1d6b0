// Package testutil provides shared helpers for package tests.
//
// Repository tests run against go-sqlmock instead of a live database:
//
//	db, mock := testutil.NewMockDB(t)
//	mock.ExpectQuery(`SELECT .* FROM tasks`).WillReturnRows(...)
//
// Expectations are verified automatically when the test finishes.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// NewMockDB returns a sqlmock-backed *sql.DB. Queries are matched as regular expressions.
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock")

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "unmet sqlmock expectations")
		_ = db.Close()
	})

	return db, mock
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
