package testutil

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	db, mock := NewMockDB(t)

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	require.NotNil(t, logger)
	logger.Info("dropped")
}

func TestTestDSN(t *testing.T) {
	t.Setenv("TEST_POSTGRES_DSN", "postgres://override")
	t.Setenv("TEST_MYSQL_DSN", "")

	assert.Equal(t, "postgres://override", TestDSN("postgres"))
	assert.Equal(t, defaultMySQLTestDSN, TestDSN("mysql"))
}

func TestGetMigrationsPath(t *testing.T) {
	path, err := getMigrationsPath("postgresql")
	require.NoError(t, err)
	assert.DirExists(t, path)

	_, err = getMigrationsPath("sqlite")
	assert.Error(t, err)
}
