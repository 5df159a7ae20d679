package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(migrationsFS, migrationsDir+"/"+entries[0].Name())
	require.NoError(t, err)
	sql := string(body)
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "-- +goose Down")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, sql, "PRIMARY KEY (collection, id)")
}

func TestEnsureDatabase_RejectsURLWithoutName(t *testing.T) {
	err := ensureDatabase(t.Context(), "postgres://u:p@localhost:5432/?sslmode=disable", nil)
	assert.ErrorContains(t, err, "database name is empty")
}
