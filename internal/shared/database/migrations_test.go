package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.sql":      {Data: []byte("CREATE INDEX ...")},
		"001_create_presets.sql": {Data: []byte("CREATE TABLE ...")},
		"README.md":              {Data: []byte("notes")},
		"archive/000_old.sql":    {Data: []byte("SELECT 1")},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_presets.sql", "002_add_index.sql", "archive/000_old.sql"}, files)
}

func TestNilDatabase(t *testing.T) {
	var db *DB
	assert.Error(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
}
