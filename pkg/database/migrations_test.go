package database

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":   {Data: []byte("SELECT 1;")},
		"002_second.sql":  {Data: []byte("SELECT 1;")},
		"001_initial.sql": {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("ignored")},
	}

	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
	assert.Equal(t, "later", migrations[2].Name)
}

func TestLoadMigrations_RejectsBadFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"initial.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := loadMigrations(fsys)
	assert.Error(t, err)
}

func TestRunMigrations_EmbeddedSchemaIsIdempotent(t *testing.T) {
	db := newMemoryDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.RunMigrations(""))
	require.NoError(t, migrator.RunMigrations(""))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	for _, table := range []string{"records", "record_indexes", "sequences"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestRunMigrations_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_widgets.sql"),
		[]byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);"), 0o644))

	db := newMemoryDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrations(dir))

	_, err := db.Exec("INSERT INTO widgets (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestRunMigrations_FailedMigrationIsNotRecorded(t *testing.T) {
	db := newMemoryDB(t)
	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE (;")},
	}

	err := NewMigrator(db, zap.NewNop()).Run(fsys)
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Zero(t, count)
}

func TestLoadMigrations_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_cases.sql":   {Data: []byte("SELECT 1;")},
		"001_records.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := loadMigrations(fsys)
	assert.ErrorContains(t, err, "share version 1")
}

func TestRunMigrations_RefusesEditedMigration(t *testing.T) {
	db := newMemoryDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.Run(fstest.MapFS{
		"001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
	}))

	err := migrator.Run(fstest.MapFS{
		"001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")},
	})
	assert.ErrorContains(t, err, "changed after it was applied")
}

func TestDSN(t *testing.T) {
	memory := dsn(Config{Path: MemoryPath})
	assert.Equal(t, "file::memory:?_foreign_keys=on&_txlock=immediate", memory)

	file := dsn(Config{Path: "data/recruitment.db", BusyTimeout: 2 * time.Second})
	assert.Contains(t, file, "file:data/recruitment.db?")
	assert.Contains(t, file, "_busy_timeout=2000")
	assert.Contains(t, file, "_journal_mode=WAL")
	assert.Contains(t, file, "_txlock=immediate")

	assert.Contains(t, dsn(Config{Path: "x.db"}), "_busy_timeout=5000")
}
