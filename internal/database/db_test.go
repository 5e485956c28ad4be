package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/callcache/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestAutoMigrateCreatesStoreTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasTable(&models.CacheEntry{}))
	require.True(t, migrator.HasTable(&models.ListEntry{}))
	require.True(t, migrator.HasColumn(&models.CacheEntry{}, "expires_at"))
}

func TestAutoMigrateRejectsNil(t *testing.T) {
	require.Error(t, AutoMigrate(nil))
}

func TestOpenAndMigrateFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "callcache.sqlite")

	db, err := OpenAndMigrate(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Create(&models.CacheEntry{Key: "k", Value: []byte("v")}).Error)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestNamedMemoryDatabasesAreIsolated(t *testing.T) {
	first, err := OpenAndMigrate(Config{Driver: "sqlite", Path: "memory:isolation-a"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(first) })

	second, err := OpenAndMigrate(Config{Driver: "sqlite", Path: "memory:isolation-b"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(second) })

	require.NoError(t, first.Create(&models.CacheEntry{Key: "only-in-a"}).Error)

	var count int64
	require.NoError(t, second.Model(&models.CacheEntry{}).Count(&count).Error)
	require.Zero(t, count)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: "memory:" + t.Name()})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
