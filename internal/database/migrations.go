package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/callcache/internal/models"
)

// AutoMigrate creates or updates the tables backing the database store.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errNilDB
	}
	return db.AutoMigrate(
		&models.CacheEntry{},
		&models.ListEntry{},
	)
}
