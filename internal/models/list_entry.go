package models

import "time"

// ListEntry is one element of an append-only list in the database-backed store.
// Elements of a list are ordered by ID.
type ListEntry struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Key       string `gorm:"size:512;index"`
	Value     []byte `gorm:"type:blob"`
	CreatedAt time.Time
}

// TableName keeps list rows beside cache_entries.
func (ListEntry) TableName() string {
	return "cache_list_entries"
}
