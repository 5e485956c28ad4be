package models

import (
	"time"
)

// CacheEntry represents a scalar value held by the database-backed store.
// A zero ExpiresAt means the entry never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:512"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name so the Redis-shaped keyspace stays recognisable in SQL.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Expired reports whether the entry has a deadline at or before now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
