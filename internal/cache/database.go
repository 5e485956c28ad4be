package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/callcache/internal/models"
)

// ErrNotInteger mirrors Redis' reply when INCR targets a non-numeric value.
var ErrNotInteger = errors.New("cache: value is not an integer or out of range")

// DatabaseStore implements Store on top of the primary SQL database. Scalars live in
// cache_entries and lists in cache_list_entries. Expiry is enforced lazily on read and by
// PurgeExpired.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseOption customises a DatabaseStore.
type DatabaseOption func(*DatabaseStore)

// WithClock overrides the clock used for expiry decisions.
func WithClock(now func() time.Time) DatabaseOption {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, opts ...DatabaseOption) *DatabaseStore {
	if db == nil {
		return nil
	}
	s := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DatabaseStore) check(ctx context.Context) (context.Context, error) {
	if s == nil || s.db == nil {
		return ctx, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

// clock returns the current time in UTC so stored deadlines compare correctly as text.
func (s *DatabaseStore) clock() time.Time {
	return s.now().UTC()
}

// keyEq quotes the column name; KEY is reserved in MySQL.
func keyEq(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func keyIn(keys []string) clause.Expression {
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return clause.IN{Column: clause.Column{Name: "key"}, Values: values}
}

// lockFor adds a row lock where the dialect has one; SQLite serialises writers anyway.
func (s *DatabaseStore) lockFor(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Ping checks the underlying connection pool.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	ctx, err := s.check(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Set upserts the value for a given key with optional expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, err := s.check(ctx)
	if err != nil {
		return err
	}

	expiry := time.Time{}
	if ttl > 0 {
		expiry = s.clock().Add(ttl)
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiry,
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	err = s.db.WithContext(ctx).Take(&entry, keyEq(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if entry.Expired(s.clock()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	if entry.Value == nil {
		entry.Value = []byte{}
	}
	return entry.Value, true, nil
}

// Delete removes scalar and list keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, err := s.check(ctx)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(keyIn(keys)).Delete(&models.CacheEntry{}).Error; err != nil {
			return err
		}
		return tx.Where(keyIn(keys)).Delete(&models.ListEntry{}).Error
	})
}

// Incr atomically increments the integer stored under key. Expired entries restart at 1
// without a deadline; live entries keep theirs.
func (s *DatabaseStore) Incr(ctx context.Context, key string) (int64, error) {
	count, _, err := s.increment(ctx, key, 0)
	return count, err
}

// IncrementWithTTL atomically increments a counter, starting a window of the given length
// when the counter is created.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	return s.increment(ctx, key, window)
}

// increment mirrors INCR followed by PEXPIRE on the first increment. The row is created
// with ON CONFLICT DO NOTHING before it is locked, so concurrent first increments queue on
// the same row instead of both inserting.
func (s *DatabaseStore) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return 0, 0, err
	}

	now := s.clock()
	var (
		count  int64
		expiry time.Time
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.CacheEntry{Key: key, Value: []byte("0")}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var entry models.CacheEntry
		if err := s.lockFor(tx).Take(&entry, keyEq(key)).Error; err != nil {
			return err
		}

		current := int64(0)
		expiry = entry.ExpiresAt
		if entry.Expired(now) {
			expiry = time.Time{}
		} else {
			parsed, convErr := strconv.ParseInt(string(entry.Value), 10, 64)
			if convErr != nil {
				return fmt.Errorf("%w: key %q", ErrNotInteger, key)
			}
			current = parsed
		}

		count = current + 1
		if count == 1 && window > 0 {
			expiry = now.Add(window)
		}
		return tx.Model(&models.CacheEntry{}).
			Where(keyEq(key)).
			Updates(map[string]interface{}{
				"value":      []byte(strconv.FormatInt(count, 10)),
				"expires_at": expiry,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	if expiry.IsZero() {
		return count, window, nil
	}
	return count, expiry.Sub(now), nil
}

// RPush appends values to the list stored at key.
func (s *DatabaseStore) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if len(values) == 0 {
		return 0, errors.New("cache: RPUSH requires at least one value")
	}
	ctx, err := s.check(ctx)
	if err != nil {
		return 0, err
	}

	var length int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]models.ListEntry, 0, len(values))
		for _, v := range values {
			rows = append(rows, models.ListEntry{Key: key, Value: v})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&models.ListEntry{}).Where(keyEq(key)).Count(&length).Error
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

// LRange returns list elements in insertion order between start and stop inclusive.
func (s *DatabaseStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return nil, err
	}

	var rows []models.ListEntry
	if err := s.db.WithContext(ctx).
		Where(keyEq(key)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	lo, hi, ok := rangeBounds(int64(len(rows)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}

	out := make([][]byte, 0, hi-lo)
	for _, row := range rows[lo:hi] {
		out = append(out, row.Value)
	}
	return out, nil
}

// Expire sets a deadline on an existing scalar key. Lists do not expire in this store.
func (s *DatabaseStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return false, err
	}

	now := s.clock()
	if ttl <= 0 {
		result := s.db.WithContext(ctx).Where(keyEq(key)).Delete(&models.CacheEntry{})
		return result.RowsAffected > 0, result.Error
	}

	result := s.db.WithContext(ctx).
		Model(&models.CacheEntry{}).
		Where(keyEq(key)).
		Where("expires_at IS NULL OR expires_at = ? OR expires_at > ?", time.Time{}, now).
		Update("expires_at", now.Add(ttl))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FlushAll removes every scalar and list entry.
func (s *DatabaseStore) FlushAll(ctx context.Context) error {
	ctx, err := s.check(ctx)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CacheEntry{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ListEntry{}).Error
	})
}

// KeyCount reports live scalar keys plus distinct list keys.
func (s *DatabaseStore) KeyCount(ctx context.Context) (int64, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return 0, err
	}

	var scalars, lists int64
	if err := s.db.WithContext(ctx).
		Model(&models.CacheEntry{}).
		Where("expires_at IS NULL OR expires_at = ? OR expires_at > ?", time.Time{}, s.clock()).
		Count(&scalars).Error; err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.ListEntry{}).
		Distinct("key").
		Count(&lists).Error; err != nil {
		return 0, err
	}
	return scalars + lists, nil
}

// PurgeExpired deletes scalar entries whose deadline has passed and returns how many rows
// were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, err := s.check(ctx)
	if err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.clock()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
