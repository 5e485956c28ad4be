// Package valuecache stores scalar values under generated keys and tracks every store
// call through the instrumentation pipeline.
package valuecache

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/instrument"
	apperrors "github.com/charlesng35/callcache/pkg/errors"
)

// Cache writes values to a Store under fresh UUID keys. Store calls are counted and their
// inputs and outputs recorded under the cache's operation name.
type Cache struct {
	store     cache.Store
	pipeline  *instrument.Pipeline
	operation string
	newKey    func() string
}

// Option customises a Cache.
type Option func(*Cache)

// WithHooks appends hooks after the built-in counter and history hooks.
func WithHooks(hooks ...instrument.Hook) Option {
	return func(c *Cache) {
		c.pipeline = c.pipeline.With(hooks...)
	}
}

// WithKeyGenerator replaces the UUID key generator.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Cache) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// New constructs a Cache on top of store.
func New(store cache.Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		pipeline: instrument.NewPipeline(instrument.Counter(store), instrument.CallHistory(store)),
		newKey:   uuid.NewString,
	}
	c.operation = instrument.OperationName(c.Store)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Operation is the label counters and history are stored under.
func (c *Cache) Operation() string {
	return c.operation
}

// Store saves data under a new key and returns the key. data must be a string, a byte
// slice, an integer or a float.
func (c *Cache) Store(ctx context.Context, data any) (string, error) {
	encoded, err := Encode(data)
	if err != nil {
		return "", err
	}

	result, err := c.pipeline.Run(ctx, c.operation, []any{data}, func(ctx context.Context) (any, error) {
		key := c.newKey()
		if err := c.store.Set(ctx, key, encoded, 0); err != nil {
			return nil, fmt.Errorf("store value: %w", err)
		}
		return key, nil
	})
	key, _ := result.(string)
	return key, err
}

// Get returns the raw bytes stored under key. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, ok, nil
}

// GetWith reads key and converts the raw value with fn. fn also runs on a miss and then
// receives nil.
func GetWith[T any](ctx context.Context, c *Cache, key string, fn func([]byte) (T, error)) (T, error) {
	var zero T
	value, _, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	return fn(value)
}

// GetStr reads key as UTF-8 text. A miss returns ErrValueNotFound and undecodable bytes
// return ErrValueNotText.
func (c *Cache) GetStr(ctx context.Context, key string) (string, error) {
	return GetWith(ctx, c, key, func(raw []byte) (string, error) {
		if raw == nil {
			return "", apperrors.ErrValueNotFound.WithMessage(fmt.Sprintf("no value stored under key %q", key))
		}
		if !utf8.Valid(raw) {
			return "", apperrors.ErrValueNotText
		}
		return string(raw), nil
	})
}

// GetInt reads key as a decimal integer. A miss or a value that does not parse yields 0.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	return GetWith(ctx, c, key, func(raw []byte) (int64, error) {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, nil
		}
		return n, nil
	})
}

// Flush removes every key in the store, counters and history included.
func (c *Cache) Flush(ctx context.Context) error {
	if err := c.store.FlushAll(ctx); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

// Encode converts a supported scalar into the bytes written to the store.
func Encode(data any) ([]byte, error) {
	switch v := data.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return append([]byte{}, v...), nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
	default:
		return nil, apperrors.ErrUnsupportedValue.WithMessage(fmt.Sprintf("unsupported value type %T", data))
	}
}

// Parse converts text input into a typed value for Store. kind is one of string, bytes,
// int or float; empty means string.
func Parse(raw, kind string) (any, error) {
	switch kind {
	case "", "string":
		return raw, nil
	case "bytes":
		return []byte(raw), nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("%q is not an integer", raw))
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("%q is not a float", raw))
		}
		return f, nil
	default:
		return nil, apperrors.ErrUnsupportedValue.WithMessage(fmt.Sprintf("unsupported value type %q", kind))
	}
}
