package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/callcache/internal/app"
	"github.com/charlesng35/callcache/internal/monitoring"
)

func loadTestConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "callcache.sqlite")
	cfg.Cache.Redis.Timeout = 200 * time.Millisecond
	return cfg
}

func TestBootstrapMemoryBackend(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Cache.Backend = "memory"

	stack, err := bootstrapRuntime(context.Background(), cfg, runtimeOptions{StartMaintenance: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown(context.Background())) })

	assert.Equal(t, "memory", stack.Backend)
	assert.Nil(t, stack.DB)
	assert.NotNil(t, stack.Cleaner)
	assert.Equal(t, "memory", monitoring.Snapshot().StoreBackend)

	key, err := stack.Values.Store(context.Background(), "x")
	require.NoError(t, err)
	value, err := stack.Values.GetStr(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "x", value)
}

func TestBootstrapAutoFallsBackToDatabase(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Cache.Backend = "auto"
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "127.0.0.1:1"

	stack, err := bootstrapRuntime(context.Background(), cfg, runtimeOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown(context.Background())) })

	assert.Equal(t, "database", stack.Backend)
	assert.NotNil(t, stack.DB)
	assert.Nil(t, stack.Redis)

	report := stack.Monitoring.Health().EvaluateReadiness(context.Background())
	assert.True(t, report.Success)
}

func TestBootstrapRedisBackendRequiresConnection(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "127.0.0.1:1"

	_, err := bootstrapRuntime(context.Background(), cfg, runtimeOptions{})
	require.Error(t, err)
}

func TestBootstrapFlushOnStart(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Cache.Backend = "database"

	stack, err := bootstrapRuntime(context.Background(), cfg, runtimeOptions{})
	require.NoError(t, err)
	key, err := stack.Values.Store(context.Background(), "keep?")
	require.NoError(t, err)
	require.NoError(t, stack.Shutdown(context.Background()))

	cfg.ValueCache.FlushOnStart = true
	stack, err = bootstrapRuntime(context.Background(), cfg, runtimeOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown(context.Background())) })

	_, ok, err := stack.Values.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShutdownIsIdempotent(t *testing.T) {
	var nilStack *runtimeStack
	require.NoError(t, nilStack.Shutdown(context.Background()))

	cfg := loadTestConfig(t)
	cfg.Cache.Backend = "database"
	stack, err := bootstrapRuntime(context.Background(), cfg, runtimeOptions{StartMaintenance: true})
	require.NoError(t, err)
	require.NoError(t, stack.Shutdown(context.Background()))
	require.NoError(t, stack.Shutdown(context.Background()))
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9100\n"), 0o600))

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)

	custom := filepath.Join(dir, "other.yml")
	require.NoError(t, os.WriteFile(custom, []byte("server:\n  port: 9200\n"), 0o600))
	cfg, err = loadApplicationConfig(custom)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
