package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/callcache/internal/app"
	"github.com/charlesng35/callcache/internal/app/maintenance"
	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/database"
	"github.com/charlesng35/callcache/internal/instrument"
	"github.com/charlesng35/callcache/internal/monitoring"
	"github.com/charlesng35/callcache/internal/monitoring/checks"
	"github.com/charlesng35/callcache/internal/pagecache"
	"github.com/charlesng35/callcache/internal/valuecache"
	"github.com/charlesng35/callcache/pkg/logger"
)

// Store backends.
const (
	backendAuto     = "auto"
	backendRedis    = "redis"
	backendDatabase = "database"
	backendMemory   = "memory"
)

// runtimeStack bundles the services shared by every command.
type runtimeStack struct {
	Config     *app.Config
	DB         *gorm.DB
	Redis      *cache.RedisClient
	Store      cache.Store
	Backend    string
	Monitoring *monitoring.Module
	Values     *valuecache.Cache
	Pages      *pagecache.PageCache
	Cleaner    *maintenance.Cleaner
}

// runtimeOptions toggles the long-running parts of the stack.
type runtimeOptions struct {
	StartMaintenance bool
}

// bootstrapRuntime connects the store and builds the value and page caches on top of it.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, opts runtimeOptions) (_ *runtimeStack, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	log := logger.WithModule("bootstrap")

	stack := &runtimeStack{Config: cfg}
	defer func() {
		if err != nil {
			_ = stack.Shutdown(context.Background())
		}
	}()

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	if err = stack.selectStore(log); err != nil {
		return nil, err
	}
	monitoring.SetStoreBackend(stack.Backend)

	if cfg.Monitoring.Health.Enabled {
		health := stack.Monitoring.Health()
		health.RegisterLiveness(checks.Maintenance(0))
		health.RegisterReadiness(checks.Store(stack.Store, stack.Backend, 2*time.Second))
		if stack.DB != nil {
			health.RegisterReadiness(checks.Database(stack.DB, 2*time.Second))
		}
	}

	stack.Values = valuecache.New(stack.Store, valuecache.WithHooks(
		instrument.Metrics(stack.Monitoring),
		instrument.Logging(logger.WithModule("valuecache")),
	))
	if cfg.ValueCache.FlushOnStart {
		if err = stack.Values.Flush(ctx); err != nil {
			return nil, err
		}
		log.Info("store flushed on start", zap.String("backend", stack.Backend))
	}

	pageOpts, err := cfg.PageCache.Options()
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	pageOpts.Metrics = stack.Monitoring
	fetcher := pagecache.NewHTTPFetcher(cfg.PageCache.FetchTimeout, pagecache.WithMaxBodyBytes(cfg.PageCache.MaxBodyBytes))
	stack.Pages = pagecache.New(stack.Store, fetcher, pageOpts)

	if opts.StartMaintenance && cfg.Maintenance.Enabled {
		// Redis expires keys itself, so only the database and memory stores need purging.
		if p, ok := stack.Store.(maintenance.Purger); ok {
			stack.Cleaner = maintenance.NewCleaner([]maintenance.Purger{p}, maintenance.WithPurgeSchedule(cfg.Maintenance.PurgeSchedule))
			if err = stack.Cleaner.Start(); err != nil {
				return nil, fmt.Errorf("start maintenance jobs: %w", err)
			}
		}
	}

	return stack, nil
}

// selectStore resolves cache.backend. auto prefers a reachable Redis and falls back to the
// database.
func (s *runtimeStack) selectStore(log *zap.Logger) error {
	cfg := s.Config
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if backend == "" {
		backend = backendAuto
	}

	switch backend {
	case backendMemory:
		s.Store = cache.NewMemoryStore(nil)
		s.Backend = backendMemory
		return nil
	case backendRedis:
		client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.Redis, s.Store, s.Backend = client, client, backendRedis
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		return nil
	case backendAuto:
		if cfg.Cache.Redis.Enabled {
			client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
			if err == nil {
				s.Redis, s.Store, s.Backend = client, client, backendRedis
				log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
				return nil
			}
			log.Warn("redis unavailable; falling back to database store", zap.Error(err))
		}
		fallthrough
	case backendDatabase:
		db, err := initialiseDatabase(cfg)
		if err != nil {
			return err
		}
		s.DB = db
		s.Store = cache.NewDatabaseStore(db)
		s.Backend = backendDatabase
		return nil
	default:
		return fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}

// Shutdown stops background jobs and releases connections.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.WithModule("bootstrap")

	var errs error
	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
		s.Redis = nil
	}

	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
		s.DB = nil
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.OpenAndMigrate(dbCfg)
	if err != nil {
		return nil, err
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

// loadApplicationConfig accepts a configuration directory or file. An empty path searches
// the default locations.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return app.LoadConfig(path)
	case err == nil:
		return app.LoadConfigFile(path)
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	default:
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}
