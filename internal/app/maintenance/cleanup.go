package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/callcache/internal/monitoring"
	"github.com/charlesng35/callcache/pkg/logger"
)

const (
	purgeJob             = "purge_expired"
	defaultPurgeSchedule = "@every 1m"
	defaultRunTimeout    = 30 * time.Second
)

// Purger removes entries whose deadline has passed and reports how many were dropped.
// The database and in-memory stores implement it; Redis expires keys on its own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner runs periodic maintenance against the key-value store.
type Cleaner struct {
	purgers  []Purger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
	timeout  time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to time runs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithPurgeSchedule overrides the cron expression for the purge job.
func WithPurgeSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.schedule = schedule
		}
	}
}

// WithRunTimeout bounds a single scheduled run.
func WithRunTimeout(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.timeout = d
		}
	}
}

// NewCleaner constructs a Cleaner. Nil purgers are ignored; with none left Start is a no-op.
func NewCleaner(purgers []Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:      time.Now,
		schedule: defaultPurgeSchedule,
		timeout:  defaultRunTimeout,
		log:      logger.WithModule("maintenance"),
	}
	for _, p := range purgers {
		if p != nil {
			cleaner.purgers = append(cleaner.purgers, p)
		}
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Enabled reports whether any purge target is configured.
func (c *Cleaner) Enabled() bool {
	return c != nil && len(c.purgers) > 0
}

// Start registers the purge job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.RunOnce(ctx); err != nil {
			c.log.Warn("purge expired entries failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c == nil || c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce purges every configured target and records the run with the monitoring module.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := c.now()
	var (
		errs   error
		purged int64
	)
	for _, p := range c.purgers {
		n, err := p.PurgeExpired(ctx)
		purged += n
		errs = multierr.Append(errs, err)
	}
	duration := c.now().Sub(start)

	monitoring.RecordPurgedEntries(purged)
	if errs != nil {
		monitoring.RecordMaintenanceRun(purgeJob, "failure", errs.Error(), duration)
		return errs
	}

	monitoring.RecordMaintenanceRun(purgeJob, "success", "", duration)
	if purged > 0 {
		c.log.Debug("purged expired entries", zap.Int64("count", purged))
	}
	return nil
}
