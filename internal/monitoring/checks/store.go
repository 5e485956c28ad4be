// Package checks holds the health checks registered for the key-value store, its SQL
// backing database and the expiry purge job.
package checks

import (
	"context"
	"time"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/monitoring"
)

const defaultProbeTimeout = 2 * time.Second

// Pinger is the part of cache.Store the store check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

func checkTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultProbeTimeout
	}
	return timeout
}

// Store returns a readiness check that pings the active key-value store. The result names
// the backend and, for stores implementing cache.KeyCounter, how many keys they hold. A
// failing key count degrades the check without taking it down.
func Store(store Pinger, backend string, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("store", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "store not configured"}
		}

		ctx, cancel := context.WithTimeout(ctx, checkTimeout(timeout))
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			return monitoring.ResultFromError("store", err, time.Since(start))
		}

		result := monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Metadata: map[string]any{"backend": backend},
		}
		if counter, ok := store.(cache.KeyCounter); ok {
			keys, err := counter.KeyCount(ctx)
			if err != nil {
				result.Status = monitoring.StatusDegraded
				result.Details = "key count: " + err.Error()
			} else {
				result.Metadata["keys"] = keys
			}
		}
		result.Duration = time.Since(start)
		return result
	})
}
