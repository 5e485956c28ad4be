package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/callcache/internal/monitoring"
)

// Database returns a readiness check for the SQL database behind the database store. The
// result carries the dialect and connection pool usage.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		ctx, cancel := context.WithTimeout(ctx, checkTimeout(timeout))
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		stats := sqlDB.Stats()
		driver := ""
		if db.Dialector != nil {
			driver = db.Dialector.Name()
		}
		return monitoring.ProbeResult{
			Status: monitoring.StatusUp,
			Metadata: map[string]any{
				"driver":           driver,
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
			},
			Duration: time.Since(start),
		}
	})
}
