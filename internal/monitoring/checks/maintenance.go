package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/callcache/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance is a liveness check over the recorded maintenance runs, such as the expired
// entry purge. A job that keeps failing is down; one that has not run within maxAge is
// degraded. maxAge defaults to six hours.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		summary := monitoring.Snapshot()
		result := monitoring.ProbeResult{Status: monitoring.StatusUp}
		if len(summary.Maintenance.Jobs) == 0 {
			result.Details = "no maintenance jobs registered"
			return result
		}

		now := time.Now()
		var problems []string
		meta := map[string]any{"purged_entries": summary.PurgedEntries}
		for _, job := range summary.Maintenance.Jobs {
			meta[job.Job+"_last_status"] = job.LastStatus
			switch {
			case job.TotalRuns == 0:
				problems = append(problems, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				result.Status = monitoring.WorseStatus(result.Status, monitoring.StatusDown)
				reason := job.LastError
				if reason == "" {
					reason = "consecutive failures"
				}
				problems = append(problems, job.Job+": "+reason)
			case now.Sub(job.LastRunAt) > maxAge:
				result.Status = monitoring.WorseStatus(result.Status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}
		result.Details = strings.Join(problems, "; ")
		result.Metadata = meta
		return result
	})
}
