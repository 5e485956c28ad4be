package monitoring

import "time"

// Summary surfaces aggregated monitoring data for the ops endpoints.
type Summary struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	StoreBackend  string             `json:"store_backend"`
	Operations    []OperationSummary `json:"operations"`
	PageCache     PageCacheSummary   `json:"page_cache"`
	RateLimited   uint64             `json:"rate_limited"`
	PurgedEntries uint64             `json:"purged_entries"`
	Maintenance   MaintenanceSummary `json:"maintenance"`
}

type OperationSummary struct {
	Operation             string        `json:"operation"`
	Success               uint64        `json:"success"`
	Failure               uint64        `json:"failure"`
	LastDuration          time.Duration `json:"last_duration"`
	LastCompletedAt       time.Time     `json:"last_completed_at"`
	AverageLatencySeconds float64       `json:"average_latency_seconds"`
}

type PageCacheSummary struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	return ensureModule().Summary()
}
