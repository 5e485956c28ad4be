package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func setupModule(t *testing.T) *Module {
	t.Helper()

	mod, err := NewModule(Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	SetModule(mod)
	t.Cleanup(resetModule)
	return mod
}

func TestSummaryAggregatesMetrics(t *testing.T) {
	mod := setupModule(t)

	RecordOperation("valuecache.Cache.Store", "success", 2*time.Millisecond)
	RecordOperation("valuecache.Cache.Store", "failure", 4*time.Millisecond)
	RecordPageLookup(true)
	RecordPageLookup(false)
	RecordPageLookup(false)
	RecordRateLimited("/api/values")
	RecordPurgedEntries(3)
	RecordPurgedEntries(0)
	SetStoreBackend("Redis")
	RecordMaintenanceRun("purge_expired", "success", "", time.Second)

	summary := Snapshot()
	require.Equal(t, "redis", summary.StoreBackend)
	require.Len(t, summary.Operations, 1)
	require.Equal(t, uint64(1), summary.Operations[0].Success)
	require.Equal(t, uint64(1), summary.Operations[0].Failure)
	require.InDelta(t, 0.003, summary.Operations[0].AverageLatencySeconds, 1e-9)
	require.Equal(t, PageCacheSummary{Hits: 1, Misses: 2}, summary.PageCache)
	require.Equal(t, uint64(1), summary.RateLimited)
	require.Equal(t, uint64(3), summary.PurgedEntries)
	require.Len(t, summary.Maintenance.Jobs, 1)

	require.Equal(t, 1.0, testutil.ToFloat64(mod.metrics.pageCacheRequests.WithLabelValues("hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(mod.metrics.pageCacheRequests.WithLabelValues("miss")))
	require.Equal(t, 3.0, testutil.ToFloat64(mod.metrics.purgedEntries))
}

func TestRecordersAreNoopsWithoutModule(t *testing.T) {
	resetModule()

	RecordOperation("op", "success", time.Millisecond)
	RecordPageLookup(true)
	ObservePageFetch(time.Millisecond)
	ObserveAPILatency("GET", "/health", "200", time.Millisecond)
	SetStoreBackend("database")

	var nilModule *Module
	nilModule.RecordOperation("op", "success", time.Millisecond)
	require.Empty(t, Snapshot().Operations)
}

func TestStoreBackendGaugeKeepsSingleSeries(t *testing.T) {
	mod := setupModule(t)

	SetStoreBackend("redis")
	SetStoreBackend("database")

	expected := `
# HELP callcache_store_backend_info Active key-value store backend (1 for the selected backend)
# TYPE callcache_store_backend_info gauge
callcache_store_backend_info{backend="database"} 1
`
	require.NoError(t, testutil.GatherAndCompare(mod.Registry(), strings.NewReader(expected), "callcache_store_backend_info"))
}

func TestHealthManagerEvaluate(t *testing.T) {
	manager := NewHealthManager()
	manager.RegisterReadiness(NewCheck("database", func(ctx context.Context) ProbeResult {
		return ProbeResult{Status: StatusUp}
	}))
	manager.RegisterReadiness(NewCheck("store", func(ctx context.Context) ProbeResult {
		return ProbeResult{Status: StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
}

func TestHealthManagerRecoversPanickingCheck(t *testing.T) {
	manager := NewHealthManager()
	manager.RegisterLiveness(NewCheck("boom", func(ctx context.Context) ProbeResult {
		panic("kaboom")
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, "kaboom", report.Checks[0].Details)
	require.Equal(t, "boom", report.Checks[0].Component)
}

func TestMergeReports(t *testing.T) {
	live := HealthReport{Checks: []ProbeResult{{Component: "process", Status: StatusUp}}}
	ready := HealthReport{Checks: []ProbeResult{{Component: "store", Status: StatusDegraded}}}

	merged := MergeReports(live, ready)
	require.False(t, merged.Success)
	require.Equal(t, StatusDegraded, merged.Status)
	require.Len(t, merged.Checks, 2)
}

func TestHealthManagerReportsNonStringPanics(t *testing.T) {
	manager := NewHealthManager()
	manager.RegisterReadiness(NewCheck("counter", func(ctx context.Context) ProbeResult {
		panic(42)
	}))
	manager.RegisterReadiness(NewCheck("empty", func(ctx context.Context) ProbeResult {
		return ProbeResult{}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, "panic: 42", report.Checks[0].Details)
	require.Equal(t, StatusDown, report.Checks[1].Status)
	require.False(t, report.CheckedAt.IsZero())
}

func TestWorseStatus(t *testing.T) {
	require.Equal(t, StatusDegraded, WorseStatus(StatusUp, StatusDegraded))
	require.Equal(t, StatusDown, WorseStatus(StatusDown, StatusDegraded))
	require.Equal(t, StatusUp, WorseStatus(StatusUp, StatusUp))
	require.Equal(t, StatusDown, WorseStatus(StatusUp, ""))
	require.Equal(t, StatusDown, WorseStatus("", StatusUp))
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, StatusUp, ResultFromError("store", nil, time.Millisecond).Status)
	require.Equal(t, StatusDegraded, ResultFromError("store", context.DeadlineExceeded, 0).Status)

	down := ResultFromError("store", errors.New("refused"), -time.Second)
	require.Equal(t, StatusDown, down.Status)
	require.Equal(t, "refused", down.Details)
	require.Zero(t, down.Duration)
}
