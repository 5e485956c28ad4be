package monitoring

import (
	"strings"
	"time"
)

// RecordOperation records one invocation of an instrumented operation.
func (m *Module) RecordOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	result = normalizeLabel(result)
	m.metrics.operationCalls.WithLabelValues(op, result).Inc()
	observeDuration(m.metrics.operationDuration.WithLabelValues(op), duration)
	m.stats.operationEntry(op).record(result, duration)
}

// RecordOperation records an operation invocation on the process-wide module.
func RecordOperation(operation, result string, duration time.Duration) {
	ensureModule().RecordOperation(operation, result, duration)
}

// RecordPageLookup counts a page cache hit or miss.
func (m *Module) RecordPageLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.stats.pageHits.Add(1)
	} else {
		m.stats.pageMisses.Add(1)
	}
	m.metrics.pageCacheRequests.WithLabelValues(result).Inc()
}

// RecordPageLookup counts a page cache lookup on the process-wide module.
func RecordPageLookup(hit bool) {
	ensureModule().RecordPageLookup(hit)
}

// ObservePageFetch records the latency of an upstream fetch.
func (m *Module) ObservePageFetch(duration time.Duration) {
	if m == nil {
		return
	}
	observeDuration(m.metrics.pageFetchDuration, duration)
}

// ObservePageFetch records fetch latency on the process-wide module.
func ObservePageFetch(duration time.Duration) {
	ensureModule().ObservePageFetch(duration)
}

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(path string) {
	module := ensureModule()
	if module == nil {
		return
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	module.metrics.rateLimited.WithLabelValues(path).Inc()
	module.stats.rateLimited.Add(1)
}

// SetStoreBackend marks which store backend is serving requests.
func SetStoreBackend(backend string) {
	module := ensureModule()
	if module == nil {
		return
	}
	backend = normalizeLabel(backend)
	module.metrics.storeBackend.Reset()
	module.metrics.storeBackend.WithLabelValues(backend).Set(1)
	module.stats.storeBackend.Store(backend)
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

// RecordPurgedEntries adds n to the purged entry counter.
func RecordPurgedEntries(n int64) {
	module := ensureModule()
	if module == nil || n <= 0 {
		return
	}
	module.metrics.purgedEntries.Add(float64(n))
	module.stats.purgedEntries.Add(uint64(n))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

func sanitizePath(path string) string {
	if path == "" {
		return ""
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	return normalizePath(path)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, " ", "_")
	if path == "" {
		return "root"
	}
	return path
}
