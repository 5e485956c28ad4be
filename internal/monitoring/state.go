package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	pageHits      atomic.Uint64
	pageMisses    atomic.Uint64
	rateLimited   atomic.Uint64
	purgedEntries atomic.Uint64
	storeBackend  atomic.Value // string

	operations  sync.Map // string -> *operationStats
	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	store := &statStore{}
	store.storeBackend.Store("")
	return store
}

func (s *statStore) cloneOperations() []OperationSummary {
	summaries := []OperationSummary{}
	s.operations.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*operationStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Operation < summaries[j].Operation })
	return summaries
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func (s *statStore) summary() Summary {
	backend, _ := s.storeBackend.Load().(string)
	return Summary{
		GeneratedAt:  time.Now(),
		StoreBackend: backend,
		Operations:   s.cloneOperations(),
		PageCache: PageCacheSummary{
			Hits:   s.pageHits.Load(),
			Misses: s.pageMisses.Load(),
		},
		RateLimited:   s.rateLimited.Load(),
		PurgedEntries: s.purgedEntries.Load(),
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) operationEntry(operation string) *operationStats {
	value, ok := s.operations.Load(operation)
	if ok {
		return value.(*operationStats)
	}
	stats := &operationStats{}
	actual, _ := s.operations.LoadOrStore(operation, stats)
	return actual.(*operationStats)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type operationStats struct {
	success        atomic.Uint64
	failure        atomic.Uint64
	lastDuration   atomic.Int64
	lastCompleted  atomic.Int64
	totalLatencyNs atomic.Uint64
}

func (o *operationStats) record(result string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	if result == "success" {
		o.success.Add(1)
	} else {
		o.failure.Add(1)
	}
	o.lastDuration.Store(int64(duration))
	o.lastCompleted.Store(time.Now().UnixNano())
	o.totalLatencyNs.Add(uint64(duration))
}

func (o *operationStats) snapshot(operation string) OperationSummary {
	success := o.success.Load()
	failure := o.failure.Load()

	var avg float64
	if total := success + failure; total > 0 {
		avg = float64(o.totalLatencyNs.Load()) / float64(total) / float64(time.Second)
	}

	return OperationSummary{
		Operation:             operation,
		Success:               success,
		Failure:               failure,
		LastDuration:          time.Duration(o.lastDuration.Load()),
		LastCompletedAt:       time.Unix(0, o.lastCompleted.Load()),
		AverageLatencySeconds: avg,
	}
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)
	lastRun := time.Unix(0, m.lastRun.Load())
	lastSuccess := time.Unix(0, m.lastSuccessfulRun.Load())

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           lastRun,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       lastSuccess,
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
