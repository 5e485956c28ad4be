package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDegraded ProbeStatus = "degraded"
	StatusDown     ProbeStatus = "down"
)

func (s ProbeStatus) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// WorseStatus returns whichever of a and b is less healthy. An empty status counts as down.
func WorseStatus(a, b ProbeStatus) ProbeStatus {
	if b.severity() > a.severity() {
		if b == "" {
			return StatusDown
		}
		return b
	}
	if a == "" {
		return StatusDown
	}
	return a
}

// ProbeResult captures one probe outcome. Metadata carries probe specific facts such as the
// active store backend and its key count.
type ProbeResult struct {
	Component string         `json:"component"`
	Status    ProbeStatus    `json:"status"`
	Details   string         `json:"details,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// HealthReport aggregates check results for a liveness or readiness evaluation.
type HealthReport struct {
	Success   bool          `json:"success"`
	Status    ProbeStatus   `json:"status"`
	Checks    []ProbeResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func newReport(results []ProbeResult, at time.Time) HealthReport {
	status := StatusUp
	for _, r := range results {
		status = WorseStatus(status, r.Status)
	}
	if results == nil {
		results = []ProbeResult{}
	}
	return HealthReport{
		Success:   status == StatusUp,
		Status:    status,
		Checks:    results,
		CheckedAt: at.UTC(),
	}
}

// Check is a named health check.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck constructs a check. A nil fn always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager holds the liveness and readiness checks of the running process.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
	now       func() time.Time
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{now: time.Now}
}

// RegisterLiveness appends a liveness check. Unnamed checks are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.liveness = append(m.liveness, check)
	m.mu.Unlock()
}

// RegisterReadiness appends a readiness check. Unnamed checks are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.readiness = append(m.readiness, check)
	m.mu.Unlock()
}

// EvaluateLiveness runs every liveness check.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.liveness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

// EvaluateReadiness runs every readiness check.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.readiness...)
	m.mu.RUnlock()
	return m.evaluate(ctx, checks)
}

func (m *HealthManager) evaluate(ctx context.Context, checks []Check) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]ProbeResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, runCheck(ctx, check))
	}
	return newReport(results, m.now())
}

// runCheck executes one check, turning a panic into a down result.
func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: panicDetails(rec)}
		}
		result.Component = check.Name
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
	}()
	return check.Run(ctx)
}

func panicDetails(rec any) string {
	switch v := rec.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// MergeReports combines liveness and readiness results into one payload.
func MergeReports(live, ready HealthReport) HealthReport {
	results := append([]ProbeResult(nil), live.Checks...)
	results = append(results, ready.Checks...)
	at := live.CheckedAt
	if ready.CheckedAt.After(at) {
		at = ready.CheckedAt
	}
	return newReport(results, at)
}

// ResultFromError converts a check error into a result. Timeouts and cancellations count
// as degraded rather than down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	result := ProbeResult{Component: component, Status: StatusUp, Duration: max(duration, 0)}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		result.Status = StatusDegraded
		result.Details = err.Error()
	default:
		result.Status = StatusDown
		result.Details = err.Error()
	}
	return result
}
