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

// severity orders statuses so reports can keep the worst one.
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

// Worst returns the more severe of two statuses.
func Worst(a, b ProbeStatus) ProbeStatus {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results for a liveness or readiness evaluation.
type HealthReport struct {
	Success   bool          `json:"success"`
	Status    ProbeStatus   `json:"status"`
	CheckedAt time.Time     `json:"checkedAt"`
	Checks    []ProbeResult `json:"checks"`
}

// Check encapsulates a single dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

const defaultCheckTimeout = 5 * time.Second

// NewCheck constructs a health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager coordinates liveness and readiness probes.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
	timeout   time.Duration
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{timeout: defaultCheckTimeout}
}

// SetTimeout overrides the per-probe deadline.
func (m *HealthManager) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
}

// RegisterLiveness appends a liveness probe.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.liveness = append(m.liveness, check)
	m.mu.Unlock()
}

// RegisterReadiness appends a readiness probe.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.readiness = append(m.readiness, check)
	m.mu.Unlock()
}

// EvaluateLiveness executes all configured liveness checks.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.liveness...)
	timeout := m.timeout
	m.mu.RUnlock()
	return evaluate(ctx, checks, timeout)
}

// EvaluateReadiness executes all configured readiness checks.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.readiness...)
	timeout := m.timeout
	m.mu.RUnlock()
	return evaluate(ctx, checks, timeout)
}

// evaluate runs probes concurrently; results keep registration order.
func evaluate(ctx context.Context, checks []Check, timeout time.Duration) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ProbeResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = runCheck(ctx, check, timeout)
		}(i, check)
	}
	wg.Wait()

	return buildReport(results)
}

func runCheck(ctx context.Context, check Check, timeout time.Duration) (result ProbeResult) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprintf("panic: %v", rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(probeCtx)
}

func buildReport(results []ProbeResult) HealthReport {
	status := StatusUp
	for _, r := range results {
		status = Worst(status, r.Status)
	}
	if results == nil {
		results = []ProbeResult{}
	}
	return HealthReport{
		Success:   status == StatusUp,
		Status:    status,
		CheckedAt: time.Now().UTC(),
		Checks:    results,
	}
}

// MergeReports combines liveness and readiness results into the /health payload.
func MergeReports(live, ready HealthReport) HealthReport {
	checks := make([]ProbeResult, 0, len(live.Checks)+len(ready.Checks))
	checks = append(checks, live.Checks...)
	checks = append(checks, ready.Checks...)
	return buildReport(checks)
}

// ResultFromError converts an error into a ProbeResult. Timeouts degrade
// rather than fail the component.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
