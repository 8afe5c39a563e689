package monitoring

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobSummary describes the recent history of a background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"lastStatus"`
	LastRunAt           time.Time     `json:"lastRunAt"`
	LastDuration        time.Duration `json:"lastDuration"`
	LastError           string        `json:"lastError,omitempty"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt"`
	ConsecutiveFailures uint64        `json:"consecutiveFailures"`
	TotalRuns           uint64        `json:"totalRuns"`
}

// JobTracker records maintenance job runs as metrics and in-memory summaries.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobSummary
	now  func() time.Time

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

func newJobTracker(namespace string) *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*JobSummary),
		now:  time.Now,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
	}
}

func (t *JobTracker) collectors() []prometheus.Collector {
	return []prometheus.Collector{t.runs, t.duration, t.lastRun}
}

// Record stores the outcome of one job run. result is "success" or a failure label.
func (t *JobTracker) Record(job, result, message string, duration time.Duration) {
	if t == nil {
		return
	}
	job = normalizeLabel(job)
	result = normalizeLabel(result)
	if duration < 0 {
		duration = 0
	}

	t.runs.WithLabelValues(job, result).Inc()
	t.duration.WithLabelValues(job).Observe(duration.Seconds())

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.jobs[job]
	if !ok {
		entry = &JobSummary{Job: job}
		t.jobs[job] = entry
	}
	entry.LastStatus = result
	entry.LastRunAt = now
	entry.LastDuration = duration
	entry.LastError = strings.TrimSpace(message)
	entry.TotalRuns++
	if result == "success" {
		entry.ConsecutiveFailures = 0
		entry.LastSuccessAt = now
		t.lastRun.WithLabelValues(job).Set(float64(now.Unix()))
	} else {
		entry.ConsecutiveFailures++
	}
}

// Snapshot returns job summaries sorted by name.
func (t *JobTracker) Snapshot() []JobSummary {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]JobSummary, 0, len(t.jobs))
	for _, entry := range t.jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
