package checks

import (
	"context"
	"strings"
	"time"

	"github.com/upskeel/lms/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance verifies that cleanup jobs keep succeeding within maxAge.
func Maintenance(jobs *monitoring.JobTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		summaries := jobs.Snapshot()
		if len(summaries) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no runs recorded"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string
		for _, job := range summaries {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": "+job.LastError)
			}
			if now.Sub(job.LastRunAt) > maxAge {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": last run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
