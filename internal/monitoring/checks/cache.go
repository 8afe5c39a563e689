package checks

import (
	"context"
	"time"

	"github.com/upskeel/lms/internal/monitoring"
)

const defaultCacheTimeout = 2 * time.Second

// Pinger is satisfied by cache stores that can verify their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache returns a readiness probe for the rate-limit cache backend. A missing
// backend degrades the service since limits fall back to the database.
func Cache(backend string, client Pinger, timeout time.Duration) monitoring.Check {
	name := "cache"
	if backend != "" {
		name = "cache:" + backend
	}
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "cache unavailable"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			return monitoring.ResultFromError(name, err, time.Since(start))
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
