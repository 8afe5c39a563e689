package monitoring

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// Namespace prefixes the module's own collectors. Defaults to "lms".
	Namespace string
}

// Module owns the health manager, the background job tracker and the
// Prometheus registry exposed at /metrics.
type Module struct {
	registry *prometheus.Registry
	jobs     *JobTracker
	health   *HealthManager
}

// NewModule constructs a monitoring module with its own Prometheus registry.
func NewModule(opts Options) (*Module, error) {
	namespace := strings.TrimSpace(opts.Namespace)
	if namespace == "" {
		namespace = "lms"
	}

	// Go runtime and process collectors live on the default registry.
	registry := prometheus.NewRegistry()
	jobs := newJobTracker(namespace)
	for _, collector := range jobs.collectors() {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &Module{
		registry: registry,
		jobs:     jobs,
		health:   NewHealthManager(),
	}, nil
}

// Registry exposes the underlying Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the module registry together with the application counters
// registered on the default registry.
func (m *Module) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	gatherers := prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// Jobs returns the background job tracker.
func (m *Module) Jobs() *JobTracker {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Health exposes the health manager responsible for liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var globalModule atomic.Pointer[Module]

// SetModule configures the process-wide monitoring module.
func SetModule(module *Module) {
	if module == nil {
		return
	}
	globalModule.Store(module)
}

// CurrentModule returns the process-wide monitoring module, or nil when unset.
func CurrentModule() *Module {
	return globalModule.Load()
}
