package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ModuleMetrics records native module activity segmented by module, operation
// and outcome.
type ModuleMetrics struct {
	operations *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *ModuleMetrics
)

// Metrics returns the lazily-initialised module metrics registry.
func Metrics() *ModuleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &ModuleMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "module",
				Name:      "operations_total",
				Help:      "Total native module operations segmented by module, operation, and outcome.",
			}, []string{"module", "operation", "outcome"}),
		}
	})
	return moduleRegistry
}

// Register attaches the collectors to the provided registry. Double
// registration is tolerated so tests can share the process-wide registry.
func (m *ModuleMetrics) Register(reg prometheus.Registerer) {
	if m == nil || reg == nil {
		return
	}
	if err := reg.Register(m.operations); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// Record counts one operation with the given outcome.
func (m *ModuleMetrics) Record(module, operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(module, operation, outcome).Inc()
}
