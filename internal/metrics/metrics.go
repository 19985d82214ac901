// Package metrics tracks scheduler activity with Prometheus collectors and
// exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nextup"

// Metrics holds the scheduler collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TasksAdded     prometheus.Counter
	TasksCompleted prometheus.Counter
	Rejections     *prometheus.CounterVec
	SaveFailures   prometheus.Counter
	Pending        prometheus.Gauge
	Executable     prometheus.Gauge
	Completed      prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TasksAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_added_total",
			Help:      "Tasks added to the pending collection.",
		}),
		TasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Tasks moved to the completed set.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_rejected_total",
			Help:      "Operations rejected, by reason.",
		}, []string{"op", "reason"}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "State saves that failed and were rolled back.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tasks",
			Help:      "Tasks currently pending.",
		}),
		Executable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executable_tasks",
			Help:      "Pending tasks whose dependencies are all completed.",
		}),
		Completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completed_tasks",
			Help:      "Names in the completed set.",
		}),
	}
	m.registry.MustRegister(
		m.TasksAdded,
		m.TasksCompleted,
		m.Rejections,
		m.SaveFailures,
		m.Pending,
		m.Executable,
		m.Completed,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Reject counts a rejected operation.
func (m *Metrics) Reject(op, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(op, reason).Inc()
}

// Observe sets the state gauges.
func (m *Metrics) Observe(pending, executable, completed int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(pending))
	m.Executable.Set(float64(executable))
	m.Completed.Set(float64(completed))
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
