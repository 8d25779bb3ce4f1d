// Package metrics exposes Prometheus instrumentation for bound documents.
//
// A nil *Collector is valid and records nothing, so components can call it
// unconditionally.
//
// Metrics collected (default namespace "scopebind"):
//   - scopebind_flushes_total: scheduler flushes that ran at least one task
//   - scopebind_tasks_total: tasks executed by flushes
//   - scopebind_task_panics_total: tasks that panicked, by task name
//   - scopebind_flush_duration_seconds: flush duration histogram
//   - scopebind_list_renders_total: list/table renders by strategy
//   - scopebind_cleanups_total: cleanup callbacks run by the lifecycle tracker
//   - scopebind_actions_total: delegated actions by result
//   - scopebind_bound_roots: roots currently bound
//   - scopebind_live_clients: connected live-server clients
//   - scopebind_broadcasts_total: renders pushed to live-server clients
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "scopebind").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the flush duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "scopebind",
		Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records engine, scheduler and live-server metrics.
type Collector struct {
	flushes       prometheus.Counter
	tasks         prometheus.Counter
	taskPanics    *prometheus.CounterVec
	flushDuration prometheus.Histogram
	listRenders   *prometheus.CounterVec
	cleanups      prometheus.Counter
	actions       *prometheus.CounterVec
	boundRoots    prometheus.Gauge
	liveClients   prometheus.Gauge
	broadcasts    prometheus.Counter
}

// New creates a Collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		flushes:    counter("flushes_total", "Scheduler flushes that ran at least one task"),
		tasks:      counter("tasks_total", "Scheduled tasks executed"),
		taskPanics: counterVec("task_panics_total", "Scheduled tasks that panicked", "task"),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		listRenders: counterVec("list_renders_total", "List and table renders by strategy", "strategy"),
		cleanups:    counter("cleanups_total", "Cleanup callbacks run by the lifecycle tracker"),
		actions:     counterVec("actions_total", "Delegated actions by result", "result"),
		boundRoots:  gauge("bound_roots", "Roots currently bound"),
		liveClients: gauge("live_clients", "Connected live-server clients"),
		broadcasts:  counter("broadcasts_total", "Renders pushed to live-server clients"),
	}
}

// ObserveFlush records one scheduler flush.
func (c *Collector) ObserveFlush(tasks int, d time.Duration) {
	if c == nil {
		return
	}
	c.flushes.Inc()
	c.tasks.Add(float64(tasks))
	c.flushDuration.Observe(d.Seconds())
}

// TaskPanicked records a recovered task panic.
func (c *Collector) TaskPanicked(name string) {
	if c == nil {
		return
	}
	c.taskPanics.WithLabelValues(name).Inc()
}

// ListRendered records a list render with the given strategy
// ("full", "incremental" or "skipped").
func (c *Collector) ListRendered(strategy string) {
	if c == nil {
		return
	}
	c.listRenders.WithLabelValues(strategy).Inc()
}

// CleanupsRun records n cleanup callbacks.
func (c *Collector) CleanupsRun(n int) {
	if c == nil || n == 0 {
		return
	}
	c.cleanups.Add(float64(n))
}

// ActionDispatched records a delegated action with the given result
// ("ok", "ignored", "missing" or "panic").
func (c *Collector) ActionDispatched(result string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(result).Inc()
}

// RootBound adjusts the bound roots gauge by delta.
func (c *Collector) RootBound(delta int) {
	if c == nil {
		return
	}
	c.boundRoots.Add(float64(delta))
}

// ClientConnected adjusts the live clients gauge by delta.
func (c *Collector) ClientConnected(delta int) {
	if c == nil {
		return
	}
	c.liveClients.Add(float64(delta))
}

// Broadcast records a render pushed to clients.
func (c *Collector) Broadcast() {
	if c == nil {
		return
	}
	c.broadcasts.Inc()
}
