// Package metrics instruments the engine with Prometheus collectors,
// adapted from objectfs's internal/metrics/collector.go. Trimmed to the
// gauges/counters/histogram SPEC_FULL.md §2 names for a single-process,
// mmap'd index (no cache tiers, no active-connection count, no bundled
// HTTP server): the caller owns exposing the Registry however its host
// process already serves metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the Collector's namespace/subsystem labeling.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig returns the collector's default labeling.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Namespace: "ufs", Subsystem: ""}
}

// Collector holds every Prometheus collector the engine reports through.
// A disabled Collector (Config.Enabled == false) accepts every Record*/
// Set* call as a no-op, so callers never need a nil check.
type Collector struct {
	mu     sync.Mutex
	config *Config

	registry *prometheus.Registry

	filesInUse            prometheus.Gauge
	areasInUse            prometheus.Gauge
	nodesInUse            prometheus.Gauge
	stringBytesUsed       prometheus.Gauge
	externalFSBreakerOpen prometheus.Gauge

	operationsTotal *prometheus.CounterVec
	viewLatency     *prometheus.HistogramVec
}

// NewCollector builds a Collector and registers its metrics with a fresh
// Registry. A nil config uses DefaultConfig.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Collector{config: config}
	if !config.Enabled {
		return c, nil
	}

	c.registry = prometheus.NewRegistry()
	c.filesInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "files_in_use", Help: "Number of occupied slots in the Files table.",
	})
	c.areasInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "areas_in_use", Help: "Number of occupied slots in the Areas table.",
	})
	c.nodesInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "nodes_in_use", Help: "Number of occupied slots in the Nodes table.",
	})
	c.stringBytesUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "string_bytes_used", Help: "Bytes consumed in the string arena.",
	})
	c.externalFSBreakerOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "externalfs_breaker_open", Help: "1 if the externalfs circuit breaker is open, 0 otherwise.",
	})
	c.operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name: "operations_total", Help: "Total engine operations by operation and outcome.",
	}, []string{"op", "status"})
	c.viewLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace, Subsystem: config.Subsystem,
		Name:    "view_operation_duration_seconds",
		Help:    "Latency of ResolveStorageInView/IterateDirInView.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // 10us..~42s
	}, []string{"op"})

	for _, m := range []prometheus.Collector{
		c.filesInUse, c.areasInUse, c.nodesInUse, c.stringBytesUsed, c.externalFSBreakerOpen,
		c.operationsTotal, c.viewLatency,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry exposes the Prometheus registry for the host process to serve,
// e.g. via promhttp.HandlerFor(c.Registry(), ...). Returns nil if metrics
// are disabled.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// SetTableOccupancy updates the three table-utilization gauges.
func (c *Collector) SetTableOccupancy(files, areas, nodes uint64) {
	if !c.config.Enabled {
		return
	}
	c.filesInUse.Set(float64(files))
	c.areasInUse.Set(float64(areas))
	c.nodesInUse.Set(float64(nodes))
}

// SetStringBytesUsed updates the string-arena usage gauge.
func (c *Collector) SetStringBytesUsed(used uint64) {
	if !c.config.Enabled {
		return
	}
	c.stringBytesUsed.Set(float64(used))
}

// SetExternalFSBreakerOpen updates the externalfs circuit breaker gauge.
func (c *Collector) SetExternalFSBreakerOpen(open bool) {
	if !c.config.Enabled {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	c.externalFSBreakerOpen.Set(v)
}

// RecordOperation increments the operations_total counter for op with the
// given outcome ("success" or "error").
func (c *Collector) RecordOperation(op string, success bool) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.operationsTotal.With(prometheus.Labels{"op": op, "status": status}).Inc()
}

// ObserveViewLatency records how long a ResolveStorageInView/
// IterateDirInView call took.
func (c *Collector) ObserveViewLatency(op string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.viewLatency.With(prometheus.Labels{"op": op}).Observe(d.Seconds())
}

// Time calls fn, records its latency via ObserveViewLatency, and returns
// fn's result untouched.
func (c *Collector) Time(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.ObserveViewLatency(op, time.Since(start))
	return err
}
