// Package metrics provides Prometheus instrumentation for the engine:
// table-occupancy gauges, an operations counter, and a view-latency
// histogram. A Collector registers its metrics against its own
// prometheus.Registry rather than binding an HTTP listener; the host
// process decides how (or whether) to serve it, e.g. via
// promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}).
package metrics
