// Package metrics wires a TraceStore to Prometheus.
//
// Grounded on hupe1980/vecgo's observability example: a struct of
// pre-registered collectors, one constructor that registers each on the
// observer's own private registry, and a set of OnXxx methods matching a
// store's observer interface by shape rather than by import — PrometheusObserver
// never imports the root tracestore package, so wiring it in never creates
// a dependency cycle back from tracestore's own package graph.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver implements tracestore.StoreObserver by structural
// typing: OnPut/OnGrow/OnCollect/OnSoftFailure match that interface's
// method set exactly.
type PrometheusObserver struct {
	registry       *prometheus.Registry
	putDuration    prometheus.Histogram
	tableCapacity  prometheus.Gauge
	tableDepth     prometheus.Gauge
	collectEntries prometheus.Gauge
	softFailures   prometheus.Counter
}

// NewPrometheusObserver builds a PrometheusObserver against its own
// registry, rather than the global default one, so a process can run more
// than one store (or more than one test) without a duplicate-registration
// panic.
func NewPrometheusObserver() *PrometheusObserver {
	registry := prometheus.NewRegistry()
	o := &PrometheusObserver{
		registry: registry,
		putDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracestore_put_duration_seconds",
			Help:    "Latency of Put calls.",
			Buckets: prometheus.DefBuckets,
		}),
		tableCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracestore_table_capacity",
			Help: "Capacity of the most recently grown table (0 until the first grow).",
		}),
		tableDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracestore_table_depth",
			Help: "Number of tables added to the chain by growth.",
		}),
		collectEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracestore_collect_entries",
			Help: "Number of entries returned by the most recent Collect call.",
		}),
		softFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracestore_soft_failures_total",
			Help: "Total internal allocation failures Put absorbed rather than propagated.",
		}),
	}

	registry.MustRegister(o.putDuration, o.tableCapacity, o.tableDepth, o.collectEntries, o.softFailures)
	return o
}

// Registry returns the observer's private Prometheus registry, for wiring
// into a promhttp handler.
func (o *PrometheusObserver) Registry() *prometheus.Registry { return o.registry }

// OnPut records the latency of a single Put call.
func (o *PrometheusObserver) OnPut(d time.Duration, id uint32) {
	o.putDuration.Observe(d.Seconds())
}

// OnGrow records the capacity of a newly installed table.
func (o *PrometheusObserver) OnGrow(newCapacity uint32) {
	o.tableCapacity.Set(float64(newCapacity))
	o.tableDepth.Inc()
}

// OnCollect records how many entries the last Collect call returned.
func (o *PrometheusObserver) OnCollect(d time.Duration, entries int) {
	o.collectEntries.Set(float64(entries))
}

// OnSoftFailure counts an absorbed internal allocation failure. It does not
// distinguish ErrTableAllocation from ErrArenaAllocation by label, keeping
// this package free of an import back to the root tracestore package for
// what would only be a cardinality-two label.
func (o *PrometheusObserver) OnSoftFailure(err error) {
	o.softFailures.Inc()
}
