// Package metrics wires up the proxy's Prometheus instrumentation. It is
// purely observational: nothing on the wire path blocks on or branches on a
// metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the proxy exports. Construct one with New and
// pass it into the components that observe requests.
type Registry struct {
	registry *prometheus.Registry

	RequestsForwarded   *prometheus.CounterVec
	RequestsCaptured    *prometheus.CounterVec
	SinkEnqueued        prometheus.Counter
	SinkDropped         prometheus.Counter
	SinkSucceeded       prometheus.Counter
	SinkFailed          prometheus.Counter
	SinkQueueDepth      prometheus.GaugeFunc
}

// New builds a Registry with all metrics registered. depthFn is polled by
// the sink queue depth gauge on every scrape.
func New(depthFn func() float64) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "requests_forwarded_total",
			Help:      "Total requests forwarded to an upstream, labeled by result.",
		}, []string{"result"}),
		RequestsCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "requests_captured_total",
			Help:      "Total requests recognized as a known LLM API call, labeled by provider.",
		}, []string{"provider"}),
		SinkEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "sink_enqueued_total",
			Help:      "Total sink tasks successfully enqueued.",
		}),
		SinkDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "sink_dropped_total",
			Help:      "Total sink tasks dropped because the queue was full.",
		}),
		SinkSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "sink_succeeded_total",
			Help:      "Total sink tasks that returned a trace URL.",
		}),
		SinkFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weaverun",
			Name:      "sink_failed_total",
			Help:      "Total sink tasks that failed to reach the sink.",
		}),
	}
	r.SinkQueueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "weaverun",
		Name:      "sink_queue_depth",
		Help:      "Current number of tasks waiting in the sink queue.",
	}, depthFn)

	reg.MustRegister(
		r.RequestsForwarded,
		r.RequestsCaptured,
		r.SinkEnqueued,
		r.SinkDropped,
		r.SinkSucceeded,
		r.SinkFailed,
		r.SinkQueueDepth,
	)

	return r
}

// Handler returns the HTTP handler that serves this registry's metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
