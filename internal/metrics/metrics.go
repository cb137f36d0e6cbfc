// Package metrics owns the Prometheus registry of the service.
//
// Every collector is registered on a private registry, so several
// Collectors can coexist in one process (tests, the monitor command).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backend"

type Collector struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	buildInfo          *prometheus.GaugeVec
	instanceStarts     prometheus.Gauge
	heartbeatFailures  prometheus.Counter
	lastHeartbeat      prometheus.Gauge
	probesTotal        *prometheus.CounterVec
	healthState        *prometheus.GaugeVec
	consecutiveFailure prometheus.Gauge
}

// NewCollector creates a collector. Go runtime and process collectors are
// included when withRuntime is true.
func NewCollector(withRuntime bool) *Collector {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information, always 1.",
		}, []string{"version", "commit", "go_version"}),
		instanceStarts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_start_count",
			Help:      "Number of times this instance has started against its data directory.",
		}),
		heartbeatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "failures_total",
			Help:      "Heartbeats that could not be persisted.",
		}),
		lastHeartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last persisted heartbeat.",
		}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Health probes performed by the monitor, by result.",
		}, []string{"result"}),
		healthState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "state",
			Help:      "Current probe state; the active state is 1.",
		}, []string{"state"}),
		consecutiveFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "consecutive_failures",
			Help:      "Counted consecutive probe failures.",
		}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.buildInfo,
		c.instanceStarts,
		c.heartbeatFailures,
		c.lastHeartbeat,
		c.probesTotal,
		c.healthState,
		c.consecutiveFailure,
	)
	return c
}

// Handler exposes the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func (c *Collector) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (c *Collector) SetBuildInfo(version, commit, goVersion string) {
	c.buildInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

func (c *Collector) SetInstanceStarts(n int64) {
	c.instanceStarts.Set(float64(n))
}

func (c *Collector) HeartbeatSucceeded(at time.Time) {
	c.lastHeartbeat.Set(float64(at.Unix()))
}

func (c *Collector) HeartbeatFailed() {
	c.heartbeatFailures.Inc()
}

// ObserveProbe records one probe outcome and the resulting state.
// states lists every possible state so that inactive ones are reset to 0.
func (c *Collector) ObserveProbe(ok bool, state string, failures int, states []string) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.probesTotal.WithLabelValues(result).Inc()
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		c.healthState.WithLabelValues(s).Set(v)
	}
	c.consecutiveFailure.Set(float64(failures))
}
