// Package metrics provides Prometheus metrics collection for adminkit.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/adminkit/ports"
)

const namespace = "adminkit"

// Collector holds all Prometheus metrics for adminkit.
type Collector struct {
	// HTTP metrics
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Resource operation metrics
	OperationsTotal *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BackendInFlight prometheus.Gauge

	// Gate metrics
	GateDenials *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
	ResourcesLoaded    prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Admin API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of admin API requests currently being processed",
			},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total resource operations by outcome",
			},
			[]string{"resource", "action", "outcome"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_duration_seconds",
				Help:      "Backend call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"resource", "action", "status"},
		),
		BackendInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_requests_in_flight",
				Help:      "Number of requests currently being sent to the backend",
			},
		),
		GateDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_denials_total",
				Help:      "Total number of requests denied by the auth gate",
			},
			[]string{"reason"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
		ResourcesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources_loaded",
				Help:      "Number of resources in the active registry",
			},
		),
	}
}

// RecordOperation counts a finished resource operation.
func (c *Collector) RecordOperation(resource, action, outcome string) {
	c.OperationsTotal.WithLabelValues(resource, action, outcome).Inc()
}

// ObserveBackend records the latency of a backend call.
func (c *Collector) ObserveBackend(resource, action string, status int, d time.Duration) {
	c.BackendDuration.WithLabelValues(resource, action, StatusLabel(status)).Observe(d.Seconds())
}

// RecordGateDenial counts a gate denial.
func (c *Collector) RecordGateDenial(reason string) {
	c.GateDenials.WithLabelValues(reason).Inc()
}

// RecordReload records the outcome of a config reload.
func (c *Collector) RecordReload(resources int, err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
	c.ResourcesLoaded.Set(float64(resources))
}

// StatusLabel returns the status code as a label, or "none" when no
// response was received.
func StatusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// InstrumentBackend wraps b so calls in progress are tracked in
// BackendInFlight.
func (c *Collector) InstrumentBackend(b ports.Backend) ports.Backend {
	return &instrumentedBackend{next: b, inFlight: c.BackendInFlight}
}

type instrumentedBackend struct {
	next     ports.Backend
	inFlight prometheus.Gauge
}

func (b *instrumentedBackend) Do(ctx context.Context, req ports.BackendRequest) (ports.BackendResponse, error) {
	b.inFlight.Inc()
	defer b.inFlight.Dec()
	return b.next.Do(ctx, req)
}

// Ensure interface compliance.
var (
	_ ports.Recorder = (*Collector)(nil)
	_ ports.Backend  = (*instrumentedBackend)(nil)
)
