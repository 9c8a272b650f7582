package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reasoner"

// Metrics holds all Prometheus metrics. Every Record method is safe to call
// on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
	BreakerCalls       *prometheus.CounterVec

	// Generation metrics
	RetryAttempts      *prometheus.CounterVec
	GenerationCalls    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Reasoning metrics
	PathsRequested prometheus.Counter
	PathsKept      prometheus.Counter
	PathsDropped   prometheus.Counter
	EvalFallbacks  prometheus.Counter

	// Validation metrics
	ValidationRuns        *prometheus.CounterVec
	ValidationConsistency prometheus.Histogram
	Simulations           *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics registers every collector on reg. A nil reg gets a fresh
// registry, so several collectors can coexist in one process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_calls_total",
				Help:      "Total number of internal service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_duration_seconds",
				Help:      "Internal service call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"service", "method"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),
		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
		BreakerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_calls_total",
				Help:      "Calls seen by a circuit breaker, by outcome",
			},
			[]string{"breaker", "outcome"},
		),

		RetryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of scheduled retries",
			},
			[]string{"dependency"},
		),
		GenerationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_calls_total",
				Help:      "Total number of protected generation calls",
			},
			[]string{"dependency", "kind"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Protected generation call duration including retries",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"dependency"},
		),

		PathsRequested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "paths_requested_total",
				Help:      "Reasoning paths requested from the generator",
			},
		),
		PathsKept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "paths_kept_total",
				Help:      "Reasoning paths that produced usable text",
			},
		),
		PathsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "paths_dropped_total",
				Help:      "Reasoning paths dropped after a failed or empty generation",
			},
		),
		EvalFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluation_fallbacks_total",
				Help:      "Path evaluations that fell back to the neutral score",
			},
		),

		ValidationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_runs_total",
				Help:      "Monte Carlo validation runs by verdict",
			},
			[]string{"validated"},
		),
		ValidationConsistency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_consistency",
				Help:      "Consistency score of Monte Carlo validation runs",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		Simulations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Monte Carlo simulations by result",
			},
			[]string{"result"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordServiceCall records an internal service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// ObserveBreakers chains breaker hooks that feed the breaker metrics in front
// of any hooks already present in settings.
func (m *Metrics) ObserveBreakers(settings resilience.Settings) resilience.Settings {
	if m == nil {
		return settings
	}

	onCreate := settings.OnCreate
	settings.OnCreate = func(name string, state resilience.State) {
		m.BreakerState.WithLabelValues(name).Set(float64(state))
		if onCreate != nil {
			onCreate(name, state)
		}
	}

	onState := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to resilience.State) {
		m.BreakerState.WithLabelValues(name).Set(float64(to))
		m.BreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		if onState != nil {
			onState(name, from, to)
		}
	}

	onOutcome := settings.OnOutcome
	settings.OnOutcome = func(name string, outcome resilience.Outcome) {
		m.BreakerCalls.WithLabelValues(name, string(outcome)).Inc()
		if onOutcome != nil {
			onOutcome(name, outcome)
		}
	}

	return settings
}

// RecordRetry records one scheduled retry against dependency
func (m *Metrics) RecordRetry(dependency string) {
	if m == nil {
		return
	}
	m.RetryAttempts.WithLabelValues(dependency).Inc()
}

// RecordGeneration records a finished protected generation call
func (m *Metrics) RecordGeneration(dependency string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	kind := "ok"
	if err != nil {
		kind = resilience.KindOf(err).String()
	}
	m.GenerationCalls.WithLabelValues(dependency, kind).Inc()
	m.GenerationDuration.WithLabelValues(dependency).Observe(duration.Seconds())
}

// RecordPaths records the outcome of one path generation fan-out
func (m *Metrics) RecordPaths(requested, kept int) {
	if m == nil {
		return
	}
	m.PathsRequested.Add(float64(requested))
	m.PathsKept.Add(float64(kept))
	if dropped := requested - kept; dropped > 0 {
		m.PathsDropped.Add(float64(dropped))
	}
}

// RecordEvalFallbacks records evaluations that fell back to the neutral score
func (m *Metrics) RecordEvalFallbacks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EvalFallbacks.Add(float64(n))
}

// RecordValidation records a finished Monte Carlo validation
func (m *Metrics) RecordValidation(validated bool, consistency float64, succeeded, failed int) {
	if m == nil {
		return
	}
	m.ValidationRuns.WithLabelValues(strconv.FormatBool(validated)).Inc()
	m.ValidationConsistency.Observe(consistency)
	m.Simulations.WithLabelValues("success").Add(float64(succeeded))
	m.Simulations.WithLabelValues("failure").Add(float64(failed))
}
