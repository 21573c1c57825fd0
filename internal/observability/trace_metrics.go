package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/ionoprop/model"
)

// TraceCollector exposes ray-tracing engine metrics.
type TraceCollector struct {
	gatherer prometheus.Gatherer

	Traces         *prometheus.CounterVec
	TraceDurations prometheus.Histogram
	TraceSteps     prometheus.Histogram
	TraceLoss      prometheus.Histogram
	SweepsInFlight prometheus.Gauge
	CacheLookups   *prometheus.CounterVec
}

// NewTraceCollector registers ray-tracing metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTraceCollector(reg prometheus.Registerer) (*TraceCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	traces, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ionoprop_traces_total",
		Help: "Completed ray traces, labeled by terminal status and medium (1d or 2d).",
	}, []string{"status", "mode"}), "ionoprop_traces_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ionoprop_trace_duration_seconds",
		Help:    "Wall time of a single ray integration.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "ionoprop_trace_duration_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ionoprop_trace_steps",
		Help:    "Integration steps taken per ray.",
		Buckets: prometheus.ExponentialBuckets(50, 2, 9),
	}), "ionoprop_trace_steps")
	if err != nil {
		return nil, err
	}

	loss, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ionoprop_trace_loss_db",
		Help:    "Total absorption loss of traces that accumulated it, in dB.",
		Buckets: []float64{1, 3, 10, 20, 30, 45, 60, 100},
	}), "ionoprop_trace_loss_db")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ionoprop_sweeps_in_flight",
		Help: "Sweeps currently being computed.",
	}), "ionoprop_sweeps_in_flight")
	if err != nil {
		return nil, err
	}

	cache, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ionoprop_cache_lookups_total",
		Help: "Result cache lookups, labeled hit or miss.",
	}, []string{"result"}), "ionoprop_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &TraceCollector{
		gatherer:       gatherer,
		Traces:         traces,
		TraceDurations: durations,
		TraceSteps:     steps,
		TraceLoss:      loss,
		SweepsInFlight: inFlight,
		CacheLookups:   cache,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *TraceCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTrace records one finished trace.
func (c *TraceCollector) ObserveTrace(mode string, res *model.RayTraceResult, d time.Duration) {
	if c == nil || res == nil {
		return
	}
	c.Traces.WithLabelValues(string(res.Status), mode).Inc()
	c.TraceDurations.Observe(d.Seconds())
	c.TraceSteps.Observe(float64(res.Steps))
	if res.HasLoss {
		c.TraceLoss.Observe(res.TotalLossDB)
	}
}

// SweepStarted increments the in-flight sweep gauge.
func (c *TraceCollector) SweepStarted() {
	if c == nil {
		return
	}
	c.SweepsInFlight.Inc()
}

// SweepFinished decrements the in-flight sweep gauge.
func (c *TraceCollector) SweepFinished() {
	if c == nil {
		return
	}
	c.SweepsInFlight.Dec()
}

// ObserveCacheLookup counts a result cache hit or miss.
func (c *TraceCollector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
