// Package metrics exposes valuation, cache and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

const namespace = "mmvalue"

// Registry holds all Prometheus metrics of the service
type Registry struct {
	// Composite valuation metrics
	Valuations      *prometheus.CounterVec
	ModelValue      *prometheus.GaugeVec
	Correction      prometheus.Histogram
	Fallbacks       prometheus.Counter
	ClampedRuns     prometheus.Counter
	PctOfDailyValue prometheus.Gauge

	// Effective depth metrics
	DepthEfficiency *prometheus.HistogramVec

	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheHitRatio  prometheus.Gauge
	BreakerChanges *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewRegistry creates the metrics and registers them with reg. A nil reg
// gets a fresh private registry, which keeps tests independent.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Registry{
		Valuations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "composite_valuations_total",
				Help:      "Composite valuations by weight preset label",
			},
			[]string{"label"},
		),

		ModelValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_value_usd",
				Help:      "Latest raw value of each valuation model",
			},
			[]string{"model"},
		),

		Correction: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "calibration_correction",
				Help:      "Volume-bracket correction factor applied after base scaling",
				Buckets:   []float64{0.2, 0.5, 0.75, 1, 1.5, 2, 3, 5, 7.5, 10},
			},
		),

		Fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calibration_fallbacks_total",
				Help:      "Valuations that fell back to the target percentage of daily volume",
			},
		),

		ClampedRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calibration_clamped_total",
				Help:      "Valuations whose correction factor hit a clamp",
			},
		),

		PctOfDailyValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "value_pct_of_daily_volume",
				Help:      "Latest composite value as a percentage of daily volume",
			},
		),

		DepthEfficiency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "depth_efficiency_ratio",
				Help:      "Effective over raw depth per exchange",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.25, 1.5},
			},
			[]string{"exchange"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits by result kind",
			},
			[]string{"kind"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses by result kind",
			},
			[]string{"kind"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_hit_ratio",
				Help:      "Current cache hit ratio (0.0 to 1.0)",
			},
		),

		BreakerChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_breaker_transitions_total",
				Help:      "Cache circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration by route and status",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"route", "status"},
		),
	}

	reg.MustRegister(
		m.Valuations,
		m.ModelValue,
		m.Correction,
		m.Fallbacks,
		m.ClampedRuns,
		m.PctOfDailyValue,
		m.DepthEfficiency,
		m.CacheHits,
		m.CacheMisses,
		m.CacheHitRatio,
		m.BreakerChanges,
		m.RequestDuration,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// RecordComposite records one composite valuation
func (m *Registry) RecordComposite(result *valuation.CompositeResult) {
	if result == nil {
		return
	}

	m.Valuations.WithLabelValues(result.Label).Inc()
	for _, r := range result.Models {
		if r.Enabled {
			m.ModelValue.WithLabelValues(r.Model.Key()).Set(r.TotalValue)
		}
	}

	if result.Calibration.Fallback {
		m.Fallbacks.Inc()
	} else {
		m.Correction.Observe(result.Calibration.Correction)
	}
	if result.Calibration.Clamped {
		m.ClampedRuns.Inc()
	}
	m.PctOfDailyValue.Set(result.PercentOfDailyVolume())
}

// RecordDepthEfficiency records the overall efficiency of one entity quote
func (m *Registry) RecordDepthEfficiency(exchange string, efficiency float64) {
	m.DepthEfficiency.WithLabelValues(exchange).Observe(efficiency)
}

// RecordCacheHit records a cache hit for kind
func (m *Registry) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss for kind
func (m *Registry) RecordCacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
	m.updateCacheHitRatio()
}

// RecordBreakerChange records a circuit breaker state transition
func (m *Registry) RecordBreakerChange(from, to string) {
	m.BreakerChanges.WithLabelValues(from, to).Inc()
	log.Warn().
		Str("from", from).
		Str("to", to).
		Msg("Cache circuit breaker state changed")
}

// ObserveRequest records the duration of one HTTP request
func (m *Registry) ObserveRequest(route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// updateCacheHitRatio sums hits and misses over every kind
func (m *Registry) updateCacheHitRatio() {
	hits := sumCounterVec(m.CacheHits)
	misses := sumCounterVec(m.CacheMisses)
	if total := hits + misses; total > 0 {
		m.CacheHitRatio.Set(hits / total)
	}
}

func sumCounterVec(vec *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()

	total := 0.0
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err == nil {
			total += pb.GetCounter().GetValue()
		}
	}
	return total
}

// Handler serves the metrics of the registry this Registry was created with
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
