package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the lab.
type Metrics struct {
	EvaluationsTotal   prometheus.Counter
	EvaluationDuration prometheus.Histogram
	ClampedParams      *prometheus.CounterVec // label: param={cd,crest_width,max_head}
	CurrentParams      *prometheus.GaugeVec   // label: param={cd,crest_width,max_head}
	PeakDischarge      prometheus.Gauge
	BoardReady         prometheus.Gauge

	// Fan-out metrics.
	Subscribers    prometheus.Gauge
	DroppedUpdates prometheus.Counter
	RecordErrors   prometheus.Counter
	PublishErrors  prometheus.Counter
	PublishedTotal prometheus.Counter

	// Render metrics.
	RenderCache    *prometheus.CounterVec   // labels: format, result={hit,miss}
	RenderDuration *prometheus.HistogramVec // label: format

	// HTTP metrics.
	RateLimited prometheus.Counter
}

// NewMetrics creates and registers all lab metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "evaluations_total",
			Help:      "Total rating-curve evaluations performed by the board.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weir_lab",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete evaluate-and-fan-out cycle.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		ClampedParams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "clamped_params_total",
			Help:      "Parameter updates forced back inside their control range, by parameter.",
		}, []string{"param"}),
		CurrentParams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weir_lab",
			Name:      "current_param",
			Help:      "Current value of each board parameter.",
		}, []string{"param"}),
		PeakDischarge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weir_lab",
			Name:      "peak_discharge_m3_s",
			Help:      "Peak discharge of the latest evaluation in m³/s.",
		}),
		BoardReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weir_lab",
			Name:      "board_ready",
			Help:      "1 once the board has produced its initial evaluation.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weir_lab",
			Name:      "subscribers",
			Help:      "Number of attached evaluation subscribers.",
		}),
		DroppedUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "dropped_updates_total",
			Help:      "Evaluations dropped because a subscriber channel was full.",
		}),
		RecordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "record_errors_total",
			Help:      "Failed history writes (best-effort, logged and skipped).",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "publish_errors_total",
			Help:      "Failed telemetry publishes (best-effort, logged and skipped).",
		}),
		PublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "published_total",
			Help:      "Evaluations published to the telemetry topic.",
		}),
		RenderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "render_cache_total",
			Help:      "Rendered-artifact cache lookups by format and result.",
		}, []string{"format", "result"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weir_lab",
			Name:      "render_duration_seconds",
			Help:      "Artifact rendering duration by format.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"format"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weir_lab",
			Name:      "rate_limited_total",
			Help:      "API requests rejected with 429 by the per-IP limiter.",
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.ClampedParams,
		m.CurrentParams,
		m.PeakDischarge,
		m.BoardReady,
		m.Subscribers,
		m.DroppedUpdates,
		m.RecordErrors,
		m.PublishErrors,
		m.PublishedTotal,
		m.RenderCache,
		m.RenderDuration,
		m.RateLimited,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EvaluationsTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "evaluations_total"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weir_lab", Name: "evaluation_duration_seconds"}),
		ClampedParams:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weir_lab", Name: "clamped_params_total"}, []string{"param"}),
		CurrentParams:      prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "weir_lab", Name: "current_param"}, []string{"param"}),
		PeakDischarge:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weir_lab", Name: "peak_discharge_m3_s"}),
		BoardReady:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weir_lab", Name: "board_ready"}),
		Subscribers:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weir_lab", Name: "subscribers"}),
		DroppedUpdates:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "dropped_updates_total"}),
		RecordErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "record_errors_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "publish_errors_total"}),
		PublishedTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "published_total"}),
		RenderCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weir_lab", Name: "render_cache_total"}, []string{"format", "result"}),
		RenderDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "weir_lab", Name: "render_duration_seconds"}, []string{"format"}),
		RateLimited:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weir_lab", Name: "rate_limited_total"}),
	}
}
