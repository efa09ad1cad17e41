package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "watchlink"

// Metrics holds the Prometheus counters, histograms, and gauges for the bridge.
type Metrics struct {
	// Location pipeline metrics.
	SamplesReceived prometheus.Counter
	SamplesInvalid  prometheus.Counter
	PipelineRunning prometheus.Gauge
	SinkPublishes   *prometheus.CounterVec // labels: outcome={success,error}

	// Radio link metrics.
	RadioConnected     prometheus.Gauge
	RadioConnects      *prometheus.CounterVec // labels: outcome={success,error,aborted}
	RadioSends         *prometheus.CounterVec // labels: outcome={success,error}
	RadioSendDuration  prometheus.Histogram
	RadioNotifications *prometheus.CounterVec // labels: outcome={parsed,invalid}

	// Point feed metrics.
	FeedLoads  *prometheus.CounterVec // labels: outcome={success,error}
	FeedRows   *prometheus.CounterVec // labels: result={parsed,dropped}
	FeedPoints prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SamplesReceived,
		m.SamplesInvalid,
		m.PipelineRunning,
		m.SinkPublishes,
		m.RadioConnected,
		m.RadioConnects,
		m.RadioSends,
		m.RadioSendDuration,
		m.RadioNotifications,
		m.FeedLoads,
		m.FeedRows,
		m.FeedPoints,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SamplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_samples_received_total",
			Help:      "Total position samples delivered by the location source.",
		}),
		SamplesInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_samples_invalid_total",
			Help:      "Position samples rejected before processing.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the location pipeline is active, 0 when shut down.",
		}),
		SinkPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publishes_total",
			Help:      "Sample records published to the sample sink by outcome.",
		}, []string{"outcome"}),
		RadioConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "radio_connected",
			Help:      "1 while the wearable is connected, 0 otherwise.",
		}),
		RadioConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radio_connects_total",
			Help:      "Wearable connection attempts by outcome.",
		}, []string{"outcome"}),
		RadioSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radio_sends_total",
			Help:      "Position payload writes to the wearable by outcome.",
		}, []string{"outcome"}),
		RadioSendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "radio_send_duration_seconds",
			Help:      "Duration of a single write to the wearable.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RadioNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radio_notifications_total",
			Help:      "Notifications received from the wearable by result.",
		}, []string{"result"}),
		FeedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_loads_total",
			Help:      "Point feed load attempts by outcome.",
		}, []string{"outcome"}),
		FeedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_rows_total",
			Help:      "Point feed data rows by parse result.",
		}, []string{"result"}),
		FeedPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_points",
			Help:      "Markers in the currently loaded point layer.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when reverse geocoding is enabled, 0 otherwise.",
		}),
	}
}
