package llhls

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds delivery and buffer instrumentation. A single Metrics value
// may be shared by every publisher registered against the same registry.
type Metrics struct {
	PlaylistRequests prometheus.Counter
	RangeRequests    prometheus.Counter
	BlockedRequests  prometheus.Counter
	RejectedRequests *prometheus.CounterVec
	SegmentsPut      prometheus.Counter
	SegmentsEvicted  prometheus.Counter
	PartsAppended    prometheus.Counter
	Waiters          prometheus.Gauge
	WaitDuration     prometheus.Histogram
	FrameRate        *prometheus.GaugeVec
}

// NewMetrics creates and registers the delivery metrics with the given
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PlaylistRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "playlist_requests_total",
			Help:      "Media playlist requests, blocking or not.",
		}),
		RangeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "segment_requests_total",
			Help:      "Segment and part byte range requests.",
		}),
		BlockedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "blocked_requests_total",
			Help:      "Requests that suspended waiting for data.",
		}),
		RejectedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "rejected_requests_total",
			Help:      "Requests rejected before serving.",
		}, []string{"reason"}),
		SegmentsPut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "segments_put_total",
			Help:      "Segments appended to the window.",
		}),
		SegmentsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "segments_evicted_total",
			Help:      "Segments evicted from the window.",
		}),
		PartsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llhls",
			Name:      "parts_appended_total",
			Help:      "Parts appended across all segments.",
		}),
		Waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "llhls",
			Name:      "waiters",
			Help:      "Requests currently suspended on the buffer.",
		}),
		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "llhls",
			Name:      "wait_duration_seconds",
			Help:      "Time blocked playlist requests spent suspended.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FrameRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "llhls",
			Name:      "ingest_frame_rate",
			Help:      "Detected video frame rate of each live stream.",
		}, []string{"stream"}),
	}
	reg.MustRegister(
		m.PlaylistRequests,
		m.RangeRequests,
		m.BlockedRequests,
		m.RejectedRequests,
		m.SegmentsPut,
		m.SegmentsEvicted,
		m.PartsAppended,
		m.Waiters,
		m.WaitDuration,
		m.FrameRate,
	)
	return m
}
