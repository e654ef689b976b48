package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the syncer.
type Metrics struct {
	// Gauges (current values)
	Watermark   prometheus.Gauge
	StoreTip    prometheus.Gauge
	SyncerState prometheus.Gauge

	// Counters (cumulative values)
	BlocksIndexedTotal prometheus.Counter
	SyncPassesTotal    *prometheus.CounterVec

	// Histograms (distributions)
	BlockApplyDuration prometheus.Histogram
	SyncPassDuration   prometheus.Histogram
}

// NewMetrics creates and registers all syncer metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "starklens"
	}

	return &Metrics{
		Watermark: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "watermark",
			Help:      "Highest block number projected into the index (-1 when empty)",
		}),
		StoreTip: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "store_tip",
			Help:      "Latest block number observed in the primary store",
		}),
		SyncerState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "syncer_state",
			Help:      "Current syncer state (0=idle, 1=syncing, 2=failed)",
		}),
		BlocksIndexedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "blocks_indexed_total",
			Help:      "Total number of blocks projected into the index",
		}),
		SyncPassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "sync_passes_total",
			Help:      "Total number of sync passes by outcome",
		}, []string{"outcome"}),
		BlockApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "block_apply_duration_seconds",
			Help:      "Time to project one block into the index",
			Buckets:   prometheus.DefBuckets,
		}),
		SyncPassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "sync_pass_duration_seconds",
			Help:      "Time of one full sync pass",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}
