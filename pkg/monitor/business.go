package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 支付与同步相关的业务指标
type BusinessMetrics struct {
	PaymentsTotal        *prometheus.CounterVec // label: status (completed, failed, queued)
	QueueDepth           prometheus.Gauge
	SyncPassesTotal      *prometheus.CounterVec // label: result (ok, error, skipped)
	SyncDuration         prometheus.Histogram
	UnsyncedTransactions prometheus.Gauge
	PriceFallbackTotal   prometheus.Counter
	RemoteUpsertsTotal   *prometheus.CounterVec // label: result
}

// Business 在包加载时注册到默认 Registry
var Business = newBusinessMetrics()

func newBusinessMetrics() *BusinessMetrics {
	return &BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trev_payments_total",
			Help: "Payment attempts by outcome",
		}, []string{"status"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trev_queue_depth",
			Help: "Payments waiting in the offline queue",
		}),
		SyncPassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trev_sync_passes_total",
			Help: "Sync passes by result",
		}, []string{"result"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trev_sync_duration_seconds",
			Help:    "Duration of completed sync passes",
			Buckets: prometheus.DefBuckets,
		}),
		UnsyncedTransactions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trev_unsynced_transactions",
			Help: "Local transactions not yet pushed to the remote endpoint",
		}),
		PriceFallbackTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trev_price_fallback_total",
			Help: "Conversions that fell back to the unconverted token amount",
		}),
		RemoteUpsertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trev_remote_upserts_total",
			Help: "Transaction upserts sent to the remote endpoint",
		}, []string{"result"}),
	}
}
