package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tradenotify/internal/types"
)

var _ NotificationMetrics = (*PrometheusNotificationMetrics)(nil)

// PrometheusNotificationMetrics exposes delivery metrics on /metrics.
type PrometheusNotificationMetrics struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	queueLag   prometheus.Histogram
}

// NewPrometheusNotificationMetrics creates the collectors and registers them
// with reg.
func NewPrometheusNotificationMetrics(reg prometheus.Registerer) *PrometheusNotificationMetrics {
	m := &PrometheusNotificationMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradenotify",
			Name:      "delivery_attempts_total",
			Help:      "Notification delivery outcomes by channel and result.",
		}, []string{"channel", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradenotify",
			Name:      "delivery_duration_seconds",
			Help:      "Wall time of a delivery including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"channel"}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradenotify",
			Name:      "queue_lag_seconds",
			Help:      "Time between SQS enqueue and processing start.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.deliveries, m.latency, m.queueLag)
	return m
}

func (m *PrometheusNotificationMetrics) RecordDelivery(_ context.Context, channel types.ChannelType, result MetricResult) {
	m.deliveries.WithLabelValues(string(channel), string(result)).Inc()
}

func (m *PrometheusNotificationMetrics) RecordLatency(_ context.Context, channel types.ChannelType, duration time.Duration) {
	m.latency.WithLabelValues(string(channel)).Observe(duration.Seconds())
}

func (m *PrometheusNotificationMetrics) RecordQueueLag(_ context.Context, lag time.Duration) {
	m.queueLag.Observe(lag.Seconds())
}

// MultiMetrics fans every call out to each sink in order.
type MultiMetrics []NotificationMetrics

func (mm MultiMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult) {
	for _, m := range mm {
		m.RecordDelivery(ctx, channel, result)
	}
}

func (mm MultiMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration) {
	for _, m := range mm {
		m.RecordLatency(ctx, channel, duration)
	}
}

func (mm MultiMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {
	for _, m := range mm {
		m.RecordQueueLag(ctx, lag)
	}
}
