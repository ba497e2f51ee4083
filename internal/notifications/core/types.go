// Package core holds the channel-independent pieces of notification delivery:
// the retry policy and the delivery metrics sinks.
package core

import (
	"context"
	"math"
	"time"

	"tradenotify/internal/types"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
)

// NotificationMetrics records delivery telemetry. Implementations must not
// block delivery on a failing backend; errors are logged, never returned.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordDelivery(context.Context, types.ChannelType, MetricResult)  {}
func (NoopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}
func (NoopMetrics) RecordQueueLag(context.Context, time.Duration)                   {}

// RetryPolicy defines the exponential backoff parameters for delivery retries.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DiscordRetryPolicy waits 1s, 2s, 4s... between attempts, uncapped.
var DiscordRetryPolicy = RetryPolicy{
	MaxAttempts:   3,
	BaseDelay:     1 * time.Second,
	BackoffFactor: 2.0,
}

// maxBackoff keeps the float product inside time.Duration.
const maxBackoff = time.Duration(math.MaxInt64)

// CalculateNextRetry computes the delay after the given number of prior
// failures (0-indexed): delay = BaseDelay * BackoffFactor^attempt. MaxDelay
// caps the result only when it is positive; zero leaves the curve uncapped.
func CalculateNextRetry(policy RetryPolicy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	limit := maxBackoff
	if policy.MaxDelay > 0 {
		limit = policy.MaxDelay
	}

	delay := float64(policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffFactor
		if delay >= float64(limit) {
			return limit
		}
	}
	return time.Duration(delay)
}
