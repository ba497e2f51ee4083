package types

// Telemetry metric names shared by the Prometheus and CloudWatch backends.
const (
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricQueueLag        = "QueueLag"
	MetricAPILatency      = "APILatency"

	DimChannel   = "Channel"
	DimResult    = "Result"
	DimEventType = "EventType"

	// MetricNamespace is the default CloudWatch namespace.
	MetricNamespace = "TradeNotify"
)

// ChannelType identifies a notification delivery channel. The relay has a
// single channel; the type is kept so metric dimensions stay stable.
type ChannelType string

const ChannelDiscord ChannelType = "discord"

// DeliveryStatus enumerates the outcomes of a delivery.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryResult describes a successful or exhausted delivery.
type DeliveryResult struct {
	ProviderMessageID string
	Status            DeliveryStatus
	Attempts          int
	FailureReason     string
}
