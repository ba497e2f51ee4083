// Package config defines the process configuration for the trade notification
// relay. Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format aborts startup.
package config

import (
	"time"

	"tradenotify/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import the types package for secret fields.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"tradenotify"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Auth          AuthConfig
	Discord       DiscordConfig
	Retry         RetryConfig
	RateLimit     RateLimitConfig
	SQSRelay      SQSRelayConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"3000" validate:"required,numeric"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxBodyBytes       int64         `envconfig:"MAX_BODY_BYTES" default:"1048576" validate:"gt=0"`
}

// AuthConfig holds the shared bearer token the terminal presents.
type AuthConfig struct {
	APISecretToken SecretString `envconfig:"API_SECRET_TOKEN" validate:"required"`
}

// DiscordConfig holds the webhook destination and per-request transport
// settings.
type DiscordConfig struct {
	WebhookURL       SecretString  `envconfig:"DISCORD_WEBHOOK_URL" validate:"required,url"`
	Timeout          time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s" validate:"gt=0"`
	UserAgent        string        `envconfig:"WEBHOOK_USER_AGENT" default:"TradeNotify-Webhook/1.0"`
	BreakerThreshold uint32        `envconfig:"WEBHOOK_BREAKER_THRESHOLD" default:"10" validate:"gt=0"`
	BreakerCooldown  time.Duration `envconfig:"WEBHOOK_BREAKER_COOLDOWN" default:"30s" validate:"gt=0"`

	// Refuse loopback and private destinations. Disable only for local
	// stubs.
	BlockPrivateNetworks bool `envconfig:"WEBHOOK_BLOCK_PRIVATE_NETWORKS" default:"true"`
}

// RetryConfig bounds the delivery retry loop. The delay before attempt n+1
// is RetryDelayMs * 2^(n-1). MaxDelay caps it only when set; 0 is uncapped.
type RetryConfig struct {
	MaxAttempts  int           `envconfig:"MAX_RETRY_ATTEMPTS" default:"3" validate:"min=1,max=10"`
	RetryDelayMs int           `envconfig:"RETRY_DELAY_MS" default:"1000" validate:"min=0"`
	MaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"0s" validate:"gte=0"`
}

// BaseDelay returns RetryDelayMs as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.RetryDelayMs) * time.Millisecond
}

// RateLimitConfig configures the per-client fixed window limiter on the HTTP
// surface.
type RateLimitConfig struct {
	WindowMs    int `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000" validate:"gt=0"`
	MaxRequests int `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100" validate:"gt=0"`
}

// Window returns WindowMs as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMs) * time.Millisecond
}

// SQSRelayConfig is read only by the SQS relay function.
type SQSRelayConfig struct {
	// Records of one batch delivered in parallel.
	Concurrency int `envconfig:"SQS_RELAY_CONCURRENCY" default:"4" validate:"min=1,max=100"`
}

// AWSConfig holds regional settings for SSM and CloudWatch.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace  string `envconfig:"METRIC_NAMESPACE" default:"TradeNotify"`
	EnableCloudWatch bool   `envconfig:"ENABLE_CLOUDWATCH" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
