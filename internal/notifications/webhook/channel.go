// Package webhook renders trading events as Discord embeds and delivers them
// to a Discord incoming webhook with bounded exponential-backoff retry.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"

	"tradenotify/internal/config"
	"tradenotify/internal/notifications/core"
	"tradenotify/internal/types"
)

// maxResponseBodyRead limits how much of a response body we read for error
// messages and provider message ID extraction.
const maxResponseBodyRead = 4096

// ErrDeliveryExhausted matches every *DeliveryExhaustedError via errors.Is.
var ErrDeliveryExhausted = errors.New("webhook: delivery retries exhausted")

// DeliveryExhaustedError is returned by Deliver once every attempt has failed.
type DeliveryExhaustedError struct {
	EventType types.EventType
	Symbol    string
	Attempts  int
	Err       error // last attempt's failure
}

func (e *DeliveryExhaustedError) Error() string {
	return fmt.Sprintf("failed to deliver %s notification for %s after %d attempts: %v",
		e.EventType, e.Symbol, e.Attempts, e.Err)
}

func (e *DeliveryExhaustedError) Unwrap() []error {
	return []error{ErrDeliveryExhausted, e.Err}
}

// statusError is a non-2xx webhook response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// ChannelConfig is the immutable delivery configuration.
type ChannelConfig struct {
	URL              string
	Timeout          time.Duration
	UserAgent        string
	Retry            core.RetryPolicy
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// ChannelConfigFrom maps the process configuration onto a ChannelConfig.
func ChannelConfigFrom(cfg *config.Config) ChannelConfig {
	return ChannelConfig{
		URL:       cfg.Discord.WebhookURL.Unmask(),
		Timeout:   cfg.Discord.Timeout,
		UserAgent: cfg.Discord.UserAgent,
		Retry: core.RetryPolicy{
			MaxAttempts:   cfg.Retry.MaxAttempts,
			BaseDelay:     cfg.Retry.BaseDelay(),
			MaxDelay:      cfg.Retry.MaxDelay,
			BackoffFactor: core.DiscordRetryPolicy.BackoffFactor,
		},
		BreakerThreshold: cfg.Discord.BreakerThreshold,
		BreakerCooldown:  cfg.Discord.BreakerCooldown,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChannelOption customizes a WebhookChannel.
type ChannelOption func(*WebhookChannel)

// WithSleepFunc overrides the wait between attempts.
func WithSleepFunc(fn SleepFunc) ChannelOption {
	return func(w *WebhookChannel) { w.sleep = fn }
}

// WithMetrics sets the delivery metrics sink.
func WithMetrics(m core.NotificationMetrics) ChannelOption {
	return func(w *WebhookChannel) { w.metrics = m }
}

// WebhookChannel delivers embeds to one Discord webhook. It is safe for
// concurrent use. The breaker only observes attempt outcomes for the health
// probe; it never gates an outbound call.
type WebhookChannel struct {
	cfg        ChannelConfig
	httpClient *http.Client
	breaker    *gobreaker.TwoStepCircuitBreaker[string]
	metrics    core.NotificationMetrics
	logger     types.Logger
	clock      types.Clock
	sleep      SleepFunc
}

// NewWebhookChannel creates a WebhookChannel with a default HTTP client.
func NewWebhookChannel(cfg ChannelConfig, logger types.Logger, opts ...ChannelOption) (*WebhookChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook channel: url is empty")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("webhook channel: max attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if logger == nil {
		return nil, fmt.Errorf("webhook channel: logger is nil")
	}
	return NewWebhookChannelWithClient(cfg, &http.Client{}, logger, opts...), nil
}

// NewWebhookChannelWithClient creates a WebhookChannel with a caller-supplied
// HTTP client. Per-attempt timeouts come from cfg.Timeout, not the client.
func NewWebhookChannelWithClient(cfg ChannelConfig, httpClient *http.Client, logger types.Logger, opts ...ChannelOption) *WebhookChannel {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Retry.BackoffFactor == 0 {
		cfg.Retry.BackoffFactor = core.DiscordRetryPolicy.BackoffFactor
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 10
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	w := &WebhookChannel{
		cfg:        cfg,
		httpClient: httpClient,
		metrics:    core.NoopMetrics{},
		logger:     logger,
		clock:      types.RealClock{},
		sleep:      timerSleep,
	}
	w.breaker = gobreaker.NewTwoStepCircuitBreaker[string](gobreaker.Settings{
		Name:        "discord-webhook",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetClock overrides the clock for testing.
func (w *WebhookChannel) SetClock(c types.Clock) {
	w.clock = c
}

// Type returns the channel type identifier.
func (w *WebhookChannel) Type() types.ChannelType {
	return types.ChannelDiscord
}

// Deliver posts {"embeds":[embed]} to the webhook, retrying any failure
// (transport error, non-2xx, timeout) until the attempt budget is spent.
// Every attempt makes exactly one POST. The first success returns immediately. ev is used for
// diagnostics only.
func (w *WebhookChannel) Deliver(ctx context.Context, embed DiscordEmbed, ev *types.TradingEvent) (*types.DeliveryResult, error) {
	payload, err := json.Marshal(DiscordPayload{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode webhook payload", err)
	}

	start := w.clock.Now()
	maxAttempts := w.cfg.Retry.MaxAttempts
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		msgID, err := w.attempt(ctx, payload)
		if err == nil {
			w.logger.Info("discord notification sent",
				"event_type", string(ev.EventType),
				"symbol", ev.Symbol,
				"attempt", attempt,
				"provider_message_id", msgID,
			)
			w.record(ctx, core.MetricSuccess, start)
			return &types.DeliveryResult{
				ProviderMessageID: msgID,
				Status:            types.DeliveryStatusSent,
				Attempts:          attempt,
			}, nil
		}

		lastErr = err
		logArgs := []any{
			"event_type", string(ev.EventType),
			"symbol", ev.Symbol,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err.Error(),
		}
		var se *statusError
		if errors.As(err, &se) {
			logArgs = append(logArgs, "status", se.StatusCode)
		}
		w.logger.Warn("discord delivery attempt failed", logArgs...)

		if attempt == maxAttempts {
			break
		}
		wait := core.CalculateNextRetry(w.cfg.Retry, attempt-1)
		if err := w.sleep(ctx, wait); err != nil {
			lastErr = fmt.Errorf("retry wait interrupted: %w", err)
			break
		}
	}

	exhausted := &DeliveryExhaustedError{
		EventType: ev.EventType,
		Symbol:    ev.Symbol,
		Attempts:  attempts,
		Err:       lastErr,
	}
	w.logger.Error("discord delivery exhausted",
		"event_type", string(ev.EventType),
		"symbol", ev.Symbol,
		"attempts", attempts,
		"error", lastErr.Error(),
	)
	w.record(ctx, core.MetricFailed, start)
	return &types.DeliveryResult{
		Status:        types.DeliveryStatusFailed,
		Attempts:      attempts,
		FailureReason: lastErr.Error(),
	}, exhausted
}

// attempt performs one POST and reports its outcome to the breaker when the
// breaker accepts a sample. An open breaker does not skip the call.
func (w *WebhookChannel) attempt(ctx context.Context, payload []byte) (string, error) {
	done, allowErr := w.breaker.Allow()
	msgID, err := w.post(ctx, payload)
	if allowErr == nil {
		done(err == nil)
	}
	return msgID, err
}

// post performs one bounded outbound call and returns the provider message ID.
func (w *WebhookChannel) post(ctx context.Context, payload []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}
	if reqID := types.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	return w.extractProviderMessageID(resp, body), nil
}

// extractProviderMessageID returns the message ID Discord reports when the
// webhook is called with ?wait=true, else a synthetic ID.
func (w *WebhookChannel) extractProviderMessageID(resp *http.Response, body []byte) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		if id := gjson.GetBytes(body, "id").String(); id != "" {
			return id
		}
	}
	return fmt.Sprintf("discord-%d-%d-%s", resp.StatusCode, w.clock.Now().Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (w *WebhookChannel) record(ctx context.Context, result core.MetricResult, start time.Time) {
	w.metrics.RecordDelivery(ctx, types.ChannelDiscord, result)
	w.metrics.RecordLatency(ctx, types.ChannelDiscord, w.clock.Now().Sub(start))
}

// BreakerState reports the circuit breaker's current state.
func (w *WebhookChannel) BreakerState() gobreaker.State {
	return w.breaker.State()
}

// BreakerProbe reports the webhook circuit breaker as a health component.
type BreakerProbe struct {
	channel *WebhookChannel
}

// HealthProbe returns a probe that fails while the breaker is open.
func (w *WebhookChannel) HealthProbe() *BreakerProbe {
	return &BreakerProbe{channel: w}
}

func (p *BreakerProbe) Name() string { return "discord_webhook" }

func (p *BreakerProbe) Check(_ context.Context) error {
	if st := p.channel.BreakerState(); st == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker is %s", st)
	}
	return nil
}
