package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradenotify/internal/config"
	eventsval "tradenotify/internal/events"
	notifcore "tradenotify/internal/notifications/core"
	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/relay"
	"tradenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)       {}
func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Warn(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (l nopLogger) With(...any) types.Logger { return l }

// scriptedProcessor returns the error mapped to each body.
type scriptedProcessor struct {
	mu     sync.Mutex
	errs   map[string]error
	seen   []string
	reqIDs []string
}

func (p *scriptedProcessor) Process(ctx context.Context, raw []byte) (*relay.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, string(raw))
	p.reqIDs = append(p.reqIDs, types.GetRequestID(ctx))
	return &relay.Outcome{}, p.errs[string(raw)]
}

type lagMetrics struct {
	notifcore.NoopMetrics
	mu   sync.Mutex
	lags []time.Duration
}

func (m *lagMetrics) RecordQueueLag(_ context.Context, lag time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lags = append(m.lags, lag)
}

func newHandler(p Processor, m notifcore.NotificationMetrics, now time.Time) *Handler {
	return &Handler{
		processor:   p,
		metrics:     m,
		logger:      nopLogger{},
		concurrency: 2,
		now:         func() time.Time { return now },
	}
}

func TestHandle_ReportsOnlyDeliveryFailures(t *testing.T) {
	exhausted := fmt.Errorf("relay order 2: %w", &webhook.DeliveryExhaustedError{Attempts: 3, Err: errors.New("status 500")})
	invalid := types.NewAppError(types.ErrCodeValidationInvalidSide, "Invalid side", nil)

	proc := &scriptedProcessor{errs: map[string]error{
		"ok":       nil,
		"exhaust":  exhausted,
		"invalid":  invalid,
		"exhaust2": exhausted,
	}}
	h := newHandler(proc, notifcore.NoopMetrics{}, time.Now())

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: "ok"},
		{MessageId: "m2", Body: "exhaust"},
		{MessageId: "m3", Body: "invalid"},
		{MessageId: "m4", Body: "exhaust2"},
	}})

	require.NoError(t, err)
	assert.Equal(t, []events.SQSBatchItemFailure{
		{ItemIdentifier: "m2"},
		{ItemIdentifier: "m4"},
	}, resp.BatchItemFailures)
	assert.Len(t, proc.seen, 4)
	assert.ElementsMatch(t, []string{"m1", "m2", "m3", "m4"}, proc.reqIDs)
}

func TestHandle_RecordsQueueLag(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sent := now.Add(-1500 * time.Millisecond)
	m := &lagMetrics{}
	h := newHandler(&scriptedProcessor{}, m, now)

	_, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: "ok", Attributes: map[string]string{"SentTimestamp": strconv.FormatInt(sent.UnixMilli(), 10)}},
		{MessageId: "m2", Body: "ok", Attributes: map[string]string{"SentTimestamp": "garbage"}},
		{MessageId: "m3", Body: "ok"},
	}})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, m.lags)
}

func TestHandle_EmptyBatch(t *testing.T) {
	h := newHandler(&scriptedProcessor{}, notifcore.NoopMetrics{}, time.Now())
	resp, err := h.Handle(context.Background(), events.SQSEvent{})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}

func TestHandle_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer discord.Close()

	ch := webhook.NewWebhookChannelWithClient(webhook.ChannelConfig{
		URL:     discord.URL,
		Timeout: time.Second,
		Retry:   notifcore.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2},
	}, http.DefaultClient, nopLogger{})

	h := newHandler(relay.New(eventsval.NewValidator(nopLogger{}), ch, nopLogger{}), notifcore.NoopMetrics{}, time.Now())

	valid := `{"eventType":"ORDER_MODIFY","orderId":7,"symbol":"GBPUSD","side":"BUY","volume":1,"price":1.27,"sl":0,"tp":1.27,"comment":"","magic":1,"timestamp":1704067200}`
	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "good-but-undeliverable", Body: valid},
		{MessageId: "bad", Body: `{"eventType":"NOPE"}`},
	}})

	require.NoError(t, err)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "good-but-undeliverable"}}, resp.BatchItemFailures)
	assert.Equal(t, int32(2), calls.Load(), "only the valid record reaches Discord")
}

func TestParseMillisTimestamp(t *testing.T) {
	ts, err := parseMillisTimestamp("1704067200123")
	require.NoError(t, err)
	assert.Equal(t, int64(1704067200123), ts.UnixMilli())

	_, err = parseMillisTimestamp("x")
	assert.Error(t, err)
}

func TestNewHandler_ConcurrencyFromConfig(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("API_SECRET_TOKEN", "sqs-test-token")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")

	t.Setenv("SQS_RELAY_CONCURRENCY", "9")
	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)
	h := NewHandler(cfg.SQSRelay, &scriptedProcessor{}, notifcore.NoopMetrics{}, nopLogger{})
	assert.Equal(t, 9, h.concurrency)
	assert.NotNil(t, h.now)

	require.NoError(t, os.Unsetenv("SQS_RELAY_CONCURRENCY"))
	cfg, err = config.LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, NewHandler(cfg.SQSRelay, &scriptedProcessor{}, notifcore.NoopMetrics{}, nopLogger{}).concurrency)

	t.Setenv("SQS_RELAY_CONCURRENCY", "0")
	_, err = config.LoadConfig(nil)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.ErrValidation, cfgErr.Type)
}
