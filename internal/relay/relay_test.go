package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradenotify/internal/events"
	"tradenotify/internal/notifications/core"
	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)       {}
func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Warn(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (l nopLogger) With(...any) types.Logger { return l }

type fakeDeliverer struct {
	mu     sync.Mutex
	embeds []webhook.DiscordEmbed
	err    error
}

func (f *fakeDeliverer) Deliver(_ context.Context, embed webhook.DiscordEmbed, ev *types.TradingEvent) (*types.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	if f.err != nil {
		return &types.DeliveryResult{Status: types.DeliveryStatusFailed, Attempts: 3}, f.err
	}
	return &types.DeliveryResult{Status: types.DeliveryStatusSent, Attempts: 1, ProviderMessageID: "m-1"}, nil
}

const openPayload = `{
	"eventType": "ORDER_OPEN", "orderId": 42, "symbol": "EURUSD", "side": "BUY",
	"volume": 0.1, "price": 1.0855, "sl": 1.08, "tp": 1.09,
	"comment": "Trend", "magic": 7, "timestamp": 1700000000
}`

func TestProcess_Success(t *testing.T) {
	d := &fakeDeliverer{}
	r := New(events.NewValidator(nopLogger{}), d, nopLogger{})

	out, err := r.Process(context.Background(), []byte(openPayload))
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, int64(42), out.Event.OrderID)
	assert.Equal(t, types.DeliveryStatusSent, out.Delivery.Status)
	require.Len(t, d.embeds, 1)
	assert.Equal(t, "**Trend Strategy**", d.embeds[0].Title)
	assert.Equal(t, webhook.ColorGreen, d.embeds[0].Color)
}

func TestProcess_ValidationErrorNotDelivered(t *testing.T) {
	d := &fakeDeliverer{}
	r := New(events.NewValidator(nopLogger{}), d, nopLogger{})

	out, err := r.Process(context.Background(), []byte(`{"eventType":"ORDER_OPEN"}`))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Empty(t, d.embeds)

	appErr, ok := types.AsValidationError(err)
	require.True(t, ok, "expected validation error, got %T", err)
	assert.Equal(t, types.ErrCodeValidationMissingField, appErr.Code)
}

func TestProcess_DeliveryExhausted(t *testing.T) {
	exhausted := &webhook.DeliveryExhaustedError{
		EventType: types.EventOrderOpen,
		Symbol:    "EURUSD",
		Attempts:  3,
		Err:       errors.New("webhook returned 500"),
	}
	r := New(events.NewValidator(nopLogger{}), &fakeDeliverer{err: exhausted}, nopLogger{})

	out, err := r.Process(context.Background(), []byte(openPayload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, webhook.ErrDeliveryExhausted))

	var de *webhook.DeliveryExhaustedError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 3, de.Attempts)

	_, isValidation := types.AsValidationError(err)
	assert.False(t, isValidation)

	require.NotNil(t, out)
	assert.Equal(t, types.DeliveryStatusFailed, out.Delivery.Status)
}

// TestProcess_EndToEnd runs the real validator and webhook channel against
// a flaky Discord stand-in.
func TestProcess_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var waits []time.Duration
	ch := webhook.NewWebhookChannelWithClient(webhook.ChannelConfig{
		URL:   server.URL,
		Retry: core.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
	}, server.Client(), nopLogger{}, webhook.WithSleepFunc(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}))

	r := New(events.NewValidator(nopLogger{}), ch, nopLogger{})
	out, err := r.Process(context.Background(), []byte(openPayload))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Delivery.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, waits)
	assert.Equal(t, int32(2), calls.Load())
}
