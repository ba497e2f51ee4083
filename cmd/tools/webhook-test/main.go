// Package main implements the webhook-test CLI tool for checking a Discord
// webhook before pointing the relay at it.
//
// Usage:
//
//	go run ./cmd/tools/webhook-test --url=<discord webhook url>
//	go run ./cmd/tools/webhook-test --samples
//
// Environment variables (used as defaults when flags are not set):
//
//	DISCORD_WEBHOOK_URL - Discord webhook URL
//
// Without --samples the tool posts a single "system test" embed. With
// --samples it renders one sample event per event type through the same
// formatter the relay uses, so the channel shows every embed variant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradenotify/internal/notifications/core"
	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/types"
)

func main() {
	url := flag.String("url", os.Getenv("DISCORD_WEBHOOK_URL"), "Discord webhook URL (or DISCORD_WEBHOOK_URL env)")
	samples := flag.Bool("samples", false, "Send one sample embed per event type")
	attempts := flag.Int("attempts", 1, "Delivery attempts per message")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-attempt HTTP timeout")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *url == "" {
		logger.Error("--url or DISCORD_WEBHOOK_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := core.DiscordRetryPolicy
	policy.MaxAttempts = *attempts
	ch, err := webhook.NewWebhookChannel(webhook.ChannelConfig{
		URL:       *url,
		Timeout:   *timeout,
		UserAgent: "TradeNotify-WebhookTest/1.0",
		Retry:     policy,
	}, types.NewSlogLogger(logger))
	if err != nil {
		logger.Error("invalid webhook configuration", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	var sent int
	if *samples {
		for _, ev := range sampleEvents(now) {
			if err := send(ctx, ch, webhook.BuildEmbed(ev), ev, logger); err != nil {
				os.Exit(1)
			}
			sent++
		}
	} else {
		ev := &types.TradingEvent{EventType: "SYSTEM_TEST", Symbol: "TEST", Timestamp: now.Unix()}
		if err := send(ctx, ch, testEmbed(now), ev, logger); err != nil {
			os.Exit(1)
		}
		sent++
	}

	fmt.Printf("Discord webhook test passed: %d message(s) delivered. Check the channel.\n", sent)
}

func send(ctx context.Context, ch *webhook.WebhookChannel, embed webhook.DiscordEmbed, ev *types.TradingEvent, logger *slog.Logger) error {
	res, err := ch.Deliver(ctx, embed, ev)
	if err != nil {
		logger.Error("Discord webhook test failed", "event_type", string(ev.EventType), "error", err)
		return err
	}
	logger.Info("delivered",
		"event_type", string(ev.EventType),
		"attempts", res.Attempts,
		"provider_message_id", res.ProviderMessageID,
	)
	return nil
}

func testEmbed(now time.Time) webhook.DiscordEmbed {
	return webhook.DiscordEmbed{
		Title:       "🎉 TradeNotify Test Notification",
		Description: "If you can see this message, the Discord webhook is configured correctly.",
		Color:       webhook.ColorGreen,
		Fields: []webhook.DiscordField{
			{Name: "Status", Value: "✅ Running", Inline: true},
			{Name: "Test Time", Value: now.Format(time.RFC1123), Inline: true},
		},
		Timestamp: now.Format("2006-01-02T15:04:05.000Z"),
		Footer:    &webhook.DiscordFooter{Text: "TradeNotify System Test"},
	}
}

// sampleEvents returns one event per type with plausible EURUSD values.
func sampleEvents(now time.Time) []*types.TradingEvent {
	profit := 42.5
	loss := -18.25
	out := make([]*types.TradingEvent, 0, len(types.AllEventTypes()))
	for i, et := range types.AllEventTypes() {
		ev := &types.TradingEvent{
			EventType: et,
			OrderID:   int64(900000 + i),
			Symbol:    "EURUSD",
			Side:      types.SideBuy,
			Volume:    0.1,
			Price:     1.08525,
			SL:        1.08025,
			TP:        1.09525,
			Comment:   "Sample",
			Magic:     2024,
			Timestamp: now.Unix(),
		}
		if et.IsClose() {
			ev.Profit = &profit
			if et == types.EventPartialClose {
				ev.Profit = &loss
			}
		}
		out = append(out, ev)
	}
	return out
}
