// Package main is the entrypoint for the SQS relay Lambda function.
//
// Terminals that cannot reach the HTTP API directly publish the same event
// JSON to an SQS queue. Each record body is one trading event; it runs
// through the same validate, render, deliver pipeline as POST /api/mt5/event.
//
// Per record:
//   - Invalid events are logged and acknowledged. Redelivery cannot fix them.
//   - Events whose delivery exhausts every attempt are reported in
//     BatchItemFailures so SQS redelivers only those records.
//
// Records in a batch are processed concurrently, bounded by
// SQS_RELAY_CONCURRENCY (config.SQSRelayConfig).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"golang.org/x/sync/errgroup"

	"tradenotify/internal/config"
	eventsval "tradenotify/internal/events"
	notifcore "tradenotify/internal/notifications/core"
	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/relay"
	"tradenotify/internal/security"
	"tradenotify/internal/types"
)

// Processor is the pipeline contract. Matches *relay.Relay.
type Processor interface {
	Process(ctx context.Context, raw []byte) (*relay.Outcome, error)
}

// Handler holds the dependencies for the SQS relay handler.
type Handler struct {
	processor   Processor
	metrics     notifcore.NotificationMetrics
	logger      types.Logger
	concurrency int
	now         func() time.Time
}

// Handle processes an SQS batch and reports the records to retry.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	failed := make([]bool, len(sqsEvent.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, h.concurrency))

	var mu sync.Mutex
	for i, record := range sqsEvent.Records {
		g.Go(func() error {
			if err := h.processMessage(gctx, record); err != nil {
				h.logger.Error("failed to process SQS message",
					"message_id", record.MessageId,
					"error", err.Error(),
				)
				mu.Lock()
				failed[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	response := events.SQSEventResponse{}
	for i, record := range sqsEvent.Records {
		if failed[i] {
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}
	return response, nil
}

// processMessage returns an error only when the record should be redelivered.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	logger := h.logger.With("message_id", record.MessageId)
	ctx = types.WithLogger(types.WithRequestID(ctx, record.MessageId), logger)

	if sent, ok := record.Attributes["SentTimestamp"]; ok {
		if sentAt, err := parseMillisTimestamp(sent); err == nil {
			h.metrics.RecordQueueLag(ctx, h.now().Sub(sentAt))
		}
	}

	_, err := h.processor.Process(ctx, []byte(record.Body))
	if err == nil {
		return nil
	}

	if appErr, ok := types.AsValidationError(err); ok {
		// Permanent failure: ACK so the record does not cycle to the DLQ.
		logger.Warn("dropping invalid trading event",
			"code", string(appErr.Code),
			"error", appErr.Message,
		)
		return nil
	}
	return err
}

// parseMillisTimestamp parses the SentTimestamp attribute (epoch millis).
func parseMillisTimestamp(ms string) (time.Time, error) {
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse SentTimestamp %q: %w", ms, err)
	}
	return time.UnixMilli(millis), nil
}

// NewHandler builds a Handler whose batch fan-out comes from cfg.
func NewHandler(cfg config.SQSRelayConfig, processor Processor, metrics notifcore.NotificationMetrics, logger types.Logger) *Handler {
	return &Handler{
		processor:   processor,
		metrics:     metrics,
		logger:      logger,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("SQS relay Lambda initializing (cold start)")

	ssm := config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	if err := config.ResolveSecrets(ssm); err != nil {
		logger.Error("Failed to resolve SSM parameters", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	tl := types.NewSlogLogger(logger)

	var metrics notifcore.NotificationMetrics = notifcore.NoopMetrics{}
	if cfg.Observability.EnableCloudWatch {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.EndpointURL != "" {
			opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		metrics = notifcore.NewCloudWatchNotificationMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, tl)
	}

	chCfg := webhook.ChannelConfigFrom(cfg)
	var channel *webhook.WebhookChannel
	if cfg.Discord.BlockPrivateNetworks {
		if err := security.CheckWebhookURL(chCfg.URL); err != nil {
			logger.Error("Discord webhook URL rejected", "error", err)
			os.Exit(1)
		}
		channel = webhook.NewWebhookChannelWithClient(chCfg, security.NewGuardedClient(3), tl, webhook.WithMetrics(metrics))
	} else {
		channel, err = webhook.NewWebhookChannel(chCfg, tl, webhook.WithMetrics(metrics))
		if err != nil {
			logger.Error("Failed to create discord channel", "error", err)
			os.Exit(1)
		}
	}

	handler := NewHandler(cfg.SQSRelay, relay.New(eventsval.NewValidator(tl), channel, tl), metrics, tl)

	logger.Info("SQS relay Lambda initialized",
		"version", cfg.Build.Version,
		"max_attempts", cfg.Retry.MaxAttempts,
		"concurrency", handler.concurrency,
		"cloudwatch", cfg.Observability.EnableCloudWatch,
	)

	lambda.Start(handler.Handle)
}
