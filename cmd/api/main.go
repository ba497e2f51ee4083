// Package main is the entry point for the trade notification relay API.
//
// It loads configuration, builds the delivery pipeline (validator, Discord
// webhook channel, relay), mounts it on the core chassis and serves HTTP
// until SIGINT or SIGTERM. Shutdown drains in-flight requests for up to
// ten seconds.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"tradenotify/internal/api/handlers"
	"tradenotify/internal/config"
	"tradenotify/internal/core"
	"tradenotify/internal/events"
	notifcore "tradenotify/internal/notifications/core"
	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/relay"
	"tradenotify/internal/security"
	"tradenotify/internal/types"
)

const (
	shutdownTimeout = 10 * time.Second
	maxRedirects    = 3
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ssm := config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	cfg, err := config.LoadConfig(ssm)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.Environment)
	logger.Info("tradenotify API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := deliveryMetrics(ctx, cfg, reg, types.NewSlogLogger(logger))
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, logger, reg, metrics)
	if err != nil {
		return err
	}

	return serve(ctx, srv, cfg, logger)
}

// deliveryMetrics always records to Prometheus and additionally to
// CloudWatch when ENABLE_CLOUDWATCH is set.
func deliveryMetrics(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger types.Logger) (notifcore.NotificationMetrics, error) {
	prom := notifcore.NewPrometheusNotificationMetrics(reg)
	if !cfg.Observability.EnableCloudWatch {
		return prom, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
	if cfg.AWS.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	cw := notifcore.NewCloudWatchNotificationMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	return notifcore.MultiMetrics{prom, cw}, nil
}

// buildServer wires the pipeline into a mounted core.Server.
func buildServer(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry, metrics notifcore.NotificationMetrics) (*core.Server, error) {
	tl := types.NewSlogLogger(logger)

	channel, err := newDiscordChannel(cfg, tl, metrics)
	if err != nil {
		return nil, err
	}

	pipeline := relay.New(events.NewValidator(tl), channel, tl)
	eventHandler := handlers.NewEventHandler(pipeline, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = core.NewPrometheusCollector(reg)
	srv.Gatherer = reg
	srv.HealthProbes = append(srv.HealthProbes, channel.HealthProbe())
	srv.RouteRegistrars = append(srv.RouteRegistrars, eventHandler.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

// newDiscordChannel builds the webhook channel, behind the egress guard
// unless WEBHOOK_BLOCK_PRIVATE_NETWORKS=false.
func newDiscordChannel(cfg *config.Config, logger types.Logger, metrics notifcore.NotificationMetrics) (*webhook.WebhookChannel, error) {
	chCfg := webhook.ChannelConfigFrom(cfg)
	if !cfg.Discord.BlockPrivateNetworks {
		ch, err := webhook.NewWebhookChannel(chCfg, logger, webhook.WithMetrics(metrics))
		if err != nil {
			return nil, fmt.Errorf("creating discord channel: %w", err)
		}
		return ch, nil
	}

	if err := security.CheckWebhookURL(chCfg.URL); err != nil {
		return nil, fmt.Errorf("discord webhook url rejected: %w", err)
	}
	return webhook.NewWebhookChannelWithClient(chCfg, security.NewGuardedClient(maxRedirects), logger, webhook.WithMetrics(metrics)), nil
}

// serve runs the listener and the rate limiter sweeper until ctx is done or
// the listener fails, then shuts both down.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Delivery retries run inside the request; leave room past the
		// handler timeout for the response write.
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if limiter, ok := srv.RateLimiter.(*core.IPRateLimiter); ok {
		g.Go(func() error { return limiter.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger returns a JSON logger, or a text logger for APP_ENV=local.
func newLogger(level, env string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
