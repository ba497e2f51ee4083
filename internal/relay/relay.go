// Package relay wires the trading-event pipeline together:
// validate, render, deliver.
package relay

import (
	"context"
	"fmt"

	"tradenotify/internal/notifications/webhook"
	"tradenotify/internal/types"
)

// EventValidator turns a raw payload into a validated TradingEvent.
type EventValidator interface {
	Validate(ctx context.Context, raw []byte) (*types.TradingEvent, error)
}

// Deliverer sends a rendered embed.
type Deliverer interface {
	Deliver(ctx context.Context, embed webhook.DiscordEmbed, ev *types.TradingEvent) (*types.DeliveryResult, error)
}

// Outcome is the result of a fully delivered event.
type Outcome struct {
	Event    *types.TradingEvent
	Delivery *types.DeliveryResult
}

// Relay processes one inbound event at a time; it holds no per-event state
// and may be shared across goroutines.
type Relay struct {
	validator EventValidator
	deliverer Deliverer
	logger    types.Logger
}

// New creates a Relay.
func New(validator EventValidator, deliverer Deliverer, logger types.Logger) *Relay {
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Relay{validator: validator, deliverer: deliverer, logger: logger}
}

// Process validates raw, renders it and delivers it.
//
// Validation failures are returned as the validator's *types.AppError,
// unwrapped, so callers can render them directly. Delivery failures wrap
// *webhook.DeliveryExhaustedError.
func (r *Relay) Process(ctx context.Context, raw []byte) (*Outcome, error) {
	ev, err := r.validator.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	logger := types.LoggerOr(ctx, r.logger)
	logger.Info("received trading event",
		"event_type", string(ev.EventType),
		"symbol", ev.Symbol,
		"side", string(ev.Side),
		"order_id", ev.OrderID,
	)

	embed := webhook.BuildEmbed(ev)

	res, err := r.deliverer.Deliver(ctx, embed, ev)
	if err != nil {
		return &Outcome{Event: ev, Delivery: res}, fmt.Errorf("relay order %d: %w", ev.OrderID, err)
	}
	return &Outcome{Event: ev, Delivery: res}, nil
}
