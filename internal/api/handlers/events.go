// Package handlers contains the HTTP handlers for the trade notification
// relay. Handlers sit behind the core chassis, which has already applied
// authentication, body decoding and the size limit.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradenotify/internal/core"
	"tradenotify/internal/relay"
	"tradenotify/internal/types"
)

// EventProcessor is the pipeline contract. Matches *relay.Relay but is
// defined locally so tests can substitute it.
type EventProcessor interface {
	Process(ctx context.Context, raw []byte) (*relay.Outcome, error)
}

// EventResponse is the 200 body for a delivered event.
type EventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

// FailureResponse is the 500 body when delivery did not succeed. The shape
// is what the Expert Advisor checks before re-sending.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// EventHandler serves POST /api/mt5/event.
type EventHandler struct {
	processor EventProcessor
	logger    *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(p EventProcessor, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{processor: p, logger: logger}
}

// RegisterRoutes mounts the event endpoint. It has the core.RouteRegistrar
// signature.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/event", h.HandleEvent)
}

// HandleEvent validates, renders and delivers one trading event.
//
//  1. Read the decoded body.
//  2. Run the relay pipeline detached from client cancellation, so a
//     disconnecting EA does not abort a delivery that is mid-retry.
//  3. Map validation errors to 400 and delivery failures to 500.
func (h *EventHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := core.ReadBody(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	outcome, err := h.processor.Process(context.WithoutCancel(r.Context()), body)
	if err != nil {
		if appErr, ok := types.AsValidationError(err); ok {
			core.Error(w, r, appErr)
			return
		}

		attrs := []any{
			slog.String("error", err.Error()),
			slog.String("request_id", types.GetRequestID(r.Context())),
		}
		if outcome != nil && outcome.Event != nil {
			attrs = append(attrs,
				slog.String("event_type", string(outcome.Event.EventType)),
				slog.String("symbol", outcome.Event.Symbol),
				slog.Int64("order_id", outcome.Event.OrderID),
			)
		}
		h.logger.Error("failed to process trading event", attrs...)

		core.JSON(w, r, http.StatusInternalServerError, FailureResponse{
			Success: false,
			Error:   "Failed to send notification",
		})
		return
	}

	core.JSON(w, r, http.StatusOK, EventResponse{
		Success: true,
		Message: "Event processed and notification sent",
		OrderID: outcome.Event.OrderID,
	})
}

// Compile-time check.
var _ EventProcessor = (*relay.Relay)(nil)
