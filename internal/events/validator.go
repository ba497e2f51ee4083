// Package events turns raw trading event payloads into validated
// types.TradingEvent values.
//
// Checks run in a fixed order and the first failing stage wins:
//
//	shape -> presence -> field types -> emptiness -> enumerations -> numeric range
//
// Every rejection is a *types.AppError with a validation_* code, so callers
// can map it straight to a 400 response or a permanent queue failure.
package events

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"tradenotify/internal/types"
)

// Wire names of the required fields, in the order they are reported.
var requiredFields = []string{
	"eventType",
	"orderId",
	"symbol",
	"side",
	"volume",
	"price",
	"timestamp",
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindInteger
)

// fieldKinds lists every field the validator type-checks. Optional fields
// are only checked when present and non-null.
var fieldKinds = []struct {
	name string
	kind fieldKind
}{
	{"eventType", kindString},
	{"orderId", kindInteger},
	{"dealId", kindInteger},
	{"symbol", kindString},
	{"side", kindString},
	{"volume", kindNumber},
	{"price", kindNumber},
	{"sl", kindNumber},
	{"tp", kindNumber},
	{"comment", kindString},
	{"magic", kindInteger},
	{"timestamp", kindInteger},
	{"profit", kindNumber},
	{"balance", kindNumber},
}

// Validator checks raw event payloads. It is safe for concurrent use.
type Validator struct {
	logger   types.Logger
	validate *validator.Validate
}

// NewValidator creates a Validator that logs outcomes to logger.
func NewValidator(logger types.Logger) *Validator {
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Validator{
		logger:   logger,
		validate: validator.New(),
	}
}

// Validate parses raw and applies every validation stage. On success the
// returned event is fully populated; on failure the error is a
// *types.AppError and the event is nil.
func (v *Validator) Validate(ctx context.Context, raw []byte) (*types.TradingEvent, error) {
	log := types.LoggerOr(ctx, v.logger)

	ev, appErr := v.check(raw)
	if appErr != nil {
		args := []any{"code", appErr.Code, "error", appErr.Message}
		for k, d := range appErr.Details {
			args = append(args, k, d)
		}
		log.Warn("trading event rejected", args...)
		return nil, appErr
	}

	log.Debug("trading event validated",
		"eventType", ev.EventType,
		"symbol", ev.Symbol,
		"orderId", ev.OrderID,
	)
	return ev, nil
}

func (v *Validator) check(raw []byte) (*types.TradingEvent, *types.AppError) {
	if !gjson.ValidBytes(raw) {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body must be a JSON object", nil)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body must be a JSON object", nil)
	}

	if missing := missingFields(doc); len(missing) > 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"Missing required fields", nil, map[string]any{"fields": missing})
	}

	if mistyped := mistypedFields(doc); len(mistyped) > 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidFieldType,
			"Invalid field types", nil, map[string]any{"fields": mistyped})
	}

	ev := decode(doc)

	if ev.Symbol == "" {
		return nil, types.NewAppError(types.ErrCodeValidationEmptyField, "Symbol cannot be empty", nil)
	}
	if ev.Side == "" {
		return nil, types.NewAppError(types.ErrCodeValidationEmptyField, "Side cannot be empty", nil)
	}

	if !ev.EventType.Valid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidEventType,
			"Invalid eventType", nil, map[string]any{"validTypes": types.AllEventTypes()})
	}
	if !ev.Side.Valid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidSide,
			"Invalid side", nil, map[string]any{"validSides": types.AllTradeSides()})
	}

	if err := v.validate.Var(ev.Volume, "gt=0"); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidVolume, "Volume must be greater than 0", err)
	}
	if err := v.validate.Var(ev.Price, "gt=0"); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidPrice, "Price must be greater than 0", err)
	}

	return ev, nil
}

// missingFields returns the required fields that are absent or null.
func missingFields(doc gjson.Result) []string {
	var missing []string
	for _, name := range requiredFields {
		if r := doc.Get(name); !r.Exists() || r.Type == gjson.Null {
			missing = append(missing, name)
		}
	}
	return missing
}

// mistypedFields returns every present, non-null field whose JSON type does
// not match its expected kind. Integer fields reject fractional numbers.
func mistypedFields(doc gjson.Result) []string {
	var bad []string
	for _, f := range fieldKinds {
		r := doc.Get(f.name)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		switch f.kind {
		case kindString:
			if r.Type != gjson.String {
				bad = append(bad, f.name)
			}
		case kindNumber:
			if r.Type != gjson.Number {
				bad = append(bad, f.name)
			}
		case kindInteger:
			if r.Type != gjson.Number || r.Num != math.Trunc(r.Num) {
				bad = append(bad, f.name)
			}
		}
	}
	return bad
}

// decode copies a type-checked document into a TradingEvent.
func decode(doc gjson.Result) *types.TradingEvent {
	ev := &types.TradingEvent{
		EventType: types.EventType(doc.Get("eventType").String()),
		OrderID:   doc.Get("orderId").Int(),
		Symbol:    doc.Get("symbol").String(),
		Side:      types.TradeSide(doc.Get("side").String()),
		Volume:    doc.Get("volume").Float(),
		Price:     doc.Get("price").Float(),
		SL:        doc.Get("sl").Float(),
		TP:        doc.Get("tp").Float(),
		Comment:   doc.Get("comment").String(),
		Magic:     doc.Get("magic").Int(),
		Timestamp: doc.Get("timestamp").Int(),
	}
	if r := doc.Get("dealId"); r.Type == gjson.Number {
		id := r.Int()
		ev.DealID = &id
	}
	if r := doc.Get("profit"); r.Type == gjson.Number {
		p := r.Float()
		ev.Profit = &p
	}
	if r := doc.Get("balance"); r.Type == gjson.Number {
		b := r.Float()
		ev.Balance = &b
	}
	return ev
}
