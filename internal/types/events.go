package types

import "time"

// EventType identifies the kind of trading action reported by the terminal.
type EventType string

const (
	EventOrderOpen          EventType = "ORDER_OPEN"
	EventOrderClose         EventType = "ORDER_CLOSE"
	EventOrderModify        EventType = "ORDER_MODIFY"
	EventPendingOrderAdd    EventType = "PENDING_ORDER_ADD"
	EventPendingOrderModify EventType = "PENDING_ORDER_MODIFY"
	EventPendingOrderDelete EventType = "PENDING_ORDER_DELETE"
	EventSLTPModify         EventType = "SL_TP_MODIFY"
	EventPartialClose       EventType = "PARTIAL_CLOSE"
)

// allEventTypes is kept in declaration order; validation error payloads list
// the accepted values in this order.
var allEventTypes = []EventType{
	EventOrderOpen,
	EventOrderClose,
	EventOrderModify,
	EventPendingOrderAdd,
	EventPendingOrderModify,
	EventPendingOrderDelete,
	EventSLTPModify,
	EventPartialClose,
}

// AllEventTypes returns a fresh copy of every defined EventType.
func AllEventTypes() []EventType {
	out := make([]EventType, len(allEventTypes))
	copy(out, allEventTypes)
	return out
}

// Valid reports whether t is one of the defined event types.
func (t EventType) Valid() bool {
	for _, v := range allEventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsClose reports whether the event closes (fully or partially) a position.
func (t EventType) IsClose() bool {
	return t == EventOrderClose || t == EventPartialClose
}

// TradeSide is the direction of an order.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

var allTradeSides = []TradeSide{SideBuy, SideSell}

// AllTradeSides returns a fresh copy of every defined TradeSide.
func AllTradeSides() []TradeSide {
	out := make([]TradeSide, len(allTradeSides))
	copy(out, allTradeSides)
	return out
}

// Valid reports whether s is BUY or SELL.
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// DisplayName renders the side for humans ("Buy", "Sell").
func (s TradeSide) DisplayName() string {
	if s == SideBuy {
		return "Buy"
	}
	return "Sell"
}

// TradingEvent is a single trading action reported by the terminal.
//
// A TradingEvent is built fresh for every inbound request by the event
// validator and is treated as read-only afterwards.
type TradingEvent struct {
	EventType EventType `json:"eventType"`
	OrderID   int64     `json:"orderId"`
	DealID    *int64    `json:"dealId,omitempty"` // closes only
	Symbol    string    `json:"symbol"`
	Side      TradeSide `json:"side"`
	Volume    float64   `json:"volume"`
	Price     float64   `json:"price"`
	SL        float64   `json:"sl"` // <= 0 means not set
	TP        float64   `json:"tp"` // <= 0 means not set
	Comment   string    `json:"comment"`
	Magic     int64     `json:"magic"`
	Timestamp int64     `json:"timestamp"` // Unix seconds
	Profit    *float64  `json:"profit,omitempty"`
	Balance   *float64  `json:"balance,omitempty"`
}

// Time returns the event timestamp as UTC time. The terminal reports Unix
// seconds, so the value is scaled to milliseconds before conversion.
func (e *TradingEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp * 1000).UTC()
}
