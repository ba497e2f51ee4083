package webhook

import (
	"fmt"

	"tradenotify/internal/types"
)

// fieldSet selects which detail fields follow the three base fields.
type fieldSet int

const (
	fieldsNone   fieldSet = iota
	fieldsEntry           // entry price, TP, SL
	fieldsClose           // close price, profit
	fieldsLevels          // TP, SL
)

type classification struct {
	description string
	color       int
	fields      fieldSet
}

var classifications = map[types.EventType]classification{
	types.EventOrderOpen:          {"📈 Position Opened", ColorGreen, fieldsEntry},
	types.EventOrderClose:         {"📉 Position Closed", ColorRed, fieldsClose},
	types.EventPartialClose:       {"📉 Position Closed", ColorRed, fieldsClose},
	types.EventSLTPModify:         {"🔧 TP/SL Modified", ColorYellow, fieldsLevels},
	types.EventOrderModify:        {"🔧 Order Modified", ColorYellow, fieldsLevels},
	types.EventPendingOrderAdd:    {"📝 Pending Order Added", ColorBlue, fieldsEntry},
	types.EventPendingOrderModify: {"✏️ Pending Order Modified", ColorBlue, fieldsEntry},
	types.EventPendingOrderDelete: {"🗑️ Pending Order Deleted", ColorBlue, fieldsNone},
}

var fallbackClassification = classification{"🔔 Trading Event", ColorBlue, fieldsNone}

func classify(t types.EventType) classification {
	if c, ok := classifications[t]; ok {
		return c
	}
	return fallbackClassification
}

// BuildEmbed renders a validated event as a Discord embed. It is a pure
// function of ev and never modifies it.
func BuildEmbed(ev *types.TradingEvent) DiscordEmbed {
	c := classify(ev.EventType)

	fields := []DiscordField{
		{Name: "Symbol", Value: ev.Symbol, Inline: true},
		{Name: "Volume", Value: fixed(ev.Volume, volumePlaces), Inline: true},
		{Name: "Side", Value: ev.Side.DisplayName(), Inline: true},
	}

	switch c.fields {
	case fieldsEntry:
		fields = append(fields,
			DiscordField{Name: "Entry Price", Value: fixed(ev.Price, pricePlaces), Inline: true},
			DiscordField{Name: "TP", Value: levelOrNotSet(ev.TP), Inline: true},
			DiscordField{Name: "SL", Value: levelOrNotSet(ev.SL), Inline: true},
		)
	case fieldsClose:
		fields = append(fields, DiscordField{Name: "Close Price", Value: fixed(ev.Price, pricePlaces), Inline: true})
		if ev.Profit != nil {
			fields = append(fields, profitField(*ev.Profit))
		}
	case fieldsLevels:
		fields = append(fields,
			DiscordField{Name: "TP", Value: levelOrNotSet(ev.TP), Inline: true},
			DiscordField{Name: "SL", Value: levelOrNotSet(ev.SL), Inline: true},
		)
	}

	return DiscordEmbed{
		Title:       strategyTitle(ev.Comment),
		Description: c.description,
		Color:       c.color,
		Fields:      fields,
		Timestamp:   formatTimestamp(ev.Time()),
		Footer:      &DiscordFooter{Text: fmt.Sprintf("Order ID: %d", ev.OrderID)},
	}
}

func profitField(profit float64) DiscordField {
	if profit >= 0 {
		return DiscordField{Name: "💰 Profit", Value: "+" + fixed(profit, profitPlaces) + " USD", Inline: true}
	}
	return DiscordField{Name: "❌ Profit", Value: fixed(profit, profitPlaces) + " USD", Inline: true}
}
