package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradenotify/internal/types"
)

func ptr[T any](v T) *T { return &v }

func sampleEvent(t types.EventType) *types.TradingEvent {
	return &types.TradingEvent{
		EventType: t,
		OrderID:   987654,
		Symbol:    "XAUUSD",
		Side:      types.SideSell,
		Volume:    0.5,
		Price:     2034.56789,
		SL:        2050.1,
		TP:        2000,
		Comment:   "Grid",
		Magic:     1001,
		Timestamp: 1700000000,
	}
}

func fieldNames(fields []DiscordField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func fieldValue(t *testing.T, fields []DiscordField, name string) string {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q not found in %v", name, fieldNames(fields))
	return ""
}

func TestBuildEmbed_OrderOpen(t *testing.T) {
	embed := BuildEmbed(sampleEvent(types.EventOrderOpen))

	assert.Equal(t, "**Grid Strategy**", embed.Title)
	assert.Equal(t, "📈 Position Opened", embed.Description)
	assert.Equal(t, ColorGreen, embed.Color)
	assert.Equal(t, []string{"Symbol", "Volume", "Side", "Entry Price", "TP", "SL"}, fieldNames(embed.Fields))

	assert.Equal(t, "XAUUSD", fieldValue(t, embed.Fields, "Symbol"))
	assert.Equal(t, "0.50", fieldValue(t, embed.Fields, "Volume"))
	assert.Equal(t, "Sell", fieldValue(t, embed.Fields, "Side"))
	assert.Equal(t, "2034.56789", fieldValue(t, embed.Fields, "Entry Price"))
	assert.Equal(t, "2000.00000", fieldValue(t, embed.Fields, "TP"))
	assert.Equal(t, "2050.10000", fieldValue(t, embed.Fields, "SL"))

	for _, f := range embed.Fields {
		assert.True(t, f.Inline, "field %s should be inline", f.Name)
	}
}

func TestBuildEmbed_Classification(t *testing.T) {
	tests := []struct {
		eventType   types.EventType
		description string
		color       int
		fields      []string
	}{
		{types.EventOrderOpen, "📈 Position Opened", ColorGreen, []string{"Symbol", "Volume", "Side", "Entry Price", "TP", "SL"}},
		{types.EventOrderClose, "📉 Position Closed", ColorRed, []string{"Symbol", "Volume", "Side", "Close Price"}},
		{types.EventPartialClose, "📉 Position Closed", ColorRed, []string{"Symbol", "Volume", "Side", "Close Price"}},
		{types.EventSLTPModify, "🔧 TP/SL Modified", ColorYellow, []string{"Symbol", "Volume", "Side", "TP", "SL"}},
		{types.EventOrderModify, "🔧 Order Modified", ColorYellow, []string{"Symbol", "Volume", "Side", "TP", "SL"}},
		{types.EventPendingOrderAdd, "📝 Pending Order Added", ColorBlue, []string{"Symbol", "Volume", "Side", "Entry Price", "TP", "SL"}},
		{types.EventPendingOrderModify, "✏️ Pending Order Modified", ColorBlue, []string{"Symbol", "Volume", "Side", "Entry Price", "TP", "SL"}},
		{types.EventPendingOrderDelete, "🗑️ Pending Order Deleted", ColorBlue, []string{"Symbol", "Volume", "Side"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			embed := BuildEmbed(sampleEvent(tt.eventType))
			assert.Equal(t, tt.description, embed.Description)
			assert.Equal(t, tt.color, embed.Color)
			assert.Equal(t, tt.fields, fieldNames(embed.Fields))
		})
	}
}

func TestBuildEmbed_EveryEventTypeIsClassified(t *testing.T) {
	for _, et := range types.AllEventTypes() {
		_, ok := classifications[et]
		assert.True(t, ok, "event type %s has no classification", et)
	}
}

func TestBuildEmbed_UnknownTypeFallsBack(t *testing.T) {
	embed := BuildEmbed(sampleEvent(types.EventType("MARGIN_CALL")))

	assert.Equal(t, "🔔 Trading Event", embed.Description)
	assert.Equal(t, ColorBlue, embed.Color)
	assert.Equal(t, []string{"Symbol", "Volume", "Side"}, fieldNames(embed.Fields))
}

func TestBuildEmbed_Profit(t *testing.T) {
	tests := []struct {
		name      string
		profit    float64
		wantName  string
		wantValue string
	}{
		{"gain", 50.5, "💰 Profit", "+50.50 USD"},
		{"break even", 0, "💰 Profit", "+0.00 USD"},
		{"loss", -12.345, "❌ Profit", "-12.35 USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := sampleEvent(types.EventOrderClose)
			ev.Profit = ptr(tt.profit)

			embed := BuildEmbed(ev)
			require.Len(t, embed.Fields, 5)
			last := embed.Fields[4]
			assert.Equal(t, tt.wantName, last.Name)
			assert.Equal(t, tt.wantValue, last.Value)
		})
	}
}

func TestBuildEmbed_PartialCloseProfit(t *testing.T) {
	ev := sampleEvent(types.EventPartialClose)
	ev.Profit = ptr(-3.0)

	embed := BuildEmbed(ev)
	assert.Equal(t, []string{"Symbol", "Volume", "Side", "Close Price", "❌ Profit"}, fieldNames(embed.Fields))
	assert.Equal(t, "-3.00 USD", embed.Fields[4].Value)
}

func TestBuildEmbed_LevelsNotSet(t *testing.T) {
	ev := sampleEvent(types.EventPendingOrderAdd)
	ev.SL = 0
	ev.TP = -1

	embed := BuildEmbed(ev)
	assert.Equal(t, "Not Set", fieldValue(t, embed.Fields, "TP"))
	assert.Equal(t, "Not Set", fieldValue(t, embed.Fields, "SL"))
}

func TestBuildEmbed_Title(t *testing.T) {
	tests := []struct {
		comment string
		want    string
	}{
		{"Scalper", "**Scalper Strategy**"},
		{"  Breakout v2 ", "**Breakout v2 Strategy**"},
		{"", "**Unnamed Strategy**"},
		{"   ", "**Unnamed Strategy**"},
	}

	for _, tt := range tests {
		ev := sampleEvent(types.EventOrderOpen)
		ev.Comment = tt.comment
		assert.Equal(t, tt.want, BuildEmbed(ev).Title, "comment %q", tt.comment)
	}
}

func TestBuildEmbed_TimestampAndFooter(t *testing.T) {
	ev := sampleEvent(types.EventOrderOpen)
	ev.Timestamp = 1700000000

	embed := BuildEmbed(ev)
	assert.Equal(t, "2023-11-14T22:13:20.000Z", embed.Timestamp)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Order ID: 987654", embed.Footer.Text)
}

func TestBuildEmbed_TimestampRoundTrip(t *testing.T) {
	for _, ts := range []int64{0, 1, 1700000000, 1704067199, 1735689600, 4102444799} {
		ev := sampleEvent(types.EventOrderClose)
		ev.Timestamp = ts

		parsed, err := time.Parse(time.RFC3339Nano, BuildEmbed(ev).Timestamp)
		require.NoError(t, err, "timestamp %d", ts)
		assert.Equal(t, ts, parsed.Unix(), "timestamp %d", ts)
		assert.Equal(t, time.UTC, parsed.Location())
	}
}

func TestBuildEmbed_DecimalRounding(t *testing.T) {
	ev := sampleEvent(types.EventOrderOpen)
	ev.Volume = 1.005
	ev.Price = 1.234565

	embed := BuildEmbed(ev)
	assert.Equal(t, "1.01", fieldValue(t, embed.Fields, "Volume"))
	assert.Equal(t, "1.23457", fieldValue(t, embed.Fields, "Entry Price"))
}

func TestBuildEmbed_DoesNotMutateEvent(t *testing.T) {
	ev := sampleEvent(types.EventOrderClose)
	ev.Profit = ptr(10.0)
	before := *ev

	_ = BuildEmbed(ev)
	assert.Equal(t, before, *ev)
}

func TestBuildEmbed_Deterministic(t *testing.T) {
	ev := sampleEvent(types.EventSLTPModify)
	a, err := json.Marshal(BuildEmbed(ev))
	require.NoError(t, err)
	b, err := json.Marshal(BuildEmbed(ev))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", truncateBody([]byte("  short \n")))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateBody(long)
	assert.Len(t, got, 203)
	assert.Equal(t, "...", got[200:])
}
