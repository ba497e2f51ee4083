package webhook

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	volumePlaces = 2
	pricePlaces  = 5
	profitPlaces = 2

	notSet          = "Not Set"
	unnamedStrategy = "Unnamed Strategy"

	// Millisecond-precision ISO-8601, always UTC.
	embedTimestampLayout = "2006-01-02T15:04:05.000Z"
)

// fixed renders v with exactly places decimals. Rounding happens on the
// shortest decimal representation of v, so 1.005 renders as "1.01".
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// levelOrNotSet renders a TP/SL level; zero or negative means no level.
func levelOrNotSet(v float64) string {
	if v <= 0 {
		return notSet
	}
	return fixed(v, pricePlaces)
}

func strategyTitle(comment string) string {
	name := strings.TrimSpace(comment)
	if name == "" {
		return "**" + unnamedStrategy + "**"
	}
	return "**" + name + " Strategy**"
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(embedTimestampLayout)
}

// truncateBody shortens a response body for log and error messages.
func truncateBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
