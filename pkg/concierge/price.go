package concierge

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parsePriceMessage extracts the new price from a waiting message such as
// "New price: £12.34". The boolean is false when the text after the colon
// cannot be read as a price.
func parsePriceMessage(msg, currencyMarker string) (string, bool) {
	_, after, found := strings.Cut(msg, ":")
	if !found {
		return "", false
	}
	raw := strings.TrimSpace(after)
	raw = strings.TrimPrefix(raw, currencyMarker)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if _, err := decimal.NewFromString(raw); err != nil {
		return "", false
	}
	return raw, true
}

// priceDecreased compares the reported price against the currently held one.
// The boolean result is only meaningful when ok is true; any unparsable input
// forces the prompt path instead of a silent auto-accept. Equal prices are
// "not lower", so they prompt too.
func priceDecreased(newPrice, currentPrice string) (decreased, ok bool) {
	next, err := decimal.NewFromString(strings.TrimSpace(newPrice))
	if err != nil {
		return false, false
	}
	current, err := decimal.NewFromString(strings.TrimSpace(currentPrice))
	if err != nil {
		return false, false
	}
	return next.LessThan(current), true
}
