// Package marketdata supplies CDS spread quotes to the calibration layer.
package marketdata

import "time"

// Quote is a single par CDS spread quote.
type Quote struct {
	Tenor    string  // e.g. "1Y", "5Y"
	SpreadBP float64 // par spread in basis points
}

// QuoteFeed supplies the CDS quote strip for a given curve date.
type QuoteFeed interface {
	QuotesOn(date time.Time) ([]Quote, bool)
}

// MapQuoteFeed is a static map-backed implementation for development/testing.
type MapQuoteFeed struct {
	quotes map[string][]Quote
}

// NewMapQuoteFeed builds a feed keyed by YYYY-MM-DD date strings.
func NewMapQuoteFeed(quotes map[string][]Quote) *MapQuoteFeed {
	return &MapQuoteFeed{quotes: quotes}
}

func (m *MapQuoteFeed) QuotesOn(date time.Time) ([]Quote, bool) {
	qs, ok := m.quotes[date.Format("2006-01-02")]
	return qs, ok
}
