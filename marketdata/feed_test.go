package marketdata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/credlib/marketdata"
)

func TestMapQuoteFeed(t *testing.T) {
	t.Parallel()

	feed := marketdata.NewMapQuoteFeed(map[string][]marketdata.Quote{
		"2020-08-20": {
			{Tenor: "1Y", SpreadBP: 200},
			{Tenor: "5Y", SpreadBP: 290},
		},
	})

	quotes, ok := feed.QuotesOn(time.Date(2020, 8, 20, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Len(t, quotes, 2)
	assert.Equal(t, "1Y", quotes[0].Tenor)
	assert.Equal(t, 290.0, quotes[1].SpreadBP)

	// The time of day is irrelevant: lookups are keyed by calendar date.
	_, ok = feed.QuotesOn(time.Date(2020, 8, 20, 15, 30, 0, 0, time.UTC))
	assert.True(t, ok)

	_, ok = feed.QuotesOn(time.Date(2020, 8, 21, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}
