// Package pricing holds the input plumbing shared by the pricing CLIs.
package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meenmo/credlib/curve"
	"github.com/meenmo/credlib/utils"
)

// ReadInput decodes a JSON document from the given path, or from stdin when
// the path is empty.
func ReadInput(path string, stdin io.Reader, v interface{}) error {
	var raw []byte
	var err error
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	return nil
}

// DiscountInput describes the risk-free curve: a flat continuously compounded
// zero rate, or explicit zero rates by date. Rates are in percent.
type DiscountInput struct {
	FlatRatePct  float64            `json:"flat_rate_pct,omitempty"`
	ZeroRatesPct map[string]float64 `json:"zero_rates_pct,omitempty"`
}

// BuildDiscount constructs the discount curve described by in.
func BuildDiscount(settlement time.Time, in DiscountInput) (*curve.Curve, error) {
	if len(in.ZeroRatesPct) > 0 {
		zeros := make(map[time.Time]float64, len(in.ZeroRatesPct))
		for dateStr, pct := range in.ZeroRatesPct {
			d, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return nil, fmt.Errorf("zero rate date %q: %w", dateStr, err)
			}
			zeros[d] = pct / 100.0
		}
		return curve.NewFromZeroRates(settlement, zeros, utils.Act365F)
	}
	return curve.NewFlat(settlement, in.FlatRatePct/100.0, utils.Act365F), nil
}
