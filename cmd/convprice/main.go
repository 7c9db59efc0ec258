// Command convprice values a convertible bond on the credit-adjusted binomial
// lattice and prints price, bond floor and greeks, alongside an analytic
// Black-Scholes reference for the embedded conversion option.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meenmo/credlib/bond"
	"github.com/meenmo/credlib/cmd/internal/pricing"
	"github.com/meenmo/credlib/curve"
	"github.com/meenmo/credlib/options"
	"github.com/meenmo/credlib/utils"
)

// PricingInput defines the JSON input schema for convertible bond valuation.
type PricingInput struct {
	TaskID string `json:"task_id,omitempty"`

	ValuationDate string                `json:"valuation_date"`
	Discount      pricing.DiscountInput `json:"discount"`
	Bond          BondInput             `json:"bond"`
	Market        MarketInput           `json:"market"`
}

// BondInput describes the convertible bond covenants.
type BondInput struct {
	MaturityDate     string          `json:"maturity_date"`
	CouponPct        float64         `json:"coupon_pct"`
	PaymentsPerYear  int             `json:"payments_per_year"`
	Face             float64         `json:"face"`
	ConversionRatio  float64         `json:"conversion_ratio"`
	StartConvertDate string          `json:"start_convert_date,omitempty"`
	Calls            []ScheduleInput `json:"calls,omitempty"`
	Puts             []ScheduleInput `json:"puts,omitempty"`
}

// ScheduleInput is one call or put schedule entry.
type ScheduleInput struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// MarketInput describes the market state.
type MarketInput struct {
	Spot           float64         `json:"spot"`
	VolatilityPct  float64         `json:"volatility_pct"`
	CreditSpreadBP float64         `json:"credit_spread_bp"`
	RecoveryRate   float64         `json:"recovery_rate"`
	StepsPerYear   int             `json:"steps_per_year,omitempty"`
	Dividends      []DividendInput `json:"dividends,omitempty"`
}

// DividendInput is a discrete proportional dividend.
type DividendInput struct {
	Date     string  `json:"date"`
	YieldPct float64 `json:"yield_pct"`
}

// PricingOutput defines the JSON output schema.
type PricingOutput struct {
	TaskID      string  `json:"task_id,omitempty"`
	Price       float64 `json:"price"`
	BondFloor   float64 `json:"bond_floor"`
	OptionValue float64 `json:"option_value"`
	Delta       float64 `json:"delta"`
	Gamma       float64 `json:"gamma"`
	Theta       float64 `json:"theta"`
	// BSReferenceCall is the analytic value of a European call on the
	// conversion shares struck at parity, for sanity checking.
	BSReferenceCall float64 `json:"bs_reference_call,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convprice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "input JSON path (default: stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var in PricingInput
	if err := pricing.ReadInput(*inputPath, stdin, &in); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	out := PricingOutput{TaskID: in.TaskID}
	if err := price(&in, &out); err != nil {
		out.Error = err.Error()
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if out.Error != "" {
		return 1
	}
	return 0
}

func price(in *PricingInput, out *PricingOutput) error {
	valuation := utils.DateParser(in.ValuationDate)

	disc, err := pricing.BuildDiscount(valuation, in.Discount)
	if err != nil {
		return err
	}

	cb := bond.ConvertibleBond{
		MaturityDate:    utils.DateParser(in.Bond.MaturityDate),
		CouponRate:      in.Bond.CouponPct / 100.0,
		PaymentsPerYear: in.Bond.PaymentsPerYear,
		Face:            in.Bond.Face,
		ConversionRatio: in.Bond.ConversionRatio,
	}
	if in.Bond.StartConvertDate != "" {
		cb.StartConvertDate = utils.DateParser(in.Bond.StartConvertDate)
	}
	for _, c := range in.Bond.Calls {
		cb.CallSchedule = append(cb.CallSchedule, bond.CallTerm{Date: utils.DateParser(c.Date), Price: c.Price})
	}
	for _, p := range in.Bond.Puts {
		cb.PutSchedule = append(cb.PutSchedule, bond.PutTerm{Date: utils.DateParser(p.Date), Price: p.Price})
	}

	mkt := bond.MarketInputs{
		Spot:         in.Market.Spot,
		Volatility:   in.Market.VolatilityPct / 100.0,
		Discount:     disc,
		CreditSpread: in.Market.CreditSpreadBP / 10000.0,
		RecoveryRate: in.Market.RecoveryRate,
		StepsPerYear: in.Market.StepsPerYear,
	}
	for _, d := range in.Market.Dividends {
		mkt.Dividends = append(mkt.Dividends, bond.Dividend{Date: utils.DateParser(d.Date), Yield: d.YieldPct / 100.0})
	}

	v, err := bond.PriceConvertible(valuation, cb, mkt)
	if err != nil {
		return err
	}

	out.Price = utils.RoundTo(v.Price, 6)
	out.BondFloor = utils.RoundTo(v.BondFloor, 6)
	out.OptionValue = utils.RoundTo(v.Price-v.BondFloor, 6)
	out.Delta = utils.RoundTo(v.Delta, 6)
	out.Gamma = utils.RoundTo(v.Gamma, 8)
	out.Theta = utils.RoundTo(v.Theta, 6)

	out.BSReferenceCall = bsReference(valuation, cb, mkt, disc)
	return nil
}

// bsReference prices the conversion option as a European call on the
// conversion shares struck at parity, ignoring call/put covenants.
func bsReference(valuation time.Time, cb bond.ConvertibleBond, mkt bond.MarketInputs, disc *curve.Curve) float64 {
	if cb.ConversionRatio <= 0 {
		return 0
	}
	t := utils.YearFraction(valuation, cb.MaturityDate, utils.Act365F)
	r := disc.ZeroRateAt(cb.MaturityDate)
	strike := cb.Face / cb.ConversionRatio
	call, err := options.Price(options.Call, mkt.Spot, strike, r, 0, mkt.Volatility, t)
	if err != nil {
		return 0
	}
	return utils.RoundTo(cb.ConversionRatio*call, 6)
}
