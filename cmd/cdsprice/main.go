// Command cdsprice values a single CDS against a curve bootstrapped from the
// supplied quote strip, reporting PVs, risky annuities, par spread and DV01.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meenmo/credlib/cmd/internal/pricing"
	"github.com/meenmo/credlib/credit"
	"github.com/meenmo/credlib/marketdata"
	"github.com/meenmo/credlib/utils"
)

// PricingInput defines the JSON input schema for CDS valuation.
type PricingInput struct {
	TaskID string `json:"task_id,omitempty"`

	ValuationDate string                `json:"valuation_date"`
	RecoveryRate  float64               `json:"recovery_rate"`
	Discount      pricing.DiscountInput `json:"discount"`
	Quotes        []marketdata.Quote    `json:"quotes"`

	Contract ContractInput `json:"contract"`
}

// ContractInput describes the CDS being valued.
type ContractInput struct {
	EffectiveDate  string  `json:"effective_date,omitempty"`
	MaturityDate   string  `json:"maturity_date,omitempty"`
	Tenor          string  `json:"tenor,omitempty"`
	CouponBP       float64 `json:"coupon_bp"`
	Notional       float64 `json:"notional"`
	LongProtection bool    `json:"long_protection"`
}

// PricingOutput defines the JSON output schema.
type PricingOutput struct {
	TaskID          string  `json:"task_id,omitempty"`
	FullPV          float64 `json:"full_pv"`
	CleanPV         float64 `json:"clean_pv"`
	AccruedInterest float64 `json:"accrued_interest"`
	AccruedDays     int     `json:"accrued_days"`
	ProtectionLegPV float64 `json:"protection_leg_pv"`
	PremiumLegPV    float64 `json:"premium_leg_pv"`
	FullRPV01       float64 `json:"full_rpv01"`
	CleanRPV01      float64 `json:"clean_rpv01"`
	ParSpreadBP     float64 `json:"par_spread_bp"`
	CreditDV01      float64 `json:"credit_dv01"`
	Error           string  `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cdsprice", flag.ContinueOnError)
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

	quotes := make([]credit.CDS, 0, len(in.Quotes))
	for _, q := range in.Quotes {
		cds, err := credit.NewCDSByTenor(valuation, q.Tenor, q.SpreadBP/10000.0)
		if err != nil {
			return err
		}
		quotes = append(quotes, cds)
	}

	surv, err := credit.Bootstrap(valuation, quotes, disc, in.RecoveryRate)
	if err != nil {
		return err
	}

	contract, err := buildContract(valuation, in.Contract)
	if err != nil {
		return err
	}

	v, err := credit.Price(valuation, contract, surv, disc, in.RecoveryRate)
	if err != nil {
		return err
	}
	dv01, err := credit.DV01(valuation, contract, quotes, disc, in.RecoveryRate)
	if err != nil {
		return err
	}

	out.FullPV = utils.RoundTo(v.FullPV, 4)
	out.CleanPV = utils.RoundTo(v.CleanPV, 4)
	out.AccruedInterest = utils.RoundTo(v.AccruedInterest, 4)
	out.AccruedDays = v.AccruedDays
	out.ProtectionLegPV = utils.RoundTo(v.ProtectionLegPV, 10)
	out.PremiumLegPV = utils.RoundTo(v.PremiumLegPV, 10)
	out.FullRPV01 = utils.RoundTo(v.FullRPV01, 10)
	out.CleanRPV01 = utils.RoundTo(v.CleanRPV01, 10)
	out.ParSpreadBP = utils.RoundTo(v.ParSpread*10000.0, 4)
	out.CreditDV01 = utils.RoundTo(dv01, 4)
	return nil
}

func buildContract(valuation time.Time, in ContractInput) (credit.CDS, error) {
	if in.Notional <= 0 {
		return credit.CDS{}, fmt.Errorf("contract notional must be positive")
	}

	var cds credit.CDS
	var err error
	switch {
	case in.MaturityDate != "":
		effective := valuation
		if in.EffectiveDate != "" {
			effective = utils.DateParser(in.EffectiveDate)
		}
		cds = credit.NewCDS(effective, utils.DateParser(in.MaturityDate), in.CouponBP/10000.0)
	case in.Tenor != "":
		cds, err = credit.NewCDSByTenor(valuation, in.Tenor, in.CouponBP/10000.0)
		if err != nil {
			return credit.CDS{}, err
		}
	default:
		return credit.CDS{}, fmt.Errorf("contract needs maturity_date or tenor")
	}

	cds.Notional = in.Notional
	cds.LongProtection = in.LongProtection
	return cds, nil
}
