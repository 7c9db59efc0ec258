// Command cdscurve bootstraps a survival-probability curve from par CDS
// spread quotes and prints the calibrated pillars as JSON.
//
// Quotes come from the input document, or from a Postgres quote store when
// -pg-dsn is set.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/meenmo/credlib/cmd/internal/pricing"
	"github.com/meenmo/credlib/credit"
	"github.com/meenmo/credlib/marketdata"
	"github.com/meenmo/credlib/utils"
)

// CurveInput defines the JSON input schema for CDS curve bootstrapping.
type CurveInput struct {
	TaskID string `json:"task_id,omitempty"`

	CurveDate    string                `json:"curve_date"`
	RecoveryRate float64               `json:"recovery_rate"`
	Discount     pricing.DiscountInput `json:"discount"`
	Quotes       []marketdata.Quote    `json:"quotes,omitempty"`
	Entity       string                `json:"entity,omitempty"`
}

// CurveOutput defines the JSON output schema.
type CurveOutput struct {
	TaskID  string         `json:"task_id,omitempty"`
	Pillars []PillarOutput `json:"pillars,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// PillarOutput is one calibrated pillar.
type PillarOutput struct {
	Maturity            string  `json:"maturity"`
	SurvivalProbability float64 `json:"survival_probability"`
	HazardRatePct       float64 `json:"hazard_rate_pct"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cdscurve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "input JSON path (default: stdin)")
	pgDSN := fs.String("pg-dsn", "", "Postgres DSN for the CDS quote store (overrides inline quotes)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var in CurveInput
	if err := pricing.ReadInput(*inputPath, stdin, &in); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	out := CurveOutput{TaskID: in.TaskID}
	if err := bootstrap(&in, *pgDSN, &out); err != nil {
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

func bootstrap(in *CurveInput, pgDSN string, out *CurveOutput) error {
	curveDate := utils.DateParser(in.CurveDate)

	quotes := in.Quotes
	if pgDSN != "" {
		store, err := marketdata.OpenPGStore(pgDSN, in.Entity)
		if err != nil {
			return err
		}
		defer store.Close()
		qs, ok := store.QuotesOn(curveDate)
		if !ok {
			return fmt.Errorf("no quotes for %s", in.CurveDate)
		}
		quotes = qs
	}
	if len(quotes) == 0 {
		return fmt.Errorf("no CDS quotes supplied")
	}

	disc, err := pricing.BuildDiscount(curveDate, in.Discount)
	if err != nil {
		return err
	}

	cdsList := make([]credit.CDS, 0, len(quotes))
	for _, q := range quotes {
		cds, err := credit.NewCDSByTenor(curveDate, q.Tenor, q.SpreadBP/10000.0)
		if err != nil {
			return err
		}
		cdsList = append(cdsList, cds)
	}

	surv, err := credit.Bootstrap(curveDate, cdsList, disc, in.RecoveryRate)
	if err != nil {
		return err
	}

	dates, probs := surv.Pillars()
	hazards := surv.HazardRates()
	for i := 1; i < len(dates); i++ {
		out.Pillars = append(out.Pillars, PillarOutput{
			Maturity:            dates[i].Format("2006-01-02"),
			SurvivalProbability: utils.RoundTo(probs[i], 10),
			HazardRatePct:       utils.RoundTo(hazards[i-1]*100, 6),
		})
	}
	return nil
}
