// Package curve provides the risk-free discount curve consumed by the credit
// and convertible engines. Curves are built once from externally bootstrapped
// discount factors or zero rates and are immutable afterwards, so a single
// curve can be shared across concurrent valuation calls.
package curve

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/credlib/utils"
)

// ErrEmptyCurve is returned when no anchor points are supplied.
var ErrEmptyCurve = errors.New("empty curve")

// Curve maps dates to discount factors with log-linear interpolation on the
// discount factors (piecewise-constant instantaneous forwards). Beyond the
// last anchor the final forward rate is extrapolated flat.
type Curve struct {
	settlement time.Time
	dates      []time.Time
	dfs        []float64
	dayCount   string
}

// NewFromDFs creates a curve from explicitly provided discount factors.
// The settlement anchor DF = 1.0 is inserted if not supplied.
func NewFromDFs(settlement time.Time, dfs map[time.Time]float64, dayCount string) (*Curve, error) {
	if len(dfs) == 0 {
		return nil, fmt.Errorf("curve.NewFromDFs: %w", ErrEmptyCurve)
	}
	if dayCount == "" {
		dayCount = utils.Act365F
	}

	dates := make([]time.Time, 0, len(dfs)+1)
	for d := range dfs {
		dates = append(dates, d)
	}
	utils.SortDates(dates)

	c := &Curve{settlement: settlement, dayCount: dayCount}
	if !dates[0].Equal(settlement) {
		if dates[0].Before(settlement) {
			return nil, fmt.Errorf("curve.NewFromDFs: anchor %s before settlement", dates[0].Format("2006-01-02"))
		}
		c.dates = append(c.dates, settlement)
		c.dfs = append(c.dfs, 1.0)
	}
	for _, d := range dates {
		df := dfs[d]
		if df <= 0 {
			return nil, fmt.Errorf("curve.NewFromDFs: non-positive DF %.12f at %s", df, d.Format("2006-01-02"))
		}
		if d.Equal(settlement) && math.Abs(df-1.0) > 1e-12 {
			return nil, fmt.Errorf("curve.NewFromDFs: DF at settlement must be 1.0, got %.12f", df)
		}
		c.dates = append(c.dates, d)
		c.dfs = append(c.dfs, df)
	}
	return c, nil
}

// NewFromZeroRates creates a curve from continuously compounded zero rates
// (decimals, e.g. 0.025 for 2.5%).
func NewFromZeroRates(settlement time.Time, zeros map[time.Time]float64, dayCount string) (*Curve, error) {
	if len(zeros) == 0 {
		return nil, fmt.Errorf("curve.NewFromZeroRates: %w", ErrEmptyCurve)
	}
	if dayCount == "" {
		dayCount = utils.Act365F
	}
	dfs := make(map[time.Time]float64, len(zeros))
	for d, z := range zeros {
		t := utils.YearFraction(settlement, d, dayCount)
		dfs[d] = math.Exp(-z * t)
	}
	return NewFromDFs(settlement, dfs, dayCount)
}

// NewFlat creates a curve with a single continuously compounded zero rate.
//
// Log-linear DF interpolation reproduces exp(-r*t) exactly between anchors,
// so two anchors spanning the usable horizon suffice.
func NewFlat(settlement time.Time, rate float64, dayCount string) *Curve {
	if dayCount == "" {
		dayCount = utils.Act365F
	}
	far := settlement.AddDate(100, 0, 0)
	t := utils.YearFraction(settlement, far, dayCount)
	return &Curve{
		settlement: settlement,
		dates:      []time.Time{settlement, far},
		dfs:        []float64{1.0, math.Exp(-rate * t)},
		dayCount:   dayCount,
	}
}

// DF returns the interpolated discount factor at t. DF is 1.0 at or before
// settlement.
func (c *Curve) DF(t time.Time) float64 {
	if !t.After(c.settlement) {
		return 1.0
	}
	for i, d := range c.dates {
		if d.Equal(t) {
			return c.dfs[i]
		}
	}
	if len(c.dates) < 2 {
		return 1.0
	}

	d1, d2 := utils.AdjacentDates(t, c.dates)
	df1 := c.dfAt(d1)
	df2 := c.dfAt(d2)

	t1 := utils.YearFraction(c.settlement, d1, c.dayCount)
	t2 := utils.YearFraction(c.settlement, d2, c.dayCount)
	tTarget := utils.YearFraction(c.settlement, t, c.dayCount)

	if t2 == t1 {
		return df1
	}
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(tTarget-t1))
}

// ZeroRateAt returns the continuously compounded zero rate at t as a decimal.
func (c *Curve) ZeroRateAt(t time.Time) float64 {
	yearFrac := utils.YearFraction(c.settlement, t, c.dayCount)
	if yearFrac <= 0 {
		return 0
	}
	return -math.Log(c.DF(t)) / yearFrac
}

// Settlement returns the curve's settlement date.
func (c *Curve) Settlement() time.Time {
	return c.settlement
}

// DayCount returns the curve's day count convention.
func (c *Curve) DayCount() string {
	return c.dayCount
}

func (c *Curve) dfAt(d time.Time) float64 {
	for i, anchor := range c.dates {
		if anchor.Equal(d) {
			return c.dfs[i]
		}
	}
	return 1.0
}
