// Package bond prices convertible bonds on a credit-adjusted binomial lattice.
//
// The engine performs backward induction with the holder's conversion and put
// rights and the issuer's call right applied at every node, in that
// contractual precedence: conversion is checked before the call cap, the put
// floor is applied last.
package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/credlib/calendar"
	"github.com/meenmo/credlib/schedule"
	"github.com/meenmo/credlib/utils"
)

// CallTerm is an issuer call right: callable at Price from Date onward,
// until superseded by the next term.
type CallTerm struct {
	Date  time.Time
	Price float64
}

// PutTerm is a holder put right: puttable at Price from Date onward,
// until superseded by the next term.
type PutTerm struct {
	Date  time.Time
	Price float64
}

// ConvertibleBond describes the bond covenants. Prices in the call/put
// schedules are in the same units as Face.
type ConvertibleBond struct {
	MaturityDate     time.Time
	CouponRate       float64 // annual rate, decimal
	PaymentsPerYear  int
	DayCount         string
	Face             float64
	ConversionRatio  float64
	StartConvertDate time.Time // zero value: convertible immediately
	CallSchedule     []CallTerm
	PutSchedule      []PutTerm
	Calendar         calendar.CalendarID
}

// Validate fails fast on contradictory covenants before any lattice is built.
func (cb ConvertibleBond) Validate(valuation time.Time) error {
	if !cb.MaturityDate.After(valuation) {
		return fmt.Errorf("bond: maturity %s not after valuation %s: %w",
			cb.MaturityDate.Format("2006-01-02"), valuation.Format("2006-01-02"), ErrInvalidMarket)
	}
	if cb.Face <= 0 {
		return fmt.Errorf("bond: face %.4f must be positive: %w", cb.Face, ErrInvalidMarket)
	}
	if cb.ConversionRatio < 0 {
		return fmt.Errorf("bond: conversion ratio %.6f must be non-negative: %w", cb.ConversionRatio, ErrInvalidMarket)
	}
	if cb.CouponRate < 0 {
		return fmt.Errorf("bond: coupon rate %.6f must be non-negative: %w", cb.CouponRate, ErrInvalidMarket)
	}
	if cb.CouponRate > 0 && cb.PaymentsPerYear <= 0 {
		return fmt.Errorf("bond: coupon rate set but payments per year %d: %w", cb.PaymentsPerYear, ErrInvalidMarket)
	}
	if !cb.StartConvertDate.IsZero() && cb.StartConvertDate.After(cb.MaturityDate) {
		return fmt.Errorf("bond: start-convert date %s after maturity: %w",
			cb.StartConvertDate.Format("2006-01-02"), ErrInvalidMarket)
	}

	prev := time.Time{}
	for i, c := range cb.CallSchedule {
		if !c.Date.After(prev) {
			return fmt.Errorf("bond: call schedule entry %d out of order: %w", i, ErrInvalidMarket)
		}
		if c.Date.After(cb.MaturityDate) {
			return fmt.Errorf("bond: call date %s after maturity: %w", c.Date.Format("2006-01-02"), ErrInvalidMarket)
		}
		if c.Price <= 0 {
			return fmt.Errorf("bond: call price %.4f must be positive: %w", c.Price, ErrInvalidMarket)
		}
		prev = c.Date
	}
	prev = time.Time{}
	for i, p := range cb.PutSchedule {
		if !p.Date.After(prev) {
			return fmt.Errorf("bond: put schedule entry %d out of order: %w", i, ErrInvalidMarket)
		}
		if p.Date.After(cb.MaturityDate) {
			return fmt.Errorf("bond: put date %s after maturity: %w", p.Date.Format("2006-01-02"), ErrInvalidMarket)
		}
		if p.Price <= 0 {
			return fmt.Errorf("bond: put price %.4f must be positive: %w", p.Price, ErrInvalidMarket)
		}
		prev = p.Date
	}
	return nil
}

// MarketInputs collects the market state for a convertible valuation.
// Survival overrides CreditSpread when non-nil.
type MarketInputs struct {
	Spot         float64
	Volatility   float64
	Dividends    []Dividend
	Discount     DiscountCurve
	CreditSpread float64
	Survival     SurvivalSource
	RecoveryRate float64
	StepsPerYear int
}

// Valuation is the result of a convertible bond pricing call.
type Valuation struct {
	// Price is the bond value including conversion, call and put optionality.
	Price float64
	// BondFloor is the debt-only value of the same cashflows with credit risk.
	BondFloor float64
	Delta     float64
	Gamma     float64
	Theta     float64
}

// PriceConvertible values a convertible bond by backward induction. Delta and
// gamma are read from the step-1 and step-2 nodes of the same lattice; theta
// compares the step-2 middle node against the root.
func PriceConvertible(valuation time.Time, cb ConvertibleBond, mkt MarketInputs) (Valuation, error) {
	if err := cb.Validate(valuation); err != nil {
		return Valuation{}, err
	}
	if mkt.RecoveryRate < 0 || mkt.RecoveryRate >= 1 {
		return Valuation{}, fmt.Errorf("bond.PriceConvertible: recovery rate %.4f outside [0, 1): %w",
			mkt.RecoveryRate, ErrInvalidMarket)
	}

	lat, err := BuildLattice(valuation, cb.MaturityDate, mkt.Spot, mkt.Volatility,
		mkt.Discount, mkt.CreditSpread, mkt.Survival, mkt.Dividends, mkt.StepsPerYear)
	if err != nil {
		return Valuation{}, err
	}

	coupons, err := couponsByStep(valuation, cb, lat)
	if err != nil {
		return Valuation{}, err
	}

	full := induct(cb, lat, coupons, mkt.RecoveryRate, true)
	floor := induct(cb, lat, coupons, mkt.RecoveryRate, false)

	s1d, s1u := lat.Price(1, 0), lat.Price(1, 1)
	delta := (full.v1[1] - full.v1[0]) / (s1u - s1d)

	s2dd, s2mm, s2uu := lat.Price(2, 0), lat.Price(2, 1), lat.Price(2, 2)
	dUp := (full.v2[2] - full.v2[1]) / (s2uu - s2mm)
	dDown := (full.v2[1] - full.v2[0]) / (s2mm - s2dd)
	gamma := (dUp - dDown) / (0.5 * (s2uu - s2dd))

	theta := (full.v2[1] - full.v0) / (2.0 * lat.Dt)

	return Valuation{
		Price:     full.v0,
		BondFloor: floor.v0,
		Delta:     delta,
		Gamma:     gamma,
		Theta:     theta,
	}, nil
}

// inductionResult captures the root value plus the first two step slices the
// greeks are read from.
type inductionResult struct {
	v0 float64
	v1 [2]float64
	v2 [3]float64
}

// induct rolls bond values backward through the lattice. With optionality off
// it prices the debt-only (bond floor) leg of the same instrument.
func induct(cb ConvertibleBond, lat *Lattice, coupons []float64, recoveryRate float64, withOptionality bool) inductionResult {
	n := lat.Steps
	ratio := cb.ConversionRatio
	if !withOptionality {
		ratio = 0
	}

	convertFrom := 0
	if withOptionality && !cb.StartConvertDate.IsZero() {
		yf := utils.YearFraction(lat.Valuation, cb.StartConvertDate, utils.Act365F)
		convertFrom = int(math.Ceil(yf/lat.Dt - 1e-9))
	}

	callAt := prevailingPrices(lat, callTerms(cb.CallSchedule))
	putAt := prevailingPrices(lat, putTerms(cb.PutSchedule))

	next := make([]float64, n+1)
	cur := make([]float64, n+1)

	// Terminal boundary: redeem or convert, plus any final coupon.
	for j := 0; j <= n; j++ {
		next[j] = math.Max(cb.Face, ratio*lat.Price(n, j)) + coupons[n]
	}

	var res inductionResult
	for i := n - 1; i >= 0; i-- {
		surv := lat.StepSurvival(i)
		df := lat.StepDF(i)
		p := lat.ProbUp(i)
		recovery := (1.0 - surv) * df * recoveryRate * cb.Face

		for j := 0; j <= i; j++ {
			hold := surv*df*(p*next[j+1]+(1.0-p)*next[j]) + recovery
			value := hold + coupons[i]

			stock := lat.Price(i, j)
			if ratio > 0 && i >= convertFrom {
				value = math.Max(value, ratio*stock)
			}
			if withOptionality {
				if call := callAt[i]; call > 0 && call < value {
					// Issuer calls, but the holder may convert instead.
					value = math.Max(call, ratio*stock)
				}
				if put := putAt[i]; put > value {
					value = put
				}
			}
			cur[j] = value
		}

		switch i {
		case 2:
			copy(res.v2[:], cur[:3])
		case 1:
			copy(res.v1[:], cur[:2])
		case 0:
			res.v0 = cur[0]
		}
		next, cur = cur, next
	}
	return res
}

// Cashflows returns the bond's debt-only leg after valuation: coupons on the
// schedule's pay dates and the principal at maturity. The first period accrues
// from valuation.
func (cb ConvertibleBond) Cashflows(valuation time.Time) ([]Cashflow, error) {
	if cb.CouponRate == 0 {
		return []Cashflow{{Date: cb.MaturityDate, Principal: cb.Face}}, nil
	}

	cal := cb.Calendar
	if cal == "" {
		cal = calendar.WEEKEND
	}
	dc := cb.DayCount
	if dc == "" {
		dc = utils.Thirty360Bond
	}

	periods, err := schedule.Periods(valuation, cb.MaturityDate, cb.PaymentsPerYear, cal)
	if err != nil {
		return nil, fmt.Errorf("bond: coupon schedule: %w", err)
	}
	cfs := make([]Cashflow, 0, len(periods))
	for _, p := range periods {
		if !p.Pay.After(valuation) {
			continue
		}
		cfs = append(cfs, Cashflow{
			Date:   p.Pay,
			Coupon: cb.Face * cb.CouponRate * utils.YearFraction(p.Start, p.End, dc),
		})
	}
	if len(cfs) == 0 {
		cfs = append(cfs, Cashflow{Date: cb.MaturityDate})
	}
	cfs[len(cfs)-1].Principal = cb.Face
	return cfs, nil
}

// couponsByStep maps each coupon payment after valuation onto its nearest
// lattice step. The principal is not included; the terminal boundary of the
// induction handles redemption.
func couponsByStep(valuation time.Time, cb ConvertibleBond, lat *Lattice) ([]float64, error) {
	coupons := make([]float64, lat.Steps+1)
	cfs, err := cb.Cashflows(valuation)
	if err != nil {
		return nil, err
	}
	for _, cf := range cfs {
		if cf.Coupon == 0 {
			continue
		}
		yf := utils.YearFraction(valuation, cf.Date, utils.Act365F)
		step := int(math.Round(yf / lat.Dt))
		if step < 0 {
			step = 0
		}
		if step > lat.Steps {
			step = lat.Steps
		}
		coupons[step] += cf.Coupon
	}
	return coupons, nil
}

// scheduleTerm is a (date, price) step of a call or put schedule.
type scheduleTerm struct {
	date  time.Time
	price float64
}

// prevailingPrices expands a (date, price) schedule into a per-step price
// array: zero before the first date, then the most recent scheduled price.
func prevailingPrices(lat *Lattice, terms []scheduleTerm) []float64 {
	out := make([]float64, lat.Steps+1)
	if len(terms) == 0 {
		return out
	}
	idx := -1
	for i := 0; i <= lat.Steps; i++ {
		d := lat.StepDate(i)
		for idx+1 < len(terms) && !terms[idx+1].date.After(d) {
			idx++
		}
		if idx >= 0 {
			out[i] = terms[idx].price
		}
	}
	return out
}

func callTerms(sched []CallTerm) []scheduleTerm {
	out := make([]scheduleTerm, len(sched))
	for i, c := range sched {
		out[i] = scheduleTerm{date: c.Date, price: c.Price}
	}
	return out
}

func putTerms(sched []PutTerm) []scheduleTerm {
	out := make([]scheduleTerm, len(sched))
	for i, p := range sched {
		out[i] = scheduleTerm{date: p.Date, price: p.Price}
	}
	return out
}
