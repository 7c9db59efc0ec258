package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/credlib/calendar"
	"github.com/meenmo/credlib/schedule"
	"github.com/meenmo/credlib/utils"
)

var (
	// ErrZeroAnnuity is returned when a par spread would divide by a vanishing risky annuity.
	ErrZeroAnnuity = errors.New("zero risky annuity")
	// ErrInvalidContract reports malformed CDS contract inputs.
	ErrInvalidContract = errors.New("invalid CDS contract")
)

// DiscountCurve provides discount factors for valuation.
type DiscountCurve interface {
	DF(t time.Time) float64
}

// Sub-period granularity of the protection leg integration.
const protectionStepDays = 7

// CDS is a single-name credit default swap contract.
//
// Coupon is the contractual running spread as a decimal (0.0150 == 150bp).
type CDS struct {
	EffectiveDate   time.Time
	MaturityDate    time.Time
	Coupon          float64
	Notional        float64
	LongProtection  bool
	DayCount        string
	PaymentsPerYear int
	Calendar        calendar.CalendarID

	// NoAccruedOnDefault disables the premium accrued-on-default adjustment.
	NoAccruedOnDefault bool
}

// NewCDS returns a long-protection CDS with standard contract conventions
// (quarterly premiums, ACT/360 accrual, unit notional).
func NewCDS(effective, maturity time.Time, coupon float64) CDS {
	return CDS{
		EffectiveDate:   effective,
		MaturityDate:    maturity,
		Coupon:          coupon,
		Notional:        1.0,
		LongProtection:  true,
		DayCount:        utils.Act360,
		PaymentsPerYear: 4,
		Calendar:        calendar.WEEKEND,
	}
}

// NewCDSByTenor builds a standard CDS whose maturity is the effective date
// advanced by a tenor string such as "6M" or "5Y".
func NewCDSByTenor(effective time.Time, tenor string, coupon float64) (CDS, error) {
	maturity, err := utils.AddTenor(effective, tenor)
	if err != nil {
		return CDS{}, fmt.Errorf("credit.NewCDSByTenor: %w", err)
	}
	return NewCDS(effective, maturity, coupon), nil
}

// Validate checks the contract for contradictory inputs.
func (c CDS) Validate() error {
	if !c.MaturityDate.After(c.EffectiveDate) {
		return fmt.Errorf("credit: maturity %s not after effective %s: %w",
			c.MaturityDate.Format("2006-01-02"), c.EffectiveDate.Format("2006-01-02"), ErrInvalidContract)
	}
	if c.Notional <= 0 {
		return fmt.Errorf("credit: notional %.4f must be positive: %w", c.Notional, ErrInvalidContract)
	}
	if c.PaymentsPerYear <= 0 {
		return fmt.Errorf("credit: payments per year %d must be positive: %w", c.PaymentsPerYear, ErrInvalidContract)
	}
	if c.Coupon < 0 {
		return fmt.Errorf("credit: coupon %.6f must be non-negative: %w", c.Coupon, ErrInvalidContract)
	}
	return nil
}

// Valuation holds the results of pricing a single CDS. Leg PVs and RPV01s are
// per unit notional; FullPV, CleanPV and AccruedInterest are notional-scaled
// and signed from the contract holder's perspective.
type Valuation struct {
	FullPV          float64
	CleanPV         float64
	AccruedInterest float64
	AccruedDays     int
	ProtectionLegPV float64
	PremiumLegPV    float64
	FullRPV01       float64
	CleanRPV01      float64
	ParSpread       float64
}

// Price values a CDS against a calibrated survival curve and discount curve.
func Price(valuation time.Time, cds CDS, surv *SurvivalCurve, disc DiscountCurve, recoveryRate float64) (Valuation, error) {
	if err := cds.Validate(); err != nil {
		return Valuation{}, err
	}
	if surv == nil || disc == nil {
		return Valuation{}, fmt.Errorf("credit.Price: nil curve: %w", ErrInvalidContract)
	}
	if recoveryRate < 0 || recoveryRate >= 1 {
		return Valuation{}, fmt.Errorf("credit.Price: recovery rate %.4f outside [0, 1): %w", recoveryRate, ErrInvalidContract)
	}
	if !cds.MaturityDate.After(valuation) {
		return Valuation{}, fmt.Errorf("credit.Price: CDS matured %s: %w", cds.MaturityDate.Format("2006-01-02"), ErrInvalidContract)
	}

	protection, err := ProtectionLegPV(valuation, cds, surv, disc, recoveryRate)
	if err != nil {
		return Valuation{}, err
	}
	fullRPV01, cleanRPV01, err := RiskyPV01(valuation, cds, surv, disc)
	if err != nil {
		return Valuation{}, err
	}

	accruedFactor := fullRPV01 - cleanRPV01
	accruedDays := 0
	if last, ok := lastCouponBefore(valuation, cds); ok {
		accruedDays = utils.AccruedDays(last, valuation, cds.DayCount)
	}

	var parSpread float64
	if fullRPV01 < 1e-12 {
		return Valuation{}, fmt.Errorf("credit.Price: %w", ErrZeroAnnuity)
	}
	parSpread = protection / fullRPV01

	direction := 1.0
	if !cds.LongProtection {
		direction = -1.0
	}

	return Valuation{
		FullPV:          direction * cds.Notional * (protection - cds.Coupon*fullRPV01),
		CleanPV:         direction * cds.Notional * (protection - cds.Coupon*cleanRPV01),
		AccruedInterest: accruedFactor * cds.Coupon * cds.Notional,
		AccruedDays:     accruedDays,
		ProtectionLegPV: protection,
		PremiumLegPV:    cds.Coupon * fullRPV01,
		FullRPV01:       fullRPV01,
		CleanRPV01:      cleanRPV01,
		ParSpread:       parSpread,
	}, nil
}

// ProtectionLegPV computes the unit-notional present value of the protection
// leg by summing discounted marginal default probabilities over weekly
// sub-periods from valuation to maturity.
func ProtectionLegPV(valuation time.Time, cds CDS, surv *SurvivalCurve, disc DiscountCurve, recoveryRate float64) (float64, error) {
	if !cds.MaturityDate.After(valuation) {
		return 0, fmt.Errorf("credit.ProtectionLegPV: negative protection horizon: %w", ErrInvalidContract)
	}

	lossGivenDefault := 1.0 - recoveryRate
	pv := 0.0

	start := valuation
	if cds.EffectiveDate.After(start) {
		start = cds.EffectiveDate
	}

	qPrev := surv.SurvivalProbability(start)
	for d := start; d.Before(cds.MaturityDate); {
		next := d.AddDate(0, 0, protectionStepDays)
		if next.After(cds.MaturityDate) {
			next = cds.MaturityDate
		}
		qNext := surv.SurvivalProbability(next)
		mid := d.Add(next.Sub(d) / 2)
		pv += disc.DF(mid) * lossGivenDefault * (qPrev - qNext)
		qPrev = qNext
		d = next
	}
	return pv, nil
}

// RiskyPV01 computes the unit-annuity premium leg PV, both full (including the
// running accrual from the last coupon date to valuation) and clean.
//
// Each surviving coupon contributes DF(pay)·Q(end)·accrual; unless the
// contract opts out, defaults within a period contribute half the period
// accrual weighted by the period default probability.
func RiskyPV01(valuation time.Time, cds CDS, surv *SurvivalCurve, disc DiscountCurve) (full, clean float64, err error) {
	periods, err := schedule.Periods(cds.EffectiveDate, cds.MaturityDate, cds.PaymentsPerYear, cds.Calendar)
	if err != nil {
		return 0, 0, fmt.Errorf("credit.RiskyPV01: %w", err)
	}

	for _, p := range periods {
		if !p.Pay.After(valuation) {
			continue
		}
		accrual := utils.YearFraction(p.Start, p.End, cds.DayCount)
		qEnd := surv.SurvivalProbability(p.End)
		full += disc.DF(p.Pay) * qEnd * accrual

		if !cds.NoAccruedOnDefault {
			qStart := surv.SurvivalProbability(maxDate(p.Start, valuation))
			mid := p.Start.Add(p.End.Sub(p.Start) / 2)
			full += disc.DF(mid) * (qStart - qEnd) * 0.5 * accrual
		}
	}

	clean = full
	if last, ok := lastCouponBefore(valuation, cds); ok {
		clean -= utils.YearFraction(last, valuation, cds.DayCount)
	}
	return full, clean, nil
}

// ParSpread returns the running coupon that makes the CDS worth zero at
// valuation.
func ParSpread(valuation time.Time, cds CDS, surv *SurvivalCurve, disc DiscountCurve, recoveryRate float64) (float64, error) {
	v, err := Price(valuation, cds, surv, disc, recoveryRate)
	if err != nil {
		return 0, err
	}
	return v.ParSpread, nil
}

// lastCouponBefore returns the latest accrual start date at or before valuation.
func lastCouponBefore(valuation time.Time, cds CDS) (time.Time, bool) {
	periods, err := schedule.Periods(cds.EffectiveDate, cds.MaturityDate, cds.PaymentsPerYear, cds.Calendar)
	if err != nil {
		return time.Time{}, false
	}
	var last time.Time
	found := false
	for _, p := range periods {
		if !p.Start.After(valuation) {
			last, found = p.Start, true
		}
	}
	return last, found
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
