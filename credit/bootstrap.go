package credit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/credlib/utils"
)

// ErrUnorderedPillars is returned when bootstrap instruments are not sorted by
// strictly increasing maturity.
var ErrUnorderedPillars = errors.New("CDS instruments must have strictly increasing maturities")

// CalibrationError reports a pillar whose hazard rate could not be solved
// within the residual tolerance and iteration budget.
type CalibrationError struct {
	Pillar   int
	Residual float64
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("credit: calibration failed at pillar %d, residual %.3e", e.Pillar, e.Residual)
}

// Solver controls for the per-pillar hazard root-find.
const (
	bootstrapTolerance = 1e-10
	bootstrapMaxIter   = 100
	hazardFloor        = 0.0 // negative hazards would break survival monotonicity
	hazardCeiling      = 20.0
)

// Bootstrap calibrates a survival curve to quoted par CDS spreads, one pillar
// at a time. For pillar i the hazard rate over (maturity[i-1], maturity[i]] is
// solved so that the CDS reprices to zero at its contractual spread, holding
// all earlier pillars fixed. Earlier pillars are never revisited.
func Bootstrap(curveDate time.Time, cdsList []CDS, disc DiscountCurve, recoveryRate float64) (*SurvivalCurve, error) {
	if len(cdsList) == 0 {
		return nil, fmt.Errorf("credit.Bootstrap: no instruments: %w", ErrInvalidContract)
	}
	if disc == nil {
		return nil, fmt.Errorf("credit.Bootstrap: nil discount curve: %w", ErrInvalidContract)
	}

	prev := curveDate
	for i, cds := range cdsList {
		if err := cds.Validate(); err != nil {
			return nil, fmt.Errorf("credit.Bootstrap: instrument %d: %w", i, err)
		}
		if !cds.MaturityDate.After(prev) {
			return nil, fmt.Errorf("credit.Bootstrap: instrument %d (%s): %w",
				i, cds.MaturityDate.Format("2006-01-02"), ErrUnorderedPillars)
		}
		prev = cds.MaturityDate
	}

	pillarDates := make([]time.Time, 0, len(cdsList))
	pillarProbs := make([]float64, 0, len(cdsList))

	prevTime := 0.0
	prevProb := 1.0
	lastHazard := 0.0

	for i, cds := range cdsList {
		pillarTime := utils.YearFraction(curveDate, cds.MaturityDate, utils.Act365F)
		dt := pillarTime - prevTime

		// Residual of the pillar CDS at trial hazard h over the new segment.
		residual := func(h float64) (float64, error) {
			trialProbs := append(append([]float64(nil), pillarProbs...), prevProb*math.Exp(-h*dt))
			trialDates := append(append([]time.Time(nil), pillarDates...), cds.MaturityDate)
			trial, err := NewSurvivalCurve(curveDate, trialDates, trialProbs)
			if err != nil {
				return 0, err
			}
			protection, err := ProtectionLegPV(curveDate, cds, trial, disc, recoveryRate)
			if err != nil {
				return 0, err
			}
			rpv01, _, err := RiskyPV01(curveDate, cds, trial, disc)
			if err != nil {
				return 0, err
			}
			return protection - cds.Coupon*rpv01, nil
		}

		// Initial guess: carry the previous segment hazard, or the credit
		// triangle approximation for the first pillar.
		guess := lastHazard
		if i == 0 {
			guess = cds.Coupon / math.Max(1.0-recoveryRate, 1e-6)
		}

		h, res, err := solveHazard(residual, guess)
		if err != nil {
			return nil, err
		}
		if math.Abs(res) > bootstrapTolerance {
			return nil, &CalibrationError{Pillar: i, Residual: res}
		}

		prevProb *= math.Exp(-h * dt)
		prevTime = pillarTime
		lastHazard = h
		pillarDates = append(pillarDates, cds.MaturityDate)
		pillarProbs = append(pillarProbs, prevProb)
	}

	return NewSurvivalCurve(curveDate, pillarDates, pillarProbs)
}

// solveHazard finds a root of f with damped Newton steps (finite-difference
// derivative) and falls back to bisection when Newton stalls.
func solveHazard(f func(float64) (float64, error), guess float64) (float64, float64, error) {
	h := clampHazard(guess)
	fh, err := f(h)
	if err != nil {
		return 0, 0, err
	}

	for iter := 0; iter < bootstrapMaxIter; iter++ {
		if math.Abs(fh) < bootstrapTolerance {
			return h, fh, nil
		}

		bump := 1e-7 + 1e-7*math.Abs(h)
		fUp, err := f(h + bump)
		if err != nil {
			return 0, 0, err
		}
		deriv := (fUp - fh) / bump
		if math.Abs(deriv) < 1e-15 || math.IsNaN(deriv) || math.IsInf(deriv, 0) {
			break
		}

		step := fh / deriv
		// Damping against overshoot on steep protection legs.
		maxStep := 0.5 * (1.0 + math.Abs(h))
		if math.Abs(step) > maxStep {
			step = math.Copysign(maxStep, step)
		}

		h = clampHazard(h - step)
		fh, err = f(h)
		if err != nil {
			return 0, 0, err
		}
	}

	return bisectHazard(f, fh, h)
}

// bisectHazard brackets the root over the admissible hazard range and bisects.
// The residual is monotonically increasing in the hazard rate, so a sign
// change over the range is both necessary and sufficient.
func bisectHazard(f func(float64) (float64, error), fLast, hLast float64) (float64, float64, error) {
	lo, hi := hazardFloor, hazardCeiling
	fLo, err := f(lo)
	if err != nil {
		return 0, 0, err
	}
	fHi, err := f(hi)
	if err != nil {
		return 0, 0, err
	}
	if fLo*fHi > 0 {
		// No root in range: report the best residual seen.
		return hLast, fLast, nil
	}

	for iter := 0; iter < bootstrapMaxIter; iter++ {
		mid := 0.5 * (lo + hi)
		fMid, err := f(mid)
		if err != nil {
			return 0, 0, err
		}
		if math.Abs(fMid) < bootstrapTolerance {
			return mid, fMid, nil
		}
		if fLo*fMid < 0 {
			hi, fHi = mid, fMid
		} else {
			lo, fLo = mid, fMid
		}
	}
	mid := 0.5 * (lo + hi)
	fMid, err := f(mid)
	if err != nil {
		return 0, 0, err
	}
	return mid, fMid, nil
}

func clampHazard(h float64) float64 {
	if h < hazardFloor {
		return hazardFloor
	}
	if h > hazardCeiling {
		return hazardCeiling
	}
	return h
}
