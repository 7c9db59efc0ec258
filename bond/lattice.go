package bond

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/credlib/utils"
)

var (
	// ErrInvalidMarket reports malformed market inputs.
	ErrInvalidMarket = errors.New("invalid market inputs")
	// ErrDegenerateTree is returned when the risk-neutral up-probability
	// leaves (0, 1), usually because volatility is too low for the rate level.
	ErrDegenerateTree = errors.New("risk-neutral probability outside (0, 1)")
)

// DiscountCurve provides discount factors for valuation.
type DiscountCurve interface {
	DF(t time.Time) float64
}

// SurvivalSource supplies survival probabilities; *credit.SurvivalCurve
// satisfies it. When nil, a flat hazard rate is used instead.
type SurvivalSource interface {
	SurvivalProbability(t time.Time) float64
}

// Dividend is a discrete proportional dividend: the stock drops by
// Yield (e.g. 0.01 for 1%) on the ex-date.
type Dividend struct {
	Date  time.Time
	Yield float64
}

// DefaultStepsPerYear is used when MarketInputs leaves StepsPerYear zero.
const DefaultStepsPerYear = 100

// Lattice is a recombining binomial stock tree with per-step discount,
// survival and dividend data. It is built fresh per valuation call and owned
// by that call; node prices are derived on demand so storage stays O(steps).
type Lattice struct {
	Valuation time.Time
	Maturity  time.Time
	Steps     int
	Dt        float64
	U, D      float64

	spot      float64
	divFactor []float64 // cumulative dividend multiplier at each step, len Steps+1
	survival  []float64 // survival probability from valuation to each step, len Steps+1
	stepDF    []float64 // discount factor across each step, len Steps
	probUp    []float64 // risk-neutral up probability per step, len Steps
}

// BuildLattice constructs the tree. Survival probabilities come from surv when
// non-nil, otherwise from the flat hazardRate. Dividends shift node prices;
// they do not alter the up/down probabilities.
func BuildLattice(valuation, maturity time.Time, spot, volatility float64, disc DiscountCurve,
	hazardRate float64, surv SurvivalSource, dividends []Dividend, stepsPerYear int) (*Lattice, error) {

	if disc == nil {
		return nil, fmt.Errorf("bond.BuildLattice: nil discount curve: %w", ErrInvalidMarket)
	}
	if spot <= 0 {
		return nil, fmt.Errorf("bond.BuildLattice: spot %.6f must be positive: %w", spot, ErrInvalidMarket)
	}
	if volatility <= 0 {
		return nil, fmt.Errorf("bond.BuildLattice: volatility %.6f must be positive: %w", volatility, ErrInvalidMarket)
	}
	if !maturity.After(valuation) {
		return nil, fmt.Errorf("bond.BuildLattice: maturity %s not after valuation: %w",
			maturity.Format("2006-01-02"), ErrInvalidMarket)
	}
	if stepsPerYear < 0 {
		return nil, fmt.Errorf("bond.BuildLattice: stepsPerYear %d: %w", stepsPerYear, ErrInvalidMarket)
	}
	if stepsPerYear == 0 {
		stepsPerYear = DefaultStepsPerYear
	}
	if hazardRate < 0 {
		return nil, fmt.Errorf("bond.BuildLattice: hazard rate %.6f must be non-negative: %w", hazardRate, ErrInvalidMarket)
	}
	for _, div := range dividends {
		if div.Yield < 0 || div.Yield >= 1 {
			return nil, fmt.Errorf("bond.BuildLattice: dividend yield %.6f outside [0, 1): %w", div.Yield, ErrInvalidMarket)
		}
	}

	horizon := utils.YearFraction(valuation, maturity, utils.Act365F)
	steps := int(math.Ceil(horizon * float64(stepsPerYear)))
	if steps < 3 {
		// Three steps minimum so delta/gamma/theta nodes exist.
		steps = 3
	}
	dt := horizon / float64(steps)

	l := &Lattice{
		Valuation: valuation,
		Maturity:  maturity,
		Steps:     steps,
		Dt:        dt,
		U:         math.Exp(volatility * math.Sqrt(dt)),
		spot:      spot,
		divFactor: make([]float64, steps+1),
		survival:  make([]float64, steps+1),
		stepDF:    make([]float64, steps),
		probUp:    make([]float64, steps),
	}
	l.D = 1.0 / l.U

	// Cumulative dividend multipliers: a dividend with ex-date in
	// (t[i-1], t[i]] hits the prices at step i and beyond, which keeps the
	// tree recombining.
	l.divFactor[0] = 1.0
	for i := 1; i <= steps; i++ {
		l.divFactor[i] = l.divFactor[i-1]
		stepStart := l.StepDate(i - 1)
		stepEnd := l.StepDate(i)
		for _, div := range dividends {
			if div.Date.After(stepStart) && !div.Date.After(stepEnd) {
				l.divFactor[i] *= 1.0 - div.Yield
			}
		}
	}

	l.survival[0] = 1.0
	dfPrev := 1.0
	for i := 0; i < steps; i++ {
		if surv != nil {
			l.survival[i+1] = surv.SurvivalProbability(l.StepDate(i + 1))
		} else {
			l.survival[i+1] = math.Exp(-hazardRate * float64(i+1) * dt)
		}
		if l.survival[i+1] > l.survival[i] || l.survival[i+1] <= 0 {
			return nil, fmt.Errorf("bond.BuildLattice: survival curve not non-increasing at step %d: %w", i+1, ErrInvalidMarket)
		}

		dfNext := disc.DF(l.StepDate(i + 1))
		if dfNext <= 0 || dfNext > dfPrev {
			return nil, fmt.Errorf("bond.BuildLattice: discount factors not non-increasing at step %d: %w", i+1, ErrInvalidMarket)
		}
		l.stepDF[i] = dfNext / dfPrev
		dfPrev = dfNext

		// Local forward rate and hazard over the step drive the up move.
		fwd := -math.Log(l.stepDF[i]) / dt
		h := math.Log(l.survival[i]/l.survival[i+1]) / dt
		growth := math.Exp((fwd + h) * dt)
		p := (growth - l.D) / (l.U - l.D)
		if p <= 0 || p >= 1 {
			return nil, fmt.Errorf("bond.BuildLattice: step %d probability %.6f: %w", i, p, ErrDegenerateTree)
		}
		l.probUp[i] = p
	}

	return l, nil
}

// StepDate returns the date of time step i with intra-day precision.
func (l *Lattice) StepDate(i int) time.Time {
	return utils.AddYearFraction(l.Valuation, float64(i)*l.Dt)
}

// Price returns the stock price at node (step, level). Level 0 is the lowest
// node. The tree recombines: with d = 1/u the price depends only on
// 2*level - step.
func (l *Lattice) Price(step, level int) float64 {
	return l.spot * l.divFactor[step] * math.Pow(l.U, float64(2*level-step))
}

// Survival returns the probability of no default from valuation to step i.
func (l *Lattice) Survival(i int) float64 {
	return l.survival[i]
}

// StepSurvival returns the conditional survival probability across step i.
func (l *Lattice) StepSurvival(i int) float64 {
	return l.survival[i+1] / l.survival[i]
}

// StepDF returns the discount factor across step i.
func (l *Lattice) StepDF(i int) float64 {
	return l.stepDF[i]
}

// ProbUp returns the risk-neutral up probability for step i.
func (l *Lattice) ProbUp(i int) float64 {
	return l.probUp[i]
}
