// Package credit implements CDS valuation and survival-probability curve
// calibration. A SurvivalCurve is produced once by Bootstrap and is immutable
// afterwards; pricing calls only read it, so curves are safe to share across
// concurrent valuations.
package credit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/credlib/utils"
)

// SurvivalCurve holds survival probabilities at pillar dates with a
// piecewise-constant hazard rate between pillars. The settlement anchor is
// always (settlement, 1.0).
type SurvivalCurve struct {
	settlement time.Time
	dates      []time.Time
	times      []float64 // ACT/365F year fractions from settlement
	probs      []float64
}

// NewSurvivalCurve builds a curve from pillar dates and survival probabilities.
// Pillars must be strictly increasing after settlement; probabilities must be
// in (0, 1] and non-increasing.
func NewSurvivalCurve(settlement time.Time, dates []time.Time, probs []float64) (*SurvivalCurve, error) {
	if len(dates) != len(probs) {
		return nil, fmt.Errorf("credit.NewSurvivalCurve: %d dates vs %d probabilities", len(dates), len(probs))
	}

	s := &SurvivalCurve{
		settlement: settlement,
		dates:      []time.Time{settlement},
		times:      []float64{0},
		probs:      []float64{1.0},
	}
	prev := settlement
	prevProb := 1.0
	for i, d := range dates {
		if !d.After(prev) {
			return nil, fmt.Errorf("credit.NewSurvivalCurve: pillar %d (%s) not after %s",
				i, d.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		p := probs[i]
		if p <= 0 || p > prevProb {
			return nil, fmt.Errorf("credit.NewSurvivalCurve: pillar %d probability %.12f breaks monotonicity", i, p)
		}
		s.dates = append(s.dates, d)
		s.times = append(s.times, utils.YearFraction(settlement, d, utils.Act365F))
		s.probs = append(s.probs, p)
		prev, prevProb = d, p
	}
	return s, nil
}

// SurvivalProbability returns the probability of no default by date t,
// interpolated with the piecewise-constant hazard rate. Beyond the last
// pillar the final hazard rate is extrapolated flat.
func (s *SurvivalCurve) SurvivalProbability(t time.Time) float64 {
	return s.SurvivalProbabilityYears(utils.YearFraction(s.settlement, t, utils.Act365F))
}

// SurvivalProbabilityYears is SurvivalProbability with time expressed as an
// ACT/365F year fraction from settlement.
func (s *SurvivalCurve) SurvivalProbabilityYears(t float64) float64 {
	if t <= 0 {
		return 1.0
	}
	n := len(s.times)
	if n == 1 {
		return 1.0
	}

	// First pillar index with times[i] >= t.
	i := sort.SearchFloat64s(s.times, t)
	if i < n && s.times[i] == t {
		return s.probs[i]
	}
	if i >= n {
		// Flat-hazard extrapolation from the last segment.
		h := s.segmentHazard(n - 2)
		return s.probs[n-1] * math.Exp(-h*(t-s.times[n-1]))
	}
	h := s.segmentHazard(i - 1)
	return s.probs[i-1] * math.Exp(-h*(t-s.times[i-1]))
}

// HazardRates returns the piecewise-constant hazard rate of each pillar segment.
func (s *SurvivalCurve) HazardRates() []float64 {
	if len(s.times) < 2 {
		return nil
	}
	hazards := make([]float64, len(s.times)-1)
	for i := range hazards {
		hazards[i] = s.segmentHazard(i)
	}
	return hazards
}

// Pillars returns the pillar dates and survival probabilities, including the
// settlement anchor. The returned slices are copies.
func (s *SurvivalCurve) Pillars() ([]time.Time, []float64) {
	dates := make([]time.Time, len(s.dates))
	probs := make([]float64, len(s.probs))
	copy(dates, s.dates)
	copy(probs, s.probs)
	return dates, probs
}

// Settlement returns the curve's settlement date.
func (s *SurvivalCurve) Settlement() time.Time {
	return s.settlement
}

// segmentHazard returns the hazard rate over [times[i], times[i+1]].
func (s *SurvivalCurve) segmentHazard(i int) float64 {
	dt := s.times[i+1] - s.times[i]
	if dt <= 0 {
		return 0
	}
	return math.Log(s.probs[i]/s.probs[i+1]) / dt
}
