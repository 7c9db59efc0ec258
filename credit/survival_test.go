package credit_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/credlib/credit"
	"github.com/meenmo/credlib/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSurvivalCurve_PillarsAndInterpolation(t *testing.T) {
	t.Parallel()

	settlement := date(2020, 8, 20)
	d1 := date(2021, 8, 20)
	d2 := date(2022, 8, 22)

	surv, err := credit.NewSurvivalCurve(settlement, []time.Time{d1, d2}, []float64{0.98, 0.95})
	if err != nil {
		t.Fatalf("NewSurvivalCurve error: %v", err)
	}

	if q := surv.SurvivalProbability(settlement); q != 1.0 {
		t.Fatalf("Q(settlement): got %.12f", q)
	}
	if q := surv.SurvivalProbability(d1); q != 0.98 {
		t.Fatalf("Q(pillar 1): got %.12f", q)
	}
	if q := surv.SurvivalProbability(d2); q != 0.95 {
		t.Fatalf("Q(pillar 2): got %.12f", q)
	}

	// Interior point follows the segment's constant hazard rate.
	t1 := utils.YearFraction(settlement, d1, utils.Act365F)
	t2 := utils.YearFraction(settlement, d2, utils.Act365F)
	h := math.Log(0.98/0.95) / (t2 - t1)
	tm := 0.5 * (t1 + t2)
	want := 0.98 * math.Exp(-h*(tm-t1))
	if got := surv.SurvivalProbabilityYears(tm); math.Abs(got-want) > 1e-14 {
		t.Fatalf("interpolated Q: got %.14f want %.14f", got, want)
	}

	// Beyond the last pillar the final hazard rate extrapolates flat.
	want = 0.95 * math.Exp(-h*(t2+3.0-t2))
	if got := surv.SurvivalProbabilityYears(t2 + 3.0); math.Abs(got-want) > 1e-14 {
		t.Fatalf("extrapolated Q: got %.14f want %.14f", got, want)
	}

	hazards := surv.HazardRates()
	if len(hazards) != 2 {
		t.Fatalf("expected 2 segment hazards, got %d", len(hazards))
	}
	if math.Abs(hazards[1]-h) > 1e-14 {
		t.Fatalf("second segment hazard: got %.14f want %.14f", hazards[1], h)
	}
}

func TestSurvivalCurve_MonotoneNonIncreasing(t *testing.T) {
	t.Parallel()

	settlement := date(2020, 8, 20)
	surv, err := credit.NewSurvivalCurve(settlement,
		[]time.Time{date(2021, 8, 20), date(2023, 8, 20), date(2025, 8, 20)},
		[]float64{0.97, 0.90, 0.80})
	if err != nil {
		t.Fatalf("NewSurvivalCurve error: %v", err)
	}

	prev := 1.0
	for yf := 0.1; yf < 8.0; yf += 0.1 {
		q := surv.SurvivalProbabilityYears(yf)
		if q <= 0 || q > prev {
			t.Fatalf("Q(%.1f) = %.12f breaks monotonicity (prev %.12f)", yf, q, prev)
		}
		prev = q
	}
}

func TestNewSurvivalCurve_InputErrors(t *testing.T) {
	t.Parallel()

	settlement := date(2020, 8, 20)
	d1 := date(2021, 8, 20)
	d2 := date(2022, 8, 22)

	cases := []struct {
		name  string
		dates []time.Time
		probs []float64
	}{
		{"length mismatch", []time.Time{d1, d2}, []float64{0.98}},
		{"pillar before settlement", []time.Time{date(2019, 8, 20)}, []float64{0.98}},
		{"unordered pillars", []time.Time{d2, d1}, []float64{0.98, 0.95}},
		{"increasing probability", []time.Time{d1, d2}, []float64{0.95, 0.98}},
		{"zero probability", []time.Time{d1}, []float64{0.0}},
		{"probability above one", []time.Time{d1}, []float64{1.2}},
	}
	for _, c := range cases {
		if _, err := credit.NewSurvivalCurve(settlement, c.dates, c.probs); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}
