package bond_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/credlib/bond"
	"github.com/meenmo/credlib/curve"
	"github.com/meenmo/credlib/options"
	"github.com/meenmo/credlib/utils"
)

func zeroCouponCB(maturity time.Time, ratio float64) bond.ConvertibleBond {
	return bond.ConvertibleBond{
		MaturityDate:    maturity,
		Face:            100.0,
		ConversionRatio: ratio,
	}
}

func TestPriceConvertible_ZeroRatioIsRiskyBond(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	r, h, recovery := 0.03, 0.02, 0.40
	disc := curve.NewFlat(valuation, r, utils.Act365F)

	mkt := bond.MarketInputs{
		Spot:         25.0,
		Volatility:   0.30,
		Discount:     disc,
		CreditSpread: h,
		RecoveryRate: recovery,
		StepsPerYear: 2000,
	}

	v, err := bond.PriceConvertible(valuation, zeroCouponCB(maturity, 0), mkt)
	if err != nil {
		t.Fatalf("PriceConvertible error: %v", err)
	}

	// Without conversion rights the price is the bond floor.
	if v.Price != v.BondFloor {
		t.Fatalf("zero ratio: price %.10f != floor %.10f", v.Price, v.BondFloor)
	}

	// Closed form for a defaultable zero-coupon bond under a flat hazard:
	// survival-weighted redemption plus recovery on default.
	rh := r + h
	want := 100.0*math.Exp(-rh) + recovery*100.0*(h/rh)*(1.0-math.Exp(-rh))
	if math.Abs(v.Price-want) > 0.01 {
		t.Fatalf("risky zero price: got %.6f want %.6f", v.Price, want)
	}
}

func TestPriceConvertible_ZeroCreditMatchesBlackScholes(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	r := 0.02
	disc := curve.NewFlat(valuation, r, utils.Act365F)

	cb := zeroCouponCB(maturity, 5.0)
	mkt := bond.MarketInputs{
		Spot:         15.0,
		Volatility:   0.30,
		Discount:     disc,
		StepsPerYear: 2000,
	}

	v, err := bond.PriceConvertible(valuation, cb, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible error: %v", err)
	}

	// With no credit risk, coupons, calls or puts, the convertible decomposes
	// into a riskless zero plus a European call on the conversion shares.
	tYears := utils.YearFraction(valuation, maturity, utils.Act365F)
	call, err := options.Price(options.Call, mkt.Spot, cb.Face/cb.ConversionRatio, r, 0, mkt.Volatility, tYears)
	if err != nil {
		t.Fatalf("options.Price error: %v", err)
	}
	want := cb.Face*disc.DF(maturity) + cb.ConversionRatio*call

	if math.Abs(v.Price-want) > 0.05 {
		t.Fatalf("zero-credit convertible: got %.6f want %.6f", v.Price, want)
	}
	if v.Delta < 0 || v.Delta > cb.ConversionRatio {
		t.Fatalf("delta %.6f outside [0, ratio]", v.Delta)
	}
	if v.Gamma <= 0 {
		t.Fatalf("gamma %.8f should be positive near the money", v.Gamma)
	}
	if math.IsNaN(v.Theta) || math.IsInf(v.Theta, 0) {
		t.Fatalf("theta not finite: %v", v.Theta)
	}
}

func TestPriceConvertible_CouponPlumbing(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	// Zero rates and zero credit: the price is face plus undiscounted coupons.
	disc := curve.NewFlat(valuation, 0.0, utils.Act365F)

	cb := bond.ConvertibleBond{
		MaturityDate:    maturity,
		CouponRate:      0.04,
		PaymentsPerYear: 2,
		Face:            100.0,
	}
	mkt := bond.MarketInputs{
		Spot:         25.0,
		Volatility:   0.30,
		Discount:     disc,
		StepsPerYear: 200,
	}

	v, err := bond.PriceConvertible(valuation, cb, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible error: %v", err)
	}
	if math.Abs(v.Price-104.0) > 1e-9 {
		t.Fatalf("coupon bond: got %.10f want 104", v.Price)
	}
}

func TestCashflows_DebtLeg(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	cb := bond.ConvertibleBond{
		MaturityDate:    date(2021, 8, 20),
		CouponRate:      0.04,
		PaymentsPerYear: 2,
		Face:            100.0,
	}

	cfs, err := cb.Cashflows(valuation)
	if err != nil {
		t.Fatalf("Cashflows error: %v", err)
	}
	if len(cfs) != 2 {
		t.Fatalf("expected 2 cashflows, got %d", len(cfs))
	}

	total := 0.0
	for _, cf := range cfs {
		if cf.Coupon <= 0 {
			t.Fatalf("coupon at %s not positive", cf.Date.Format("2006-01-02"))
		}
		total += cf.Coupon
	}
	// 30/360 accruals over the two semi-annual periods sum to a full year.
	if math.Abs(total-4.0) > 1e-12 {
		t.Fatalf("total coupons: got %.12f want 4", total)
	}

	last := cfs[len(cfs)-1]
	if !last.Date.Equal(cb.MaturityDate) {
		t.Fatalf("final cashflow at %s, want maturity", last.Date.Format("2006-01-02"))
	}
	if last.Principal != 100.0 {
		t.Fatalf("principal: got %.4f want 100", last.Principal)
	}
	if math.Abs(last.Amount()-(last.Coupon+100.0)) > 1e-12 {
		t.Fatalf("amount: got %.12f", last.Amount())
	}

	// A zero-coupon bond is a single principal payment.
	zcfs, err := zeroCouponCB(cb.MaturityDate, 5).Cashflows(valuation)
	if err != nil {
		t.Fatalf("Cashflows error: %v", err)
	}
	if len(zcfs) != 1 || zcfs[0].Coupon != 0 || zcfs[0].Principal != 100.0 {
		t.Fatalf("zero-coupon cashflows: %+v", zcfs)
	}
}

func TestPriceConvertible_MonotoneInSpot(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2025, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)

	cb := bond.ConvertibleBond{
		MaturityDate:    maturity,
		CouponRate:      0.0375,
		PaymentsPerYear: 2,
		Face:            100.0,
		ConversionRatio: 5.0,
	}

	prev := 0.0
	var floors []float64
	for _, spot := range []float64{10, 15, 20, 25, 30} {
		mkt := bond.MarketInputs{
			Spot:         spot,
			Volatility:   0.30,
			Discount:     disc,
			CreditSpread: 0.03,
			RecoveryRate: 0.40,
			StepsPerYear: 400,
		}
		v, err := bond.PriceConvertible(valuation, cb, mkt)
		if err != nil {
			t.Fatalf("PriceConvertible(spot %.0f): %v", spot, err)
		}
		if v.Price <= prev {
			t.Fatalf("price not increasing in spot: %.6f at %.0f after %.6f", v.Price, spot, prev)
		}
		// Deep in the money the bond is worth at least parity.
		if parity := cb.ConversionRatio * spot; v.Price < parity {
			t.Fatalf("price %.6f below parity %.6f at spot %.0f", v.Price, parity, spot)
		}
		prev = v.Price
		floors = append(floors, v.BondFloor)
	}

	// The debt-only floor does not depend on the equity level.
	for i := 1; i < len(floors); i++ {
		if math.Abs(floors[i]-floors[0]) > 1e-9 {
			t.Fatalf("bond floor moved with spot: %.12f vs %.12f", floors[i], floors[0])
		}
	}
}

func TestPriceConvertible_StepConvergence(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2025, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)

	cb := bond.ConvertibleBond{
		MaturityDate:    maturity,
		CouponRate:      0.0375,
		PaymentsPerYear: 2,
		Face:            100.0,
		ConversionRatio: 5.0,
	}

	priceAt := func(spy int) float64 {
		mkt := bond.MarketInputs{
			Spot:         18.0,
			Volatility:   0.30,
			Discount:     disc,
			CreditSpread: 0.03,
			RecoveryRate: 0.40,
			StepsPerYear: spy,
		}
		v, err := bond.PriceConvertible(valuation, cb, mkt)
		if err != nil {
			t.Fatalf("PriceConvertible(%d steps/yr): %v", spy, err)
		}
		return v.Price
	}

	p1000 := priceAt(1000)
	p2000 := priceAt(2000)
	if diff := math.Abs(p2000 - p1000); diff > 0.05 {
		t.Fatalf("refinement moved the price by %.6f", diff)
	}
}

func TestPriceConvertible_CallCapsValue(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)

	// Callable at 90 from the outset with negligible conversion value: the
	// issuer calls immediately and the holder receives exactly the call price.
	cb := zeroCouponCB(maturity, 0.01)
	cb.CallSchedule = []bond.CallTerm{{Date: valuation, Price: 90.0}}

	mkt := bond.MarketInputs{
		Spot:         1.0,
		Volatility:   0.30,
		Discount:     disc,
		StepsPerYear: 400,
	}
	v, err := bond.PriceConvertible(valuation, cb, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible error: %v", err)
	}
	if math.Abs(v.Price-90.0) > 1e-9 {
		t.Fatalf("called bond: got %.10f want 90", v.Price)
	}
	if v.BondFloor <= v.Price {
		t.Fatalf("call should cap the price below the floor: price %.6f floor %.6f", v.Price, v.BondFloor)
	}
}

func TestPriceConvertible_PutFloorsValue(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)

	// Puttable at 99 from the outset: the holder puts whenever the risky value
	// falls below the put price.
	cb := zeroCouponCB(maturity, 0.01)
	cb.PutSchedule = []bond.PutTerm{{Date: valuation, Price: 99.0}}

	mkt := bond.MarketInputs{
		Spot:         1.0,
		Volatility:   0.30,
		Discount:     disc,
		CreditSpread: 0.02,
		RecoveryRate: 0.40,
		StepsPerYear: 400,
	}
	v, err := bond.PriceConvertible(valuation, cb, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible error: %v", err)
	}
	if math.Abs(v.Price-99.0) > 1e-9 {
		t.Fatalf("put bond: got %.10f want 99", v.Price)
	}
	if v.BondFloor >= v.Price {
		t.Fatalf("put should lift the price above the floor: price %.6f floor %.6f", v.Price, v.BondFloor)
	}
}

func TestPriceConvertible_DeferredConversion(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2025, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)

	base := zeroCouponCB(maturity, 5.0)
	deferred := base
	deferred.StartConvertDate = date(2024, 8, 20)

	mkt := bond.MarketInputs{
		Spot:         40.0, // deep in the money, so immediate conversion matters
		Volatility:   0.30,
		Discount:     disc,
		CreditSpread: 0.05,
		RecoveryRate: 0.40,
		StepsPerYear: 400,
	}
	bv, err := bond.PriceConvertible(valuation, base, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible base: %v", err)
	}
	dv, err := bond.PriceConvertible(valuation, deferred, mkt)
	if err != nil {
		t.Fatalf("PriceConvertible deferred: %v", err)
	}
	if dv.Price > bv.Price+1e-9 {
		t.Fatalf("deferring conversion cannot add value: %.6f vs %.6f", dv.Price, bv.Price)
	}
}

func TestPriceConvertible_InputErrors(t *testing.T) {
	t.Parallel()

	valuation := date(2020, 8, 20)
	maturity := date(2021, 8, 20)
	disc := curve.NewFlat(valuation, 0.02, utils.Act365F)
	mkt := bond.MarketInputs{Spot: 20, Volatility: 0.3, Discount: disc}

	badRecovery := mkt
	badRecovery.RecoveryRate = 1.0
	if _, err := bond.PriceConvertible(valuation, zeroCouponCB(maturity, 5), badRecovery); !errors.Is(err, bond.ErrInvalidMarket) {
		t.Fatalf("recovery 1.0: got %v", err)
	}

	noFreq := zeroCouponCB(maturity, 5)
	noFreq.CouponRate = 0.04
	if _, err := bond.PriceConvertible(valuation, noFreq, mkt); !errors.Is(err, bond.ErrInvalidMarket) {
		t.Fatalf("coupon without frequency: got %v", err)
	}

	lateConvert := zeroCouponCB(maturity, 5)
	lateConvert.StartConvertDate = date(2022, 1, 1)
	if _, err := bond.PriceConvertible(valuation, lateConvert, mkt); !errors.Is(err, bond.ErrInvalidMarket) {
		t.Fatalf("start-convert after maturity: got %v", err)
	}

	badCalls := zeroCouponCB(maturity, 5)
	badCalls.CallSchedule = []bond.CallTerm{
		{Date: date(2021, 6, 1), Price: 105},
		{Date: date(2021, 3, 1), Price: 102},
	}
	if _, err := bond.PriceConvertible(valuation, badCalls, mkt); !errors.Is(err, bond.ErrInvalidMarket) {
		t.Fatalf("unordered call schedule: got %v", err)
	}
}
