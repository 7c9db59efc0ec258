package main

import (
	"fmt"
	"log"

	"github.com/meenmo/credlib/bond"
	"github.com/meenmo/credlib/credit"
	"github.com/meenmo/credlib/curve"
	"github.com/meenmo/credlib/marketdata"
	"github.com/meenmo/credlib/utils"
)

func main() {
	curveDate := utils.DateParser("2020-08-20")
	recoveryRate := 0.40

	feed := marketdata.NewMapQuoteFeed(map[string][]marketdata.Quote{
		"2020-08-20": {
			{Tenor: "1Y", SpreadBP: 200},
			{Tenor: "2Y", SpreadBP: 220},
			{Tenor: "3Y", SpreadBP: 250},
			{Tenor: "4Y", SpreadBP: 275},
			{Tenor: "5Y", SpreadBP: 290},
			{Tenor: "7Y", SpreadBP: 300},
			{Tenor: "10Y", SpreadBP: 310},
			{Tenor: "15Y", SpreadBP: 315},
		},
	})
	quotes, ok := feed.QuotesOn(curveDate)
	if !ok {
		log.Fatal("no CDS quotes for curve date")
	}

	disc := curve.NewFlat(curveDate, 0.02, utils.Act365F)

	cdsList := make([]credit.CDS, 0, len(quotes))
	for _, q := range quotes {
		cds, err := credit.NewCDSByTenor(curveDate, q.Tenor, q.SpreadBP/10000.0)
		if err != nil {
			log.Fatal(err)
		}
		cdsList = append(cdsList, cds)
	}

	surv, err := credit.Bootstrap(curveDate, cdsList, disc, recoveryRate)
	if err != nil {
		log.Fatal(err)
	}

	dates, probs := surv.Pillars()
	fmt.Println("Calibrated survival curve:")
	for i := 1; i < len(dates); i++ {
		fmt.Printf("  %s  Q = %.6f\n", dates[i].Format("2006-01-02"), probs[i])
	}

	// Value a seasoned 10Y contract paying a 150bp running coupon.
	contract, err := credit.NewCDSByTenor(curveDate, "10Y", 0.0150)
	if err != nil {
		log.Fatal(err)
	}
	contract.Notional = 1_000_000
	contract.LongProtection = false

	v, err := credit.Price(curveDate, contract, surv, disc, recoveryRate)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nCDS par spread: %.2f bp\n", v.ParSpread*10000)
	fmt.Printf("CDS full PV:    %.2f\n", v.FullPV)
	fmt.Printf("CDS clean PV:   %.2f\n", v.CleanPV)

	// Convertible bond on the same issuer.
	cb := bond.ConvertibleBond{
		MaturityDate:    utils.DateParser("2025-08-20"),
		CouponRate:      0.0375,
		PaymentsPerYear: 2,
		Face:            100.0,
		ConversionRatio: 5.0,
		CallSchedule: []bond.CallTerm{
			{Date: utils.DateParser("2023-08-20"), Price: 105},
		},
		PutSchedule: []bond.PutTerm{
			{Date: utils.DateParser("2024-08-20"), Price: 98},
		},
	}
	mkt := bond.MarketInputs{
		Spot:         18.0,
		Volatility:   0.30,
		Discount:     disc,
		Survival:     surv,
		RecoveryRate: recoveryRate,
		StepsPerYear: 400,
	}
	cv, err := bond.PriceConvertible(curveDate, cb, mkt)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nConvertible price: %.4f\n", cv.Price)
	fmt.Printf("Bond floor:        %.4f\n", cv.BondFloor)
	fmt.Printf("Delta:             %.4f\n", cv.Delta)
	fmt.Printf("Gamma:             %.6f\n", cv.Gamma)
	fmt.Printf("Theta:             %.4f\n", cv.Theta)
}
