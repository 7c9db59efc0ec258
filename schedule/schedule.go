// Package schedule generates coupon period schedules for credit instruments.
//
// Dates roll backward from maturity on unadjusted anniversaries (Bloomberg
// convention) so that the final period always ends exactly at maturity. Each
// interior accrual boundary is business-day adjusted with Modified Following;
// maturity itself is never adjusted, so the final period ends and pays on the
// contractual maturity date.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/credlib/calendar"
	"github.com/meenmo/credlib/utils"
)

// ErrInvalidSchedule reports contradictory schedule inputs.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Period is a single accrual period of a premium or coupon leg.
type Period struct {
	Start time.Time
	End   time.Time
	Pay   time.Time
}

// Periods builds the accrual periods from effective to maturity with the given
// payment frequency (payments per year). Payment falls on the adjusted accrual
// end date.
func Periods(effective, maturity time.Time, paymentsPerYear int, cal calendar.CalendarID) ([]Period, error) {
	if paymentsPerYear <= 0 {
		return nil, fmt.Errorf("schedule.Periods: paymentsPerYear %d: %w", paymentsPerYear, ErrInvalidSchedule)
	}
	if 12%paymentsPerYear != 0 {
		return nil, fmt.Errorf("schedule.Periods: paymentsPerYear %d does not divide 12 months: %w", paymentsPerYear, ErrInvalidSchedule)
	}
	if !maturity.After(effective) {
		return nil, fmt.Errorf("schedule.Periods: maturity %s not after effective %s: %w",
			maturity.Format("2006-01-02"), effective.Format("2006-01-02"), ErrInvalidSchedule)
	}

	months := 12 / paymentsPerYear

	// Roll backward from maturity on unadjusted dates.
	unadjusted := []time.Time{maturity}
	current := maturity
	for {
		current = utils.AddMonth(current, -months)
		if !current.After(effective) {
			break
		}
		unadjusted = append([]time.Time{current}, unadjusted...)
	}
	unadjusted = append([]time.Time{effective}, unadjusted...)

	periods := make([]Period, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		start := calendar.Adjust(cal, unadjusted[i])
		end := calendar.Adjust(cal, unadjusted[i+1])
		if i == len(unadjusted)-2 {
			// Maturity is not business-day adjusted.
			end = unadjusted[i+1]
		}
		periods = append(periods, Period{Start: start, End: end, Pay: end})
	}
	return periods, nil
}

// Dates returns only the payment dates of the schedule.
func Dates(effective, maturity time.Time, paymentsPerYear int, cal calendar.CalendarID) ([]time.Time, error) {
	periods, err := Periods(effective, maturity, paymentsPerYear, cal)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, len(periods))
	for i, p := range periods {
		dates[i] = p.Pay
	}
	return dates, nil
}
