package utils

import (
	"time"
)

// Day count convention identifiers accepted by YearFraction and AccruedDays.
const (
	Act360        = "ACT/360"
	Act365F       = "ACT/365F"
	Thirty360Bond = "30/360"  // US bond basis
	ThirtyE360    = "30E/360" // Eurobond basis
)

// YearFraction computes the year fraction between two dates under the given
// day count convention. Supported conventions: ACT/360, ACT/365F, 30/360, 30E/360.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Act365F:
		return Days(start, end) / 365.0
	case Thirty360Bond:
		d1 := start.Day()
		d2 := end.Day()
		if d1 == 31 {
			d1 = 30
		}
		// D2 is only pulled back when D1 already sits on the 30th/31st.
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	case ThirtyE360:
		// 30E/360 (Eurobond basis): both day numbers capped at 30. The ISDA
		// variant's end-of-February rule needs the termination date, which
		// this signature does not carry.
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// AccruedDays returns the day count between two dates as used for accrued
// interest reporting: calendar days for ACT conventions, the 30/360 numerator
// for the 30-based conventions.
func AccruedDays(start, end time.Time, convention string) int {
	switch convention {
	case Thirty360Bond, ThirtyE360:
		return int(YearFraction(start, end, convention) * 360.0)
	default:
		return int(Days(start, end))
	}
}
