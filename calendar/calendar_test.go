package calendar_test

import (
	"testing"
	"time"

	"github.com/meenmo/credlib/calendar"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsBusinessDay(t *testing.T) {
	t.Parallel()

	if calendar.IsBusinessDay(calendar.WEEKEND, date(2021, 2, 20)) { // Saturday
		t.Fatalf("Saturday should not be a business day")
	}
	if !calendar.IsBusinessDay(calendar.WEEKEND, date(2021, 2, 22)) { // Monday
		t.Fatalf("Monday should be a business day")
	}
}

func TestAdjust_ModifiedFollowing(t *testing.T) {
	t.Parallel()

	// Mid-month weekend rolls forward.
	if got := calendar.Adjust(calendar.WEEKEND, date(2021, 2, 20)); !got.Equal(date(2021, 2, 22)) {
		t.Fatalf("Adjust: got %s want 2021-02-22", got.Format("2006-01-02"))
	}
	// Month-end weekend rolls back to stay in the month.
	if got := calendar.Adjust(calendar.WEEKEND, date(2021, 1, 31)); !got.Equal(date(2021, 1, 29)) {
		t.Fatalf("Adjust month-end: got %s want 2021-01-29", got.Format("2006-01-02"))
	}
	// Following ignores the month boundary.
	if got := calendar.AdjustFollowing(calendar.WEEKEND, date(2021, 1, 31)); !got.Equal(date(2021, 2, 1)) {
		t.Fatalf("AdjustFollowing: got %s want 2021-02-01", got.Format("2006-01-02"))
	}
}

func TestAddBusinessDays(t *testing.T) {
	t.Parallel()

	// Friday + 1 business day = Monday.
	if got := calendar.AddBusinessDays(calendar.WEEKEND, date(2021, 2, 19), 1); !got.Equal(date(2021, 2, 22)) {
		t.Fatalf("AddBusinessDays(+1): got %s", got.Format("2006-01-02"))
	}
	// Monday - 1 business day = Friday.
	if got := calendar.AddBusinessDays(calendar.WEEKEND, date(2021, 2, 22), -1); !got.Equal(date(2021, 2, 19)) {
		t.Fatalf("AddBusinessDays(-1): got %s", got.Format("2006-01-02"))
	}
}
