// backend-go/pkg/timeutil/timeutil.go
package timeutil

import "time"

// KST is the display and business-calendar zone. All timestamps are stored
// and compared in UTC; KST only decides where a calendar day begins.
var KST = time.FixedZone("KST", 9*60*60)

// NowUTC returns the current instant in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ToUTC normalizes any timestamp to UTC. Naive-vs-aware comparison bugs are
// avoided by calling this at every ingestion boundary.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// BusinessDate truncates an instant to its KST calendar day. The result is a
// zone-less date key (midnight UTC) suitable for ledger_date columns.
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.In(KST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBoundsUTC returns the UTC half-open interval [start, end) covering the
// KST calendar day of the given date key.
func DayBoundsUTC(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, KST)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}

// EndOfDayUTC returns the closing instant of the KST calendar day, used as the
// DAILY_CLOSE checkpoint timestamp.
func EndOfDayUTC(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, KST).UTC()
}

// PreviousBusinessDate returns the KST calendar day before the given instant,
// as a date key. The nightly close processes exactly this day.
func PreviousBusinessDate(now time.Time) time.Time {
	return BusinessDate(now).AddDate(0, 0, -1)
}

// MonthKey truncates an instant to the first day of its KST calendar month,
// the grain the forecasting pipeline aggregates on.
func MonthKey(t time.Time) time.Time {
	y, m, _ := t.In(KST).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
