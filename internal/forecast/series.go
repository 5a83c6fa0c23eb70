// backend-go/internal/forecast/series.go
package forecast

import (
	"time"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// Series is a contiguous monthly outbound-quantity series. Start is the month
// key of Values[0]; months with no shipments hold zero.
type Series struct {
	Start  time.Time
	Values []float64
}

// Len returns the number of monthly data points.
func (s Series) Len() int {
	return len(s.Values)
}

// MonthAt returns the calendar month (1..12) of the value at index i. Indexes
// past the end address forecast horizon months.
func (s Series) MonthAt(i int) int {
	return int(s.Start.AddDate(0, i, 0).Month())
}

// BuildMonthlySeries aggregates shipment rows into the monthly training
// series. The current, still-in-progress month is excluded: a partial month
// would read as a demand drop.
func BuildMonthlySeries(records []domain.ShipmentRecord, now time.Time) Series {
	currentMonth := timeutil.MonthKey(now)

	totals := make(map[time.Time]float64)
	var first, last time.Time
	for _, rec := range records {
		month := timeutil.MonthKey(rec.ShippedAt)
		if !month.Before(currentMonth) {
			continue
		}
		totals[month] += float64(rec.Quantity)
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if month.After(last) {
			last = month
		}
	}
	if len(totals) == 0 {
		return Series{}
	}

	series := Series{Start: first}
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		series.Values = append(series.Values, totals[m])
	}
	return series
}
