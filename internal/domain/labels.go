// backend-go/internal/domain/labels.go
package domain

// Urgency classifies how soon a product must be reordered. Labels keep the
// Korean operations vocabulary used on the purchasing dashboard.
type Urgency string

const (
	UrgencyCritical Urgency = "긴급"    // at or below the reorder point, order now
	UrgencyWarning  Urgency = "주의"    // safety stock reached within 10 days
	UrgencyPrepare  Urgency = "정상-준비" // safety stock reached within 20 days
	UrgencyNormal   Urgency = "정상"    // no action needed
)

// Rank orders urgencies from most to least severe for report sorting.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyWarning:
		return 1
	case UrgencyPrepare:
		return 2
	default:
		return 3
	}
}

// DemandTrend buckets month-over-month forecast movement into seven tiers.
type DemandTrend string

const (
	TrendSurge     DemandTrend = "급상승"
	TrendRising    DemandTrend = "상승"
	TrendMildRise  DemandTrend = "소폭상승"
	TrendStable    DemandTrend = "안정"
	TrendMildDrop  DemandTrend = "소폭하락"
	TrendFalling   DemandTrend = "하락"
	TrendSharpDrop DemandTrend = "급하락"
)

// FutureTrend is the coarse three-way label derived from the forward months,
// used to decide whether a stock-up alert should fire.
type FutureTrend string

const (
	FutureIncreasing FutureTrend = "INCREASING"
	FutureDecreasing FutureTrend = "DECREASING"
	FutureStable     FutureTrend = "STABLE"
)
