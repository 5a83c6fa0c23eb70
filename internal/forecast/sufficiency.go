// backend-go/internal/forecast/sufficiency.go
package forecast

// DataSufficiency tiers the available history length; each tier maps to a
// fixed forecasting strategy.
type DataSufficiency string

const (
	// fewer than 2 months: no forecast is produced at all
	SufficiencyInsufficient DataSufficiency = "INSUFFICIENT"
	// exactly 2 months: weighted-average baseline
	SufficiencyMinimal DataSufficiency = "MINIMAL"
	// 3 to 5 months: smoothing blended with a linear trend
	SufficiencyLimited DataSufficiency = "LIMITED_DATA"
	// 6 to 12 months: clipped model ensemble
	SufficiencyModerate DataSufficiency = "MODERATE_DATA"
	// more than a year: seasonality-aware ensemble
	SufficiencySufficient DataSufficiency = "SUFFICIENT_DATA"
)

// Categorize derives the tier from the number of monthly data points.
func Categorize(n int) DataSufficiency {
	switch {
	case n < 2:
		return SufficiencyInsufficient
	case n < 3:
		return SufficiencyMinimal
	case n <= 5:
		return SufficiencyLimited
	case n <= 12:
		return SufficiencyModerate
	default:
		return SufficiencySufficient
	}
}
