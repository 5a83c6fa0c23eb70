// backend-go/internal/reorder/calculator.go
package reorder

import (
	"math"

	"github.com/stocklens/backend-go/internal/domain"
)

// leadTimeBufferDays is added to the supplier lead time so alerts fire before
// stock literally reaches the lead-time threshold.
const leadTimeBufferDays = 10

// Input carries everything the reorder calculation needs for one product.
// MonthlyPredictions are the three fully-forward forecast months.
type Input struct {
	ProductCode          string
	CurrentStock         int
	SafetyStock          int
	LeadTimeDays         int
	MOQ                  int
	MonthlyPredictions   [3]float64
	ConfidenceMultiplier float64
}

// Calculator turns a 3-month-forward forecast into a reorder point, an
// urgency label and a recommended order quantity.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes the reorder signal. A zero forecast means no consumption
// is expected: every day-based metric is treated as undefined and the urgency
// stays normal rather than dividing by zero.
func (c *Calculator) Calculate(in Input) domain.ReorderSignal {
	result := domain.ReorderSignal{ProductCode: in.ProductCode}

	multiplier := in.ConfidenceMultiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}

	// 1. Average daily consumption over the 3 forward months.
	var total float64
	for _, m := range in.MonthlyPredictions {
		total += m
	}
	result.AvgDailyConsumption = total / 90.0

	// 2. Demand trend is forecast-only and holds even with zero consumption.
	result.DemandTrend = c.demandTrend(in.MonthlyPredictions)

	if result.AvgDailyConsumption <= 0 {
		result.Urgency = domain.UrgencyNormal
		return result
	}

	// 3. Reorder point with the proactive buffer.
	reorderPoint := result.AvgDailyConsumption * float64(in.LeadTimeDays+leadTimeBufferDays) * multiplier
	result.ReorderPoint = int(math.Ceil(math.Max(0, reorderPoint)))

	// 4. Days until the safety stock line is crossed.
	days := float64(in.CurrentStock-in.SafetyStock) / result.AvgDailyConsumption
	result.DaysUntilSafetyStock = &days

	// 5. Urgency classification.
	switch {
	case in.CurrentStock <= result.ReorderPoint:
		result.Urgency = domain.UrgencyCritical
	case days <= 10:
		result.Urgency = domain.UrgencyWarning
	case days <= 20:
		result.Urgency = domain.UrgencyPrepare
	default:
		result.Urgency = domain.UrgencyNormal
	}

	// 6. Recommended order quantity, rounded up to an MOQ multiple.
	needed := float64(result.ReorderPoint) +
		result.AvgDailyConsumption*float64(in.LeadTimeDays) -
		float64(in.CurrentStock)
	qty := math.Max(float64(in.MOQ), math.Ceil(needed))
	if in.MOQ > 0 {
		qty = math.Ceil(qty/float64(in.MOQ)) * float64(in.MOQ)
	}
	result.RecommendedQty = int(math.Max(0, qty))

	return result
}

// demandTrend buckets the average month-over-month change rate of the
// forecast into seven tiers.
func (c *Calculator) demandTrend(months [3]float64) domain.DemandTrend {
	var rates []float64
	for i := 1; i < len(months); i++ {
		if months[i-1] <= 0 {
			continue
		}
		rates = append(rates, (months[i]-months[i-1])/months[i-1]*100)
	}
	if len(rates) == 0 {
		return domain.TrendStable
	}

	var avg float64
	for _, r := range rates {
		avg += r
	}
	avg /= float64(len(rates))

	switch {
	case avg >= 15:
		return domain.TrendSurge
	case avg >= 7:
		return domain.TrendRising
	case avg >= 3:
		return domain.TrendMildRise
	case avg <= -15:
		return domain.TrendSharpDrop
	case avg <= -7:
		return domain.TrendFalling
	case avg <= -3:
		return domain.TrendMildDrop
	default:
		return domain.TrendStable
	}
}
