// backend-go/internal/forecast/ensemble.go
package forecast

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/stocklens/backend-go/internal/domain"
)

// horizonMonths covers the current month plus three full forward months.
const horizonMonths = 4

// seasonalityThreshold is the lag-12 autocorrelation above which the
// sufficient-data tier switches to seasonal models.
const seasonalityThreshold = 0.3

// Engine selects and blends forecasting models by data sufficiency.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type blendResult struct {
	preds      []float64
	method     string
	confidence string
}

// Forecast produces the 4-month prediction for one SKU. Individual model
// failures degrade the blend; only a history shorter than two months refuses
// to predict at all.
func (e *Engine) Forecast(code string, s Series, now time.Time) (domain.ForecastResult, error) {
	n := s.Len()
	tier := Categorize(n)
	if tier == SufficiencyInsufficient {
		return domain.ForecastResult{}, domain.ErrNotEnoughData
	}

	res := e.blend(tier, s, horizonMonths)
	if res == nil {
		res = e.fallback(s, horizonMonths)
	}
	for i, p := range res.preds {
		if p < 0 {
			res.preds[i] = 0
		}
	}

	rmse, mae := e.backtest(tier, s)

	return domain.ForecastResult{
		ProductCode: code,
		GeneratedAt: now,
		Method:      res.method,
		Confidence:  res.confidence,
		MonthP0:     res.preds[0],
		MonthP1:     res.preds[1],
		MonthP2:     res.preds[2],
		MonthP3:     res.preds[3],
		FutureTrend: string(futureTrend([3]float64{res.preds[1], res.preds[2], res.preds[3]})),
		RMSE:        rmse,
		MAE:         mae,
		DataPoints:  n,
	}, nil
}

// blend runs the tier's strategy; nil means every model failed.
func (e *Engine) blend(tier DataSufficiency, s Series, h int) *blendResult {
	switch tier {
	case SufficiencyMinimal:
		return e.blendMinimal(s, h)
	case SufficiencyLimited:
		return e.blendLimited(s, h)
	case SufficiencyModerate:
		return e.blendModerate(s, h)
	default:
		return e.blendSufficient(s, h)
	}
}

// blendMinimal projects the recency-weighted average of the available months
// flat across the horizon.
func (e *Engine) blendMinimal(s Series, h int) *blendResult {
	weights := []float64{0.5, 0.3, 0.2}
	var sum, wsum float64
	for i := 0; i < len(weights) && i < s.Len(); i++ {
		v := s.Values[s.Len()-1-i]
		sum += weights[i] * v
		wsum += weights[i]
	}
	avg := sum / wsum

	preds := make([]float64, h)
	for i := range preds {
		preds[i] = avg
	}
	return &blendResult{preds: preds, method: "baseline", confidence: "low"}
}

// blendLimited averages smoothing and a linear trend, nudged by the most
// recent two-point slope.
func (e *Engine) blendLimited(s Series, h int) *blendResult {
	ses, errS := fitSES(s.Values)
	lin, errL := fitLinearTrend(s.Values)
	if errS != nil && errL != nil {
		return nil
	}

	preds := make([]float64, h)
	switch {
	case errS != nil:
		copy(preds, lin(h))
	case errL != nil:
		copy(preds, ses(h))
	default:
		sp, lp := ses(h), lin(h)
		for i := range preds {
			preds[i] = (sp[i] + lp[i]) / 2
		}
	}

	slope := s.Values[s.Len()-1] - s.Values[s.Len()-2]
	for i := range preds {
		preds[i] += 0.5 * slope
	}
	return &blendResult{preds: preds, method: "ses+linear", confidence: "low-medium"}
}

// blendModerate runs the fixed-weight ensemble and clips predictions to the
// percentile window of the history.
func (e *Engine) blendModerate(s Series, h int) *blendResult {
	type candidate struct {
		name   string
		weight float64
		fit    func() (modelFn, error)
	}
	candidates := []candidate{
		{"auto_ar", 0.4, func() (modelFn, error) { return fitAutoAR(s.Values, 0) }},
		{"damped_holt", 0.35, func() (modelFn, error) { return fitDampedHolt(s.Values) }},
		{"poly_curve", 0.25, func() (modelFn, error) { return fitPolyCurve(s.Values) }},
	}

	preds := make([]float64, h)
	var names []string
	var totalWeight float64
	for _, c := range candidates {
		model, err := c.fit()
		if err != nil {
			continue
		}
		for i, p := range model(h) {
			preds[i] += c.weight * p
		}
		names = append(names, c.name)
		totalWeight += c.weight
	}
	if totalWeight == 0 {
		return nil
	}
	for i := range preds {
		preds[i] /= totalWeight
	}

	lo, hi := percentileBounds(s.Values)
	for i := range preds {
		preds[i] = math.Min(math.Max(preds[i], lo), hi)
	}
	return &blendResult{preds: preds, method: strings.Join(names, "+"), confidence: "medium"}
}

// blendSufficient weights the seasonal-capable models by inverse holdout
// error.
func (e *Engine) blendSufficient(s Series, h int) *blendResult {
	seasonal := seasonStrength(s.Values) > seasonalityThreshold
	seasonalLag := 0
	if seasonal {
		seasonalLag = 12
	}

	type candidate struct {
		name string
		fit  func(Series) (modelFn, error)
	}
	candidates := []candidate{
		{"auto_ar", func(p Series) (modelFn, error) { return fitAutoAR(p.Values, seasonalLag) }},
		{"holt_winters", func(p Series) (modelFn, error) {
			if m, err := fitHoltWinters(p.Values); err == nil {
				return m, nil
			}
			return fitDampedHolt(p.Values)
		}},
		{"gbt", fitGBT},
		{"seasonal_curve", fitSeasonalCurve},
	}

	holdout := 3
	if s.Len()-holdout < 6 {
		holdout = s.Len() - 6
	}
	train := Series{Start: s.Start, Values: s.Values[:s.Len()-holdout]}
	actual := s.Values[s.Len()-holdout:]

	preds := make([]float64, h)
	var names []string
	var totalWeight float64
	for _, c := range candidates {
		trained, err := c.fit(train)
		if err != nil {
			continue
		}
		full, err := c.fit(s)
		if err != nil {
			continue
		}

		holdoutPreds := trained(holdout)
		var sse float64
		for i, a := range actual {
			diff := a - holdoutPreds[i]
			sse += diff * diff
		}
		weight := 1.0 / (math.Sqrt(sse/float64(holdout)) + 1e-6)

		for i, p := range full(h) {
			preds[i] += weight * p
		}
		names = append(names, c.name)
		totalWeight += weight
	}
	if totalWeight == 0 {
		return nil
	}
	for i := range preds {
		preds[i] /= totalWeight
	}

	confidence := "medium-high"
	if len(names) >= 3 {
		confidence = "high"
	}
	return &blendResult{preds: preds, method: strings.Join(names, "+"), confidence: confidence}
}

// fallback is the degraded flat-average forecast used when the whole ensemble
// fails.
func (e *Engine) fallback(s Series, h int) *blendResult {
	window := 3
	if s.Len() < window {
		window = s.Len()
	}
	avg := stat.Mean(s.Values[s.Len()-window:], nil)

	preds := make([]float64, h)
	for i := range preds {
		preds[i] = avg
	}
	return &blendResult{preds: preds, method: "fallback_average", confidence: "low"}
}

// backtest walks the last one to three months forward, re-running the tier
// strategy on each prefix. Diagnostic only; never feeds back into selection.
func (e *Engine) backtest(tier DataSufficiency, s Series) (rmse, mae float64) {
	folds := 3
	if s.Len()-2 < folds {
		folds = s.Len() - 2
	}
	if folds < 1 {
		return 0, 0
	}

	var sse, sae float64
	var count int
	for i := s.Len() - folds; i < s.Len(); i++ {
		prefix := Series{Start: s.Start, Values: s.Values[:i]}
		res := e.blend(Categorize(i), prefix, 1)
		if res == nil {
			res = e.fallback(prefix, 1)
		}
		diff := s.Values[i] - math.Max(res.preds[0], 0)
		sse += diff * diff
		sae += math.Abs(diff)
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return math.Sqrt(sse / float64(count)), sae / float64(count)
}

// futureTrend labels the slope of the three forward months relative to their
// mean.
func futureTrend(months [3]float64) domain.FutureTrend {
	xs := []float64{0, 1, 2}
	_, slope := stat.LinearRegression(xs, months[:], nil, false)

	mean := (months[0] + months[1] + months[2]) / 3
	if mean <= 0 {
		return domain.FutureStable
	}
	switch rel := slope / mean; {
	case rel >= 0.05:
		return domain.FutureIncreasing
	case rel <= -0.05:
		return domain.FutureDecreasing
	default:
		return domain.FutureStable
	}
}
