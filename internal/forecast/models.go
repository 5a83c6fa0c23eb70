// backend-go/internal/forecast/models.go
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var errTooShort = errors.New("series too short for model")

// modelFn forecasts h steps past the end of the series it was fitted on.
type modelFn func(h int) []float64

// fitSES fits single exponential smoothing with a grid search over the
// smoothing level, scored by one-step-ahead squared error.
func fitSES(values []float64) (modelFn, error) {
	if len(values) < 2 {
		return nil, errTooShort
	}

	bestAlpha, bestSSE := 0.1, math.Inf(1)
	for alpha := 0.1; alpha <= 0.9+1e-9; alpha += 0.1 {
		level := values[0]
		sse := 0.0
		for _, v := range values[1:] {
			err := v - level
			sse += err * err
			level += alpha * err
		}
		if sse < bestSSE {
			bestSSE = sse
			bestAlpha = alpha
		}
	}

	level := values[0]
	for _, v := range values[1:] {
		level += bestAlpha * (v - level)
	}

	return func(h int) []float64 {
		out := make([]float64, h)
		for i := range out {
			out[i] = level
		}
		return out
	}, nil
}

// fitLinearTrend regresses quantity on the time index.
func fitLinearTrend(values []float64) (modelFn, error) {
	if len(values) < 2 {
		return nil, errTooShort
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	n := len(values)
	return func(h int) []float64 {
		out := make([]float64, h)
		for i := range out {
			out[i] = intercept + slope*float64(n+i)
		}
		return out
	}, nil
}

// fitDampedHolt fits Holt's linear trend with a damping factor so long
// horizons flatten out instead of extrapolating the trend forever.
func fitDampedHolt(values []float64) (modelFn, error) {
	if len(values) < 3 {
		return nil, errTooShort
	}

	const (
		alpha = 0.3
		beta  = 0.1
		phi   = 0.9
	)

	level := values[0]
	trend := values[1] - values[0]
	for _, v := range values[1:] {
		prevLevel := level
		level = alpha*v + (1-alpha)*(prevLevel+phi*trend)
		trend = beta*(level-prevLevel) + (1-beta)*phi*trend
	}

	return func(h int) []float64 {
		out := make([]float64, h)
		damp := 0.0
		for i := range out {
			damp += math.Pow(phi, float64(i+1))
			out[i] = level + damp*trend
		}
		return out
	}, nil
}

// fitHoltWinters fits additive triple smoothing with a 12-month season. Two
// full seasons are needed to initialize the seasonal components.
func fitHoltWinters(values []float64) (modelFn, error) {
	const period = 12
	if len(values) < 2*period {
		return nil, errTooShort
	}

	const (
		alpha = 0.3
		beta  = 0.05
		gamma = 0.2
	)

	seasonal := make([]float64, period)
	firstMean := stat.Mean(values[:period], nil)
	secondMean := stat.Mean(values[period:2*period], nil)
	for i := 0; i < period; i++ {
		seasonal[i] = (values[i] - firstMean + values[period+i] - secondMean) / 2
	}

	level := firstMean
	trend := (secondMean - firstMean) / period
	for t, v := range values {
		idx := t % period
		prevLevel := level
		level = alpha*(v-seasonal[idx]) + (1-alpha)*(prevLevel+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[idx] = gamma*(v-level) + (1-gamma)*seasonal[idx]
	}

	n := len(values)
	return func(h int) []float64 {
		out := make([]float64, h)
		for i := range out {
			out[i] = level + float64(i+1)*trend + seasonal[(n+i)%period]
		}
		return out
	}, nil
}

// fitAutoAR searches autoregressive orders and fits the best by penalized
// in-sample error, an order-search stand-in for a full ARIMA. With
// seasonalLag > 0 the value one season back joins the regressors.
func fitAutoAR(values []float64, seasonalLag int) (modelFn, error) {
	n := len(values)
	maxOrder := n / 3
	if maxOrder > 3 {
		maxOrder = 3
	}
	if maxOrder < 1 {
		return nil, errTooShort
	}
	if seasonalLag > 0 && n <= seasonalLag+2 {
		seasonalLag = 0
	}

	var bestCoef []float64
	bestOrder := 0
	bestScore := math.Inf(1)

	for p := 1; p <= maxOrder; p++ {
		coef, sse, rows, err := fitARCoefficients(values, p, seasonalLag)
		if err != nil {
			continue
		}
		// SSE penalized by parameter count, in the spirit of AIC.
		k := float64(len(coef))
		score := float64(rows)*math.Log(sse/float64(rows)+1e-9) + 2*k
		if score < bestScore {
			bestScore = score
			bestCoef = coef
			bestOrder = p
		}
	}
	if bestCoef == nil {
		return nil, fmt.Errorf("no autoregressive order converged")
	}

	p := bestOrder
	lag := seasonalLag
	history := append([]float64(nil), values...)
	return func(h int) []float64 {
		out := make([]float64, 0, h)
		work := append([]float64(nil), history...)
		for i := 0; i < h; i++ {
			pred := bestCoef[0]
			for j := 0; j < p; j++ {
				pred += bestCoef[j+1] * work[len(work)-1-j]
			}
			if lag > 0 {
				pred += bestCoef[len(bestCoef)-1] * work[len(work)-lag]
			}
			work = append(work, pred)
			out = append(out, pred)
		}
		return out
	}, nil
}

// fitARCoefficients solves the least-squares AR(p) system with an intercept
// and an optional seasonal-lag regressor.
func fitARCoefficients(values []float64, p, seasonalLag int) (coef []float64, sse float64, rows int, err error) {
	start := p
	if seasonalLag > start {
		start = seasonalLag
	}
	rows = len(values) - start
	cols := p + 1
	if seasonalLag > 0 {
		cols++
	}
	if rows <= cols {
		return nil, 0, 0, errTooShort
	}

	X := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		t := start + i
		X.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			X.Set(i, j+1, values[t-1-j])
		}
		if seasonalLag > 0 {
			X.Set(i, cols-1, values[t-seasonalLag])
		}
		y.SetVec(i, values[t])
	}

	var qr mat.QR
	qr.Factorize(X)
	sol := mat.NewDense(cols, 1, nil)
	if err := qr.SolveTo(sol, false, y); err != nil {
		return nil, 0, 0, fmt.Errorf("error solving autoregression: %w", err)
	}

	coef = make([]float64, cols)
	for i := range coef {
		coef[i] = sol.At(i, 0)
	}
	for i := 0; i < rows; i++ {
		pred := coef[0]
		t := start + i
		for j := 0; j < p; j++ {
			pred += coef[j+1] * values[t-1-j]
		}
		if seasonalLag > 0 {
			pred += coef[cols-1] * values[t-seasonalLag]
		}
		diff := values[t] - pred
		sse += diff * diff
	}
	return coef, sse, rows, nil
}

// fitPolyCurve fits a quadratic time curve by least squares.
func fitPolyCurve(values []float64) (modelFn, error) {
	n := len(values)
	if n < 4 {
		return nil, errTooShort
	}

	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		t := float64(i)
		X.Set(i, 0, 1)
		X.Set(i, 1, t)
		X.Set(i, 2, t*t)
		y.SetVec(i, values[i])
	}

	var qr mat.QR
	qr.Factorize(X)
	sol := mat.NewDense(3, 1, nil)
	if err := qr.SolveTo(sol, false, y); err != nil {
		return nil, fmt.Errorf("error fitting curve: %w", err)
	}
	c0, c1, c2 := sol.At(0, 0), sol.At(1, 0), sol.At(2, 0)

	return func(h int) []float64 {
		out := make([]float64, h)
		for i := range out {
			t := float64(n + i)
			out[i] = c0 + c1*t + c2*t*t
		}
		return out
	}, nil
}

// fitSeasonalCurve combines the quadratic time curve with additive monthly
// seasonal offsets learned from the residuals.
func fitSeasonalCurve(s Series) (modelFn, error) {
	curve, err := fitPolyCurve(s.Values)
	if err != nil {
		return nil, err
	}

	// Learn additive seasonality from the residuals of the in-sample curve.
	n := len(s.Values)
	fitted := polyInSample(s.Values)
	offsets := make([]float64, 12)
	counts := make([]int, 12)
	for i, v := range s.Values {
		m := s.MonthAt(i) - 1
		offsets[m] += v - fitted[i]
		counts[m]++
	}
	for m := range offsets {
		if counts[m] > 0 {
			offsets[m] /= float64(counts[m])
		}
	}

	return func(h int) []float64 {
		out := curve(h)
		for i := range out {
			out[i] += offsets[s.MonthAt(n+i)-1]
		}
		return out
	}, nil
}

// polyInSample returns the in-sample quadratic fit of the series.
func polyInSample(values []float64) []float64 {
	n := len(values)
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		t := float64(i)
		X.Set(i, 0, 1)
		X.Set(i, 1, t)
		X.Set(i, 2, t*t)
		y.SetVec(i, values[i])
	}
	var qr mat.QR
	qr.Factorize(X)
	sol := mat.NewDense(3, 1, nil)
	if err := qr.SolveTo(sol, false, y); err != nil {
		return values
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i)
		out[i] = sol.At(0, 0) + sol.At(1, 0)*t + sol.At(2, 0)*t*t
	}
	return out
}

// seasonStrength measures autocorrelation at lag 12.
func seasonStrength(values []float64) float64 {
	const lag = 12
	if len(values) <= lag+1 {
		return 0
	}
	return stat.Correlation(values[:len(values)-lag], values[lag:], nil)
}

// percentileBounds returns the clipping window [0.5*p5, 1.5*p95] of the
// history.
func percentileBounds(values []float64) (lo, hi float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	p5 := stat.Quantile(0.05, stat.Empirical, sorted, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return 0.5 * p5, 1.5 * p95
}
