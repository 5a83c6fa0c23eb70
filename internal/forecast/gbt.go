// backend-go/internal/forecast/gbt.go
package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Boosted regression stumps over lag, moving-average and calendar features.
// Depth-one trees keep the model honest on the short series this pipeline
// sees while still capturing threshold effects a linear model misses.

const (
	gbtLags         = 3
	gbtRounds       = 50
	gbtLearningRate = 0.1
)

type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
}

func (s stump) predict(features []float64) float64 {
	if features[s.feature] <= s.threshold {
		return s.left
	}
	return s.right
}

type gbtModel struct {
	base   float64
	stumps []stump
}

// gbtFeatures builds the feature row for predicting index t of the series:
// the three previous values, their mean, and the calendar month.
func gbtFeatures(s Series, values []float64, t int) []float64 {
	ma := (values[t-1] + values[t-2] + values[t-3]) / 3
	return []float64{
		values[t-1],
		values[t-2],
		values[t-3],
		ma,
		float64(s.MonthAt(t)),
	}
}

// fitGBT trains the boosted stumps one-step-ahead and forecasts recursively,
// feeding each prediction back as the next step's lag features.
func fitGBT(s Series) (modelFn, error) {
	values := s.Values
	n := len(values)
	if n < gbtLags+4 {
		return nil, errTooShort
	}

	rows := make([][]float64, 0, n-gbtLags)
	targets := make([]float64, 0, n-gbtLags)
	for t := gbtLags; t < n; t++ {
		rows = append(rows, gbtFeatures(s, values, t))
		targets = append(targets, values[t])
	}

	model := gbtModel{base: stat.Mean(targets, nil)}
	residuals := make([]float64, len(targets))
	for i, y := range targets {
		residuals[i] = y - model.base
	}

	for round := 0; round < gbtRounds; round++ {
		best, ok := bestStump(rows, residuals)
		if !ok {
			break
		}
		model.stumps = append(model.stumps, best)
		for i, row := range rows {
			residuals[i] -= gbtLearningRate * best.predict(row)
		}
	}

	return func(h int) []float64 {
		out := make([]float64, 0, h)
		work := append([]float64(nil), values...)
		for i := 0; i < h; i++ {
			features := gbtFeatures(s, work, len(work))
			pred := model.base
			for _, st := range model.stumps {
				pred += gbtLearningRate * st.predict(features)
			}
			work = append(work, pred)
			out = append(out, pred)
		}
		return out
	}, nil
}

// bestStump scans every feature and split point for the largest squared-error
// reduction on the residuals.
func bestStump(rows [][]float64, residuals []float64) (stump, bool) {
	var best stump
	bestSSE := math.Inf(1)
	found := false

	for f := 0; f < len(rows[0]); f++ {
		for _, split := range rows {
			threshold := split[f]
			var leftSum, rightSum float64
			var leftN, rightN int
			for i, row := range rows {
				if row[f] <= threshold {
					leftSum += residuals[i]
					leftN++
				} else {
					rightSum += residuals[i]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			var sse float64
			for i, row := range rows {
				var pred float64
				if row[f] <= threshold {
					pred = leftMean
				} else {
					pred = rightMean
				}
				diff := residuals[i] - pred
				sse += diff * diff
			}
			if sse < bestSSE {
				bestSSE = sse
				best = stump{feature: f, threshold: threshold, left: leftMean, right: rightMean}
				found = true
			}
		}
	}
	return best, found
}
