// Package analysis holds the pure valuation pipeline: price smoothing,
// turnover estimation, the sell/hold decision and portfolio aggregation.
// Nothing here does I/O; every function is deterministic over its inputs.
package analysis

import (
	"math"
	"time"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"
)

// cvCap is the coefficient of variation at or above which price variance
// zeroes out confidence.
const cvCap = 0.5

// Estimator smooths raw market samples into a per-item price estimate.
type Estimator struct {
	window config.Window
}

func NewEstimator(window config.Window) *Estimator {
	return &Estimator{window: window}
}

// TrimWindow applies the rolling-window bounds to an ordered sample slice
// (oldest first): samples older than MaxAge are dropped, then the newest
// MaxSamples are kept. The two bounds compose; whichever yields fewer
// samples wins.
func TrimWindow(samples []models.MarketSample, window config.Window, now time.Time) []models.MarketSample {
	trimmed := samples
	if window.MaxAge > 0 {
		cutoff := now.Add(-window.MaxAge)
		first := len(trimmed)
		for i, s := range trimmed {
			if !s.SampledAt.Before(cutoff) {
				first = i
				break
			}
		}
		trimmed = trimmed[first:]
	}
	if window.MaxSamples > 0 && len(trimmed) > window.MaxSamples {
		trimmed = trimmed[len(trimmed)-window.MaxSamples:]
	}
	return trimmed
}

// Estimate computes the smoothed price for one item type from its rolling
// window. The mean is linearly weighted toward recent samples so the estimate
// follows trend shifts while damping single-sample noise. A one-sample window
// yields that sample's price at minimum confidence; an empty window yields a
// zero estimate with SampleCount 0.
func (e *Estimator) Estimate(marketHashName string, samples []models.MarketSample, now time.Time) models.PriceEstimate {
	window := TrimWindow(samples, e.window, now)
	est := models.PriceEstimate{
		MarketHashName: marketHashName,
		SampleCount:    len(window),
		LastUpdated:    now,
	}
	if len(window) == 0 {
		return est
	}

	var weightedSum, weightTotal float64
	for i, s := range window {
		w := float64(i + 1)
		weightedSum += w * float64(s.ListingPriceCents)
		weightTotal += w
	}
	mean := weightedSum / weightTotal
	est.EstimatedCents = int64(math.Round(mean))

	first := float64(window[0].ListingPriceCents)
	last := float64(window[len(window)-1].ListingPriceCents)
	if first > 0 {
		est.Trend = (last - first) / first
	}

	est.Confidence = confidence(window, mean, e.window.MaxSamples)
	return est
}

// confidence grows with sample count and shrinks with relative price
// variance: many consistent samples approach 1, one sample or a wildly
// scattered window stay near the floor.
func confidence(window []models.MarketSample, mean float64, maxSamples int) float64 {
	if maxSamples <= 0 {
		maxSamples = 1
	}
	countTerm := float64(len(window)) / float64(maxSamples)
	if countTerm > 1 {
		countTerm = 1
	}

	varTerm := 1.0
	if len(window) > 1 && mean > 0 {
		var sumSq float64
		for _, s := range window {
			d := float64(s.ListingPriceCents) - mean
			sumSq += d * d
		}
		cv := math.Sqrt(sumSq/float64(len(window))) / mean
		varTerm = 1 - cv/cvCap
		if varTerm < 0 {
			varTerm = 0
		}
	}

	return countTerm * varTerm
}
