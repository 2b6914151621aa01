package analysis

import (
	"math"
	"time"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"
)

// Analyzer estimates how frequently an item type trades.
type Analyzer struct {
	window config.Window
}

func NewAnalyzer(window config.Window) *Analyzer {
	return &Analyzer{window: window}
}

// Analyze derives a trades-per-day estimate from the rolling window. When the
// marketplace reported sale volumes, those are averaged directly. Without
// volume hints, liquidity is approximated by how often the listing price
// moved between samples: a price pinned across many samples implies nobody is
// trading through the book.
//
// Staleness is the age of the newest sample. Once it exceeds the configured
// cap the rate is scaled down proportionally — stale data cannot support a
// fresh liquidity claim.
func (a *Analyzer) Analyze(marketHashName string, samples []models.MarketSample, now time.Time) models.TurnoverEstimate {
	window := TrimWindow(samples, a.window, now)
	est := models.TurnoverEstimate{MarketHashName: marketHashName}
	if len(window) == 0 {
		return est
	}

	est.Staleness = now.Sub(window[len(window)-1].SampledAt)
	if est.Staleness < 0 {
		est.Staleness = 0
	}

	var hintSum float64
	var hintCount int
	for _, s := range window {
		if s.VolumeHint != nil && *s.VolumeHint > 0 {
			hintSum += float64(*s.VolumeHint)
			hintCount++
		}
	}

	switch {
	case hintCount > 0:
		est.TradesPerDay = hintSum / float64(hintCount)
	case len(window) > 1:
		est.TradesPerDay = priceChangeRate(window)
	}

	if limit := a.window.StalenessCap; limit > 0 && est.Staleness > limit {
		est.TradesPerDay *= float64(limit) / float64(est.Staleness)
	}
	return est
}

// priceChangeRate counts listing-price moves between consecutive samples and
// normalizes by the window's time span, yielding changes per day.
func priceChangeRate(window []models.MarketSample) float64 {
	span := window[len(window)-1].SampledAt.Sub(window[0].SampledAt)
	if span <= 0 {
		return 0
	}
	changes := 0
	for i := 1; i < len(window); i++ {
		if window[i].ListingPriceCents != window[i-1].ListingPriceCents {
			changes++
		}
	}
	days := span.Hours() / 24
	if days <= 0 {
		return 0
	}
	return math.Max(0, float64(changes)/days)
}
