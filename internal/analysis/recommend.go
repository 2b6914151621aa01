package analysis

import (
	"math"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"
)

// Reason codes attached to recommendations.
const (
	ReasonOK            = "ok"
	ReasonNoSamples     = "no_samples"
	ReasonLowConfidence = "low_confidence"
	ReasonFallingPrice  = "falling_price"
	ReasonLowTurnover   = "low_turnover"
	ReasonBelowKeepQty  = "below_keep_quantity"
)

// Recommend combines a price estimate and a turnover estimate into a sell or
// hold verdict for an item type held at the given quantity. Pure decision
// function, no I/O.
//
// SELL requires all three signals at once: liquidity above the floor, a
// stable-or-rising price, and surplus quantity beyond the keep threshold.
// When the signals disagree the verdict is HOLD — a missed sale is cheaper
// than selling into a price drop.
func Recommend(price models.PriceEstimate, turnover models.TurnoverEstimate, heldQuantity int64, th config.Thresholds) models.Recommendation {
	rec := models.Recommendation{
		MarketHashName: price.MarketHashName,
		TradesPerDay:   turnover.TradesPerDay,
		Confidence:     price.Confidence,
	}

	if price.SampleCount < 1 {
		rec.Verdict = models.VerdictInsufficientData
		rec.ReasonCode = ReasonNoSamples
		return rec
	}
	if price.Confidence < th.ConfidenceFloor {
		rec.Verdict = models.VerdictInsufficientData
		rec.ReasonCode = ReasonLowConfidence
		return rec
	}

	rec.RecommendedCents = undercut(price.EstimatedCents, th)

	rising := price.Trend >= 0
	liquid := turnover.TradesPerDay >= th.LiquidityFloor
	surplus := heldQuantity > th.KeepQuantity

	if rising && liquid && surplus {
		rec.Verdict = models.VerdictSell
		rec.ReasonCode = ReasonOK
		return rec
	}

	rec.Verdict = models.VerdictHold
	switch {
	case !rising:
		rec.ReasonCode = ReasonFallingPrice
	case !liquid:
		rec.ReasonCode = ReasonLowTurnover
	default:
		rec.ReasonCode = ReasonBelowKeepQty
	}
	return rec
}

// undercut shaves the configured margin off the estimate, bounded below by
// the floor fraction so one outlier-low sample can never turn into a
// giveaway price.
func undercut(estimatedCents int64, th config.Thresholds) int64 {
	price := int64(math.Round(float64(estimatedCents) * (1 - th.UndercutMargin)))
	floor := int64(math.Ceil(float64(estimatedCents) * th.PriceFloorFrac))
	if price < floor {
		price = floor
	}
	return price
}
