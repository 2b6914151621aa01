package analysis

import (
	"testing"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"
)

var testThresholds = config.Thresholds{
	ConfidenceFloor: 0.15,
	LiquidityFloor:  2.0,
	KeepQuantity:    3,
	UndercutMargin:  0.02,
	PriceFloorFrac:  0.8,
}

func TestRecommend(t *testing.T) {
	liquid := models.TurnoverEstimate{TradesPerDay: 5}
	illiquid := models.TurnoverEstimate{TradesPerDay: 1}
	good := models.PriceEstimate{
		MarketHashName: "Widget",
		EstimatedCents: 1000,
		Confidence:     0.8,
		SampleCount:    8,
		Trend:          0.05,
	}

	tests := []struct {
		name       string
		price      models.PriceEstimate
		turnover   models.TurnoverEstimate
		held       int64
		verdict    models.Verdict
		reason     string
		askedCents int64
	}{
		{
			name:     "no samples",
			price:    models.PriceEstimate{MarketHashName: "Widget"},
			turnover: liquid,
			held:     10,
			verdict:  models.VerdictInsufficientData,
			reason:   ReasonNoSamples,
		},
		{
			name: "confidence below floor",
			price: models.PriceEstimate{
				MarketHashName: "Widget", EstimatedCents: 1000, Confidence: 0.1, SampleCount: 1,
			},
			turnover: liquid,
			held:     10,
			verdict:  models.VerdictInsufficientData,
			reason:   ReasonLowConfidence,
		},
		{
			name:       "all signals align",
			price:      good,
			turnover:   liquid,
			held:       10,
			verdict:    models.VerdictSell,
			reason:     ReasonOK,
			askedCents: 980,
		},
		{
			name: "falling price holds",
			price: models.PriceEstimate{
				MarketHashName: "Widget", EstimatedCents: 1000, Confidence: 0.8, SampleCount: 8, Trend: -0.1,
			},
			turnover:   liquid,
			held:       10,
			verdict:    models.VerdictHold,
			reason:     ReasonFallingPrice,
			askedCents: 980,
		},
		{
			name:       "thin market holds",
			price:      good,
			turnover:   illiquid,
			held:       10,
			verdict:    models.VerdictHold,
			reason:     ReasonLowTurnover,
			askedCents: 980,
		},
		{
			name:       "held quantity at keep threshold holds",
			price:      good,
			turnover:   liquid,
			held:       3,
			verdict:    models.VerdictHold,
			reason:     ReasonBelowKeepQty,
			askedCents: 980,
		},
		{
			name:       "exactly at liquidity floor sells",
			price:      good,
			turnover:   models.TurnoverEstimate{TradesPerDay: 2.0},
			held:       4,
			verdict:    models.VerdictSell,
			reason:     ReasonOK,
			askedCents: 980,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(tt.price, tt.turnover, tt.held, testThresholds)
			if rec.Verdict != tt.verdict {
				t.Errorf("verdict = %s, want %s", rec.Verdict, tt.verdict)
			}
			if rec.ReasonCode != tt.reason {
				t.Errorf("reason = %s, want %s", rec.ReasonCode, tt.reason)
			}
			if rec.RecommendedCents != tt.askedCents {
				t.Errorf("recommended price = %d, want %d", rec.RecommendedCents, tt.askedCents)
			}
		})
	}
}

func TestUndercutFloor(t *testing.T) {
	th := testThresholds
	th.UndercutMargin = 0.3

	// A 30% undercut of 1000 would be 700, below the 80% floor.
	if got := undercut(1000, th); got != 800 {
		t.Errorf("undercut should be bounded by the price floor, got %d", got)
	}
	// Normal margin stays above the floor untouched.
	if got := undercut(1000, testThresholds); got != 980 {
		t.Errorf("expected 980, got %d", got)
	}
}

func TestRecommendZeroTrendSells(t *testing.T) {
	// A flat price counts as stable, not falling.
	price := models.PriceEstimate{
		MarketHashName: "Widget", EstimatedCents: 500, Confidence: 0.5, SampleCount: 5, Trend: 0,
	}
	rec := Recommend(price, models.TurnoverEstimate{TradesPerDay: 3}, 10, testThresholds)
	if rec.Verdict != models.VerdictSell {
		t.Errorf("flat trend with liquidity and surplus should sell, got %s (%s)", rec.Verdict, rec.ReasonCode)
	}
}
