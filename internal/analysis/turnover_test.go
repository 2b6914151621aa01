package analysis

import (
	"math"
	"testing"
	"time"

	"steam-sentinel/internal/models"
)

func withHint(s models.MarketSample, v int64) models.MarketSample {
	s.VolumeHint = &v
	return s
}

func TestAnalyzePrefersVolumeHints(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 100, 100, 100)
	samples[0] = withHint(samples[0], 40)
	samples[2] = withHint(samples[2], 60)

	est := NewAnalyzer(testWindow).Analyze("Widget", samples, now)
	if math.Abs(est.TradesPerDay-50) > 1e-9 {
		t.Errorf("expected mean of volume hints 50, got %v", est.TradesPerDay)
	}
	if est.Staleness != 0 {
		t.Errorf("newest sample is current, expected zero staleness, got %v", est.Staleness)
	}
}

func TestAnalyzePriceChangeProxy(t *testing.T) {
	now := time.Now()
	// No volume hints: 3 price moves across a 36h span is 2 changes/day.
	samples := sampleSeries(now, 12*time.Hour, 100, 110, 100, 120)
	est := NewAnalyzer(testWindow).Analyze("Widget", samples, now)
	if math.Abs(est.TradesPerDay-2) > 1e-9 {
		t.Errorf("expected 2 changes/day from proxy, got %v", est.TradesPerDay)
	}

	// A pinned price implies nothing trades.
	flat := sampleSeries(now, 12*time.Hour, 100, 100, 100, 100)
	est = NewAnalyzer(testWindow).Analyze("Widget", flat, now)
	if est.TradesPerDay != 0 {
		t.Errorf("pinned price should yield zero trades/day, got %v", est.TradesPerDay)
	}
}

func TestAnalyzeStalenessScalesDown(t *testing.T) {
	now := time.Now()
	samples := []models.MarketSample{
		withHint(models.MarketSample{
			MarketHashName:    "Widget",
			SampledAt:         now.Add(-4 * time.Hour),
			ListingPriceCents: 100,
		}, 48),
	}

	est := NewAnalyzer(testWindow).Analyze("Widget", samples, now)
	if est.Staleness != 4*time.Hour {
		t.Errorf("expected 4h staleness, got %v", est.Staleness)
	}
	// 48/day scaled by cap/staleness = 2h/4h.
	if math.Abs(est.TradesPerDay-24) > 1e-9 {
		t.Errorf("expected stale rate 24, got %v", est.TradesPerDay)
	}
}

func TestAnalyzeEmptyWindow(t *testing.T) {
	est := NewAnalyzer(testWindow).Analyze("Widget", nil, time.Now())
	if est.TradesPerDay != 0 {
		t.Errorf("expected zero rate for empty window, got %v", est.TradesPerDay)
	}
}

func TestAnalyzeSingleSampleNoHint(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 100)
	est := NewAnalyzer(testWindow).Analyze("Widget", samples, now)
	if est.TradesPerDay != 0 {
		t.Errorf("one hintless sample supports no rate, got %v", est.TradesPerDay)
	}
}
