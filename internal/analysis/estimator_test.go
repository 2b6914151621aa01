package analysis

import (
	"math"
	"testing"
	"time"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"
)

var testWindow = config.Window{
	MaxSamples:   10,
	MaxAge:       48 * time.Hour,
	StalenessCap: 2 * time.Hour,
}

func sampleSeries(now time.Time, step time.Duration, prices ...int64) []models.MarketSample {
	samples := make([]models.MarketSample, len(prices))
	start := now.Add(-step * time.Duration(len(prices)-1))
	for i, p := range prices {
		samples[i] = models.MarketSample{
			MarketHashName:    "Widget",
			SampledAt:         start.Add(step * time.Duration(i)),
			ListingPriceCents: p,
		}
	}
	return samples
}

func TestEstimateEmptyWindow(t *testing.T) {
	now := time.Now()
	est := NewEstimator(testWindow).Estimate("Widget", nil, now)
	if est.SampleCount != 0 || est.EstimatedCents != 0 || est.Confidence != 0 {
		t.Errorf("empty window should yield zero estimate, got %+v", est)
	}
}

func TestEstimateSingleSample(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 1000)
	est := NewEstimator(testWindow).Estimate("Widget", samples, now)

	if est.EstimatedCents != 1000 {
		t.Errorf("single sample should be its own estimate, got %d", est.EstimatedCents)
	}
	if est.SampleCount != 1 {
		t.Errorf("expected SampleCount 1, got %d", est.SampleCount)
	}
	// One sample of ten possible: confidence at the floor of the count term.
	if math.Abs(est.Confidence-0.1) > 1e-9 {
		t.Errorf("expected confidence 0.1, got %v", est.Confidence)
	}
}

func TestEstimateFullConsistentWindow(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 500, 500, 500, 500, 500, 500, 500, 500, 500, 500)
	est := NewEstimator(testWindow).Estimate("Widget", samples, now)

	if est.EstimatedCents != 500 {
		t.Errorf("identical samples should estimate their price, got %d", est.EstimatedCents)
	}
	if math.Abs(est.Confidence-1.0) > 1e-9 {
		t.Errorf("full window of identical prices should have confidence 1, got %v", est.Confidence)
	}
	if est.Trend != 0 {
		t.Errorf("flat series should have zero trend, got %v", est.Trend)
	}
}

func TestEstimateWeightsRecentSamples(t *testing.T) {
	now := time.Now()
	// Weighted mean with weights 1..5: 1600/15 cents.
	samples := sampleSeries(now, time.Hour, 100, 100, 120, 110, 100)
	est := NewEstimator(testWindow).Estimate("Widget", samples, now)

	if est.EstimatedCents != 107 {
		t.Errorf("expected weighted estimate 107, got %d", est.EstimatedCents)
	}
	if est.Trend != 0 {
		t.Errorf("first and last price equal, expected zero trend, got %v", est.Trend)
	}
	plain := (100 + 100 + 120 + 110 + 100) / 5
	if est.EstimatedCents == int64(plain) {
		t.Errorf("estimate should differ from the unweighted mean %d", plain)
	}
}

func TestEstimateTrend(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 100, 105, 110, 120)
	est := NewEstimator(testWindow).Estimate("Widget", samples, now)
	if math.Abs(est.Trend-0.2) > 1e-9 {
		t.Errorf("expected trend 0.2, got %v", est.Trend)
	}

	samples = sampleSeries(now, time.Hour, 120, 110, 96)
	est = NewEstimator(testWindow).Estimate("Widget", samples, now)
	if math.Abs(est.Trend-(-0.2)) > 1e-9 {
		t.Errorf("expected trend -0.2, got %v", est.Trend)
	}
}

func TestScatterLowersConfidence(t *testing.T) {
	now := time.Now()
	consistent := sampleSeries(now, time.Hour, 100, 101, 100, 99, 100)
	scattered := sampleSeries(now, time.Hour, 100, 180, 40, 160, 30)

	e := NewEstimator(testWindow)
	cc := e.Estimate("Widget", consistent, now).Confidence
	sc := e.Estimate("Widget", scattered, now).Confidence
	if sc >= cc {
		t.Errorf("scattered prices should lower confidence: consistent %v, scattered %v", cc, sc)
	}
}

func TestTrimWindowByCount(t *testing.T) {
	now := time.Now()
	samples := sampleSeries(now, time.Hour, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	trimmed := TrimWindow(samples, testWindow, now)
	if len(trimmed) != 10 {
		t.Fatalf("expected 10 samples after trim, got %d", len(trimmed))
	}
	if trimmed[0].ListingPriceCents != 3 || trimmed[9].ListingPriceCents != 12 {
		t.Errorf("trim should keep the newest samples, got first %d last %d",
			trimmed[0].ListingPriceCents, trimmed[9].ListingPriceCents)
	}
}

func TestTrimWindowByAge(t *testing.T) {
	now := time.Now()
	// 12-hour spacing: the three oldest of six fall outside 48h.
	samples := sampleSeries(now, 12*time.Hour, 1, 2, 3, 4, 5, 6)
	samples[0].SampledAt = now.Add(-72 * time.Hour)
	samples[1].SampledAt = now.Add(-60 * time.Hour)
	samples[2].SampledAt = now.Add(-49 * time.Hour)

	trimmed := TrimWindow(samples, testWindow, now)
	if len(trimmed) != 3 {
		t.Fatalf("expected 3 samples within 48h, got %d", len(trimmed))
	}
	if trimmed[0].ListingPriceCents != 4 {
		t.Errorf("expected oldest surviving sample to be 4, got %d", trimmed[0].ListingPriceCents)
	}
}
