package analysis

import (
	"testing"
	"time"

	"steam-sentinel/internal/models"
)

func testSnapshot(appID int, items ...models.SnapshotItem) *models.InventorySnapshot {
	return &models.InventorySnapshot{AppID: appID, Items: items}
}

func TestAggregate(t *testing.T) {
	now := time.Now()
	games := []GameSnapshot{
		{
			GameName: "Banana",
			Snapshot: testSnapshot(2923300,
				models.SnapshotItem{AssetID: "a1", MarketHashName: "Banana", Name: "Banana", Quantity: 2},
				models.SnapshotItem{AssetID: "a2", MarketHashName: "Banana", Name: "Banana", Quantity: 3},
				models.SnapshotItem{AssetID: "a3", MarketHashName: "Golden Banana", Name: "Golden Banana", Quantity: 1},
			),
		},
		{
			GameName: "Bongo Cat",
			Snapshot: testSnapshot(3419430,
				models.SnapshotItem{AssetID: "b1", MarketHashName: "Drum", Name: "Drum", Quantity: 4},
			),
		},
	}
	estimates := map[string]models.PriceEstimate{
		"Banana": {MarketHashName: "Banana", EstimatedCents: 100, SampleCount: 5},
		"Drum":   {MarketHashName: "Drum", EstimatedCents: 250, SampleCount: 5},
		// Golden Banana has no estimate.
	}

	v := Aggregate(now, games, estimates)

	// 5 * 100 + 4 * 250; the unpriced item contributes nothing.
	if v.TotalCents != 1500 {
		t.Errorf("total = %d, want 1500", v.TotalCents)
	}
	if len(v.Items) != 3 {
		t.Fatalf("expected 3 portfolio lines, got %d", len(v.Items))
	}

	// Most valuable first.
	if v.Items[0].MarketHashName != "Drum" || v.Items[0].TotalCents != 1000 {
		t.Errorf("expected Drum at 1000 first, got %+v", v.Items[0])
	}
	if v.Items[1].MarketHashName != "Banana" || v.Items[1].Quantity != 5 {
		t.Errorf("stacks of the same item should merge, got %+v", v.Items[1])
	}

	golden := v.Items[2]
	if !golden.Unpriced {
		t.Errorf("item without estimate should be flagged unpriced, got %+v", golden)
	}
	if golden.TotalCents != 0 || golden.UnitPriceCents != 0 {
		t.Errorf("unpriced item should carry zero value, got %+v", golden)
	}
}

func TestAggregateZeroSampleEstimateIsUnpriced(t *testing.T) {
	games := []GameSnapshot{
		{GameName: "Banana", Snapshot: testSnapshot(2923300,
			models.SnapshotItem{AssetID: "a1", MarketHashName: "Banana", Quantity: 1},
		)},
	}
	estimates := map[string]models.PriceEstimate{
		"Banana": {MarketHashName: "Banana", EstimatedCents: 0, SampleCount: 0},
	}
	v := Aggregate(time.Now(), games, estimates)
	if len(v.Items) != 1 || !v.Items[0].Unpriced {
		t.Errorf("estimate with no samples should not price an item, got %+v", v.Items)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	estimates := map[string]models.PriceEstimate{
		"A": {EstimatedCents: 7, SampleCount: 1},
		"B": {EstimatedCents: 13, SampleCount: 1},
	}
	forward := []GameSnapshot{
		{GameName: "G", Snapshot: testSnapshot(1,
			models.SnapshotItem{AssetID: "1", MarketHashName: "A", Quantity: 3},
			models.SnapshotItem{AssetID: "2", MarketHashName: "B", Quantity: 2},
		)},
	}
	backward := []GameSnapshot{
		{GameName: "G", Snapshot: testSnapshot(1,
			models.SnapshotItem{AssetID: "2", MarketHashName: "B", Quantity: 2},
			models.SnapshotItem{AssetID: "1", MarketHashName: "A", Quantity: 3},
		)},
	}

	now := time.Now()
	a := Aggregate(now, forward, estimates)
	b := Aggregate(now, backward, estimates)
	if a.TotalCents != b.TotalCents {
		t.Errorf("total must not depend on item order: %d vs %d", a.TotalCents, b.TotalCents)
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			t.Errorf("line %d differs across orderings: %+v vs %+v", i, a.Items[i], b.Items[i])
		}
	}
}

func TestAggregateNilSnapshot(t *testing.T) {
	v := Aggregate(time.Now(), []GameSnapshot{{GameName: "G", Snapshot: nil}}, nil)
	if v.TotalCents != 0 || len(v.Items) != 0 {
		t.Errorf("nil snapshot should produce an empty valuation, got %+v", v)
	}
}
