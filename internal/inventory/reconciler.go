package inventory

import (
	"sort"

	"steam-sentinel/internal/models"
)

// Reconcile diffs two snapshots of the same game inventory and returns the
// changes as an ordered event sequence. It is a pure function: the caller
// decides when (and whether) to commit curr as the new baseline, so a failed
// commit simply re-diffs against the old baseline next cycle.
//
// Ordering is stable: all Removed first, then Added, then QuantityChanged,
// each sorted by asset id. A consumer replaying the events over prev in that
// order reconstructs curr exactly.
func Reconcile(prev, curr *models.InventorySnapshot) []models.InventoryEvent {
	if curr == nil {
		return nil
	}

	prevItems := make(map[string]models.SnapshotItem)
	if prev != nil {
		for _, it := range prev.Items {
			prevItems[it.AssetID] = it
		}
	}
	currItems := make(map[string]models.SnapshotItem, len(curr.Items))
	for _, it := range curr.Items {
		currItems[it.AssetID] = it
	}

	var removed, added, changed []models.InventoryEvent

	for assetID, old := range prevItems {
		if _, ok := currItems[assetID]; !ok {
			removed = append(removed, models.InventoryEvent{
				AppID:          curr.AppID,
				Type:           models.EventRemoved,
				AssetID:        assetID,
				MarketHashName: old.MarketHashName,
				Name:           old.Name,
				OldQuantity:    old.Quantity,
				CreatedAt:      curr.TakenAt,
			})
		}
	}
	for assetID, it := range currItems {
		old, ok := prevItems[assetID]
		switch {
		case !ok:
			added = append(added, models.InventoryEvent{
				AppID:          curr.AppID,
				Type:           models.EventAdded,
				AssetID:        assetID,
				MarketHashName: it.MarketHashName,
				Name:           it.Name,
				NewQuantity:    it.Quantity,
				CreatedAt:      curr.TakenAt,
			})
		case old.Quantity != it.Quantity:
			changed = append(changed, models.InventoryEvent{
				AppID:          curr.AppID,
				Type:           models.EventQuantityChanged,
				AssetID:        assetID,
				MarketHashName: it.MarketHashName,
				Name:           it.Name,
				OldQuantity:    old.Quantity,
				NewQuantity:    it.Quantity,
				CreatedAt:      curr.TakenAt,
			})
		}
	}

	byAsset := func(events []models.InventoryEvent) {
		sort.Slice(events, func(i, j int) bool {
			return events[i].AssetID < events[j].AssetID
		})
	}
	byAsset(removed)
	byAsset(added)
	byAsset(changed)

	out := make([]models.InventoryEvent, 0, len(removed)+len(added)+len(changed))
	out = append(out, removed...)
	out = append(out, added...)
	out = append(out, changed...)
	return out
}
