package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"steam-sentinel/internal/models"
)

// rawInventory mirrors the community inventory endpoint payload: a flat asset
// list plus a shared description list keyed by (classid, instanceid).
type rawInventory struct {
	Assets []struct {
		AssetID    string `json:"assetid"`
		ClassID    string `json:"classid"`
		InstanceID string `json:"instanceid"`
		Amount     string `json:"amount"`
	} `json:"assets"`
	Descriptions []struct {
		ClassID        string `json:"classid"`
		InstanceID     string `json:"instanceid"`
		MarketHashName string `json:"market_hash_name"`
		MarketName     string `json:"market_name"`
		Name           string `json:"name"`
		IconURL        string `json:"icon_url"`
		Tradable       int    `json:"tradable"`
	} `json:"descriptions"`
	Success int `json:"success"`
}

// ParseSnapshot turns a raw inventory payload into an immutable snapshot.
// Assets are merged with their descriptions; zero-amount assets are dropped
// rather than kept at quantity 0. Items come out sorted by asset id so equal
// inventories produce identical snapshots.
func ParseSnapshot(appID, contextID int, takenAt time.Time, payload []byte) (*models.InventorySnapshot, error) {
	var inv rawInventory
	if err := json.Unmarshal(payload, &inv); err != nil {
		return nil, fmt.Errorf("inventory payload for appid %d: %w", appID, err)
	}
	if inv.Success != 1 {
		return nil, fmt.Errorf("inventory payload for appid %d: success != 1", appID)
	}

	type descKey struct{ classID, instanceID string }
	descs := make(map[descKey]int, len(inv.Descriptions))
	for i, d := range inv.Descriptions {
		if d.ClassID != "" {
			descs[descKey{d.ClassID, d.InstanceID}] = i
		}
	}

	snap := &models.InventorySnapshot{
		AppID:     appID,
		ContextID: contextID,
		TakenAt:   takenAt,
	}
	for _, a := range inv.Assets {
		if a.AssetID == "" {
			continue
		}
		amount := int64(1)
		if a.Amount != "" {
			if n, err := strconv.ParseInt(a.Amount, 10, 64); err == nil {
				amount = n
			}
		}
		if amount <= 0 {
			continue
		}
		item := models.SnapshotItem{
			AssetID:    a.AssetID,
			ClassID:    a.ClassID,
			InstanceID: a.InstanceID,
			Quantity:   amount,
		}
		if i, ok := descs[descKey{a.ClassID, a.InstanceID}]; ok {
			d := inv.Descriptions[i]
			item.MarketHashName = d.MarketHashName
			if item.MarketHashName == "" {
				item.MarketHashName = d.MarketName
			}
			if item.MarketHashName == "" {
				item.MarketHashName = d.Name
			}
			item.Name = d.Name
			item.IconURL = d.IconURL
			item.Tradable = d.Tradable == 1
		}
		if item.MarketHashName == "" {
			item.MarketHashName = "assetid=" + a.AssetID
		}
		snap.Items = append(snap.Items, item)
	}

	sort.Slice(snap.Items, func(i, j int) bool {
		return snap.Items[i].AssetID < snap.Items[j].AssetID
	})
	return snap, nil
}

// CountByType aggregates snapshot quantities per market hash name. This is the
// fungible view used for pricing and valuation.
func CountByType(snap *models.InventorySnapshot) map[string]int64 {
	counts := make(map[string]int64)
	if snap == nil {
		return counts
	}
	for _, it := range snap.Items {
		if it.MarketHashName == "" {
			continue
		}
		counts[it.MarketHashName] += it.Quantity
	}
	return counts
}
