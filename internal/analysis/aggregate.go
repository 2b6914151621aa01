package analysis

import (
	"sort"
	"time"

	"steam-sentinel/internal/models"
)

// GameSnapshot pairs a committed inventory snapshot with its display name.
type GameSnapshot struct {
	GameName string
	Snapshot *models.InventorySnapshot
}

// Aggregate sums per-item estimated values into a portfolio valuation.
// Items without an estimate contribute zero and are flagged unpriced rather
// than omitted, so the total visibly under-reports instead of masking gaps.
// Quantities are grouped per (game, market hash name); the total is an
// integer-cent sum and therefore independent of item order.
func Aggregate(takenAt time.Time, games []GameSnapshot, estimates map[string]models.PriceEstimate) models.PortfolioValuation {
	valuation := models.PortfolioValuation{TakenAt: takenAt}

	type itemKey struct {
		appID int
		name  string
	}
	grouped := make(map[itemKey]*models.PortfolioItem)

	for _, g := range games {
		if g.Snapshot == nil {
			continue
		}
		for _, it := range g.Snapshot.Items {
			if it.MarketHashName == "" {
				continue
			}
			key := itemKey{g.Snapshot.AppID, it.MarketHashName}
			row, ok := grouped[key]
			if !ok {
				row = &models.PortfolioItem{
					AppID:          g.Snapshot.AppID,
					GameName:       g.GameName,
					MarketHashName: it.MarketHashName,
					Name:           it.Name,
				}
				grouped[key] = row
			}
			row.Quantity += it.Quantity
		}
	}

	for _, row := range grouped {
		est, ok := estimates[row.MarketHashName]
		if !ok || est.SampleCount < 1 {
			row.Unpriced = true
		} else {
			row.UnitPriceCents = est.EstimatedCents
			row.TotalCents = row.Quantity * est.EstimatedCents
		}
		valuation.TotalCents += row.TotalCents
		valuation.Items = append(valuation.Items, *row)
	}

	sort.Slice(valuation.Items, func(i, j int) bool {
		a, b := valuation.Items[i], valuation.Items[j]
		if a.TotalCents != b.TotalCents {
			return a.TotalCents > b.TotalCents
		}
		if a.AppID != b.AppID {
			return a.AppID < b.AppID
		}
		return a.MarketHashName < b.MarketHashName
	})
	return valuation
}
