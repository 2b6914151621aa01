package models

import (
	"time"
)

// Verdict is the output of the recommendation engine for one item type.
type Verdict string

const (
	VerdictSell             Verdict = "SELL"
	VerdictHold             Verdict = "HOLD"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// InventoryEventType classifies a change between two inventory snapshots.
type InventoryEventType string

const (
	EventAdded           InventoryEventType = "added"
	EventRemoved         InventoryEventType = "removed"
	EventQuantityChanged InventoryEventType = "quantity_changed"
)

// InventorySnapshot is the full contents of one game inventory at a point in time.
// Snapshots are immutable once committed; a new poll produces a new snapshot.
type InventorySnapshot struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	AppID     int            `json:"appid" gorm:"index;not null"`
	ContextID int            `json:"context_id" gorm:"not null"`
	TakenAt   time.Time      `json:"taken_at" gorm:"index"`
	Items     []SnapshotItem `json:"items" gorm:"foreignKey:SnapshotID"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnapshotItem is one owned unit (or stack, for fungible items) inside a snapshot.
// AssetID identifies the unit for diffing; MarketHashName identifies the
// priced item type many assets can share.
type SnapshotItem struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	SnapshotID     uint   `json:"snapshot_id" gorm:"index;not null"`
	AssetID        string `json:"asset_id" gorm:"index;not null"`
	ClassID        string `json:"class_id"`
	InstanceID     string `json:"instance_id"`
	MarketHashName string `json:"market_hash_name" gorm:"index"`
	Name           string `json:"name"`
	Quantity       int64  `json:"quantity" gorm:"default:1"`
	Tradable       bool   `json:"tradable"`
	IconURL        string `json:"icon_url"`
}

// InventoryEvent records one detected inventory change. Derived by the
// reconciler and persisted as an audit log for the dashboard feed.
type InventoryEvent struct {
	ID             uint               `json:"id" gorm:"primaryKey"`
	AppID          int                `json:"appid" gorm:"index;not null"`
	GameName       string             `json:"game"`
	Type           InventoryEventType `json:"type" gorm:"index;not null"`
	AssetID        string             `json:"asset_id"`
	MarketHashName string             `json:"market_hash_name"`
	Name           string             `json:"name"`
	OldQuantity    int64              `json:"old_quantity"`
	NewQuantity    int64              `json:"new_quantity"`
	UnitPriceCents int64              `json:"unit_price_cents"`
	AddCents       int64              `json:"add_cents"`
	CreatedAt      time.Time          `json:"ts" gorm:"index"`
}

// MarketSample is one raw market observation for an item type. Append-only;
// the rolling estimation window is carved out of this history by sampled_at.
type MarketSample struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	AppID             int       `json:"appid" gorm:"index;not null"`
	MarketHashName    string    `json:"market_hash_name" gorm:"index;not null"`
	SampledAt         time.Time `json:"sampled_at" gorm:"index"`
	ListingPriceCents int64     `json:"listing_price_cents"`
	// VolumeHint is the marketplace's reported sales-per-day figure when the
	// payload carried one; nil when absent.
	VolumeHint    *int64    `json:"volume_hint,omitempty"`
	ListingsTotal int64     `json:"listings_total"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValuationPoint is one point of the total-account-value series the
// dashboard charts.
type ValuationPoint struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TakenAt    time.Time `json:"ts" gorm:"index"`
	TotalCents int64     `json:"total_cents"`
}

// PriceEstimate is the smoothed price for one item type, recomputed from the
// rolling sample window every cycle. Not persisted; the window is.
type PriceEstimate struct {
	MarketHashName string  `json:"market_hash_name"`
	EstimatedCents int64   `json:"estimated_price_cents"`
	Confidence     float64 `json:"confidence"`
	SampleCount    int     `json:"sample_count"`
	// Trend is the relative price change across the window, oldest to newest.
	Trend       float64   `json:"trend"`
	LastUpdated time.Time `json:"last_updated"`
}

// TurnoverEstimate approximates how frequently an item type trades.
type TurnoverEstimate struct {
	MarketHashName string  `json:"market_hash_name"`
	TradesPerDay   float64 `json:"trades_per_day"`
	// Staleness is the wall-clock age of the newest sample backing the
	// estimate. Old data caps the claimed liquidity downward.
	Staleness time.Duration `json:"staleness_ns"`
}

// Recommendation is the sell/hold verdict for one item type.
type Recommendation struct {
	MarketHashName   string  `json:"market_hash_name"`
	Verdict          Verdict `json:"verdict"`
	RecommendedCents int64   `json:"recommended_price_cents"`
	ReasonCode       string  `json:"reason_code"`
	TradesPerDay     float64 `json:"trades_per_day"`
	Confidence       float64 `json:"confidence"`
}

// PortfolioItem is the valuation of one item type within a portfolio.
type PortfolioItem struct {
	AppID          int    `json:"appid"`
	GameName       string `json:"game"`
	MarketHashName string `json:"market_hash_name"`
	Name           string `json:"name"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
	// Unpriced marks items with no usable estimate. They contribute zero to
	// the total but are never silently omitted.
	Unpriced bool `json:"unpriced"`
}

// PortfolioValuation is the derived account-wide valuation read by the dashboard.
type PortfolioValuation struct {
	TakenAt    time.Time       `json:"taken_at"`
	TotalCents int64           `json:"total_cents"`
	Items      []PortfolioItem `json:"items"`
}
