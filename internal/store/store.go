package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"steam-sentinel/internal/config"
	"steam-sentinel/internal/models"

	"gorm.io/gorm"
)

// PersistenceError wraps a database failure so callers can tell a failed
// commit apart from transport or parse problems.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CycleResult is everything a completed polling cycle produced. The store
// persists it in a single transaction and only then publishes the derived
// views, so readers never observe a half-applied cycle.
type CycleResult struct {
	TakenAt         time.Time
	Snapshots       []*models.InventorySnapshot
	Events          []models.InventoryEvent
	Samples         []models.MarketSample
	Estimates       map[string]models.PriceEstimate
	Recommendations map[string]models.Recommendation
	Valuation       models.PortfolioValuation
}

// Store is the single shared mutable resource between the monitor and the
// dashboard. The monitor is its only writer; the HTTP handlers read the
// in-memory views under a read lock.
type Store struct {
	db *gorm.DB

	eventCap int
	valueCap int

	mu              sync.RWMutex
	latestSnapshots map[int]*models.InventorySnapshot
	estimates       map[string]models.PriceEstimate
	recommendations map[string]models.Recommendation
	valuation       models.PortfolioValuation
	hasValuation    bool
}

func New(db *gorm.DB, cfg *config.Config) *Store {
	return &Store{
		db:              db,
		eventCap:        cfg.EventHistoryCap,
		valueCap:        cfg.ValueHistoryCap,
		latestSnapshots: make(map[int]*models.InventorySnapshot),
		estimates:       make(map[string]models.PriceEstimate),
		recommendations: make(map[string]models.Recommendation),
	}
}

// Load restores the latest committed snapshot per game so the first cycle
// after a restart diffs against real state instead of reporting the whole
// inventory as newly added.
func (s *Store) Load(games []config.GameConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, game := range games {
		var snap models.InventorySnapshot
		err := s.db.Preload("Items").
			Where("app_id = ?", game.AppID).
			Order("taken_at DESC").
			First(&snap).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return &PersistenceError{Op: fmt.Sprintf("load snapshot app=%d", game.AppID), Err: err}
		}
		s.latestSnapshots[game.AppID] = &snap
	}

	var point models.ValuationPoint
	err := s.db.Order("taken_at DESC").First(&point).Error
	if err == nil {
		s.valuation = models.PortfolioValuation{TakenAt: point.TakenAt, TotalCents: point.TotalCents}
		s.hasValuation = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return &PersistenceError{Op: "load valuation point", Err: err}
	}
	return nil
}

// SampleWindow returns the most recent samples for one item, oldest first,
// so the estimator can rebuild its rolling window after a restart.
func (s *Store) SampleWindow(appID int, marketHashName string, limit int) ([]models.MarketSample, error) {
	var samples []models.MarketSample
	err := s.db.
		Where("app_id = ? AND market_hash_name = ?", appID, marketHashName).
		Order("sampled_at DESC").
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, &PersistenceError{Op: "load sample window", Err: err}
	}
	// reverse to chronological order
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// Commit persists a completed cycle atomically and then swaps the in-memory
// views. A failed transaction leaves both the database and the published
// views at the previous cycle.
func (s *Store) Commit(result *CycleResult) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, snap := range result.Snapshots {
			if err := tx.Create(snap).Error; err != nil {
				return fmt.Errorf("create snapshot app=%d: %w", snap.AppID, err)
			}
		}
		if len(result.Events) > 0 {
			if err := tx.Create(&result.Events).Error; err != nil {
				return fmt.Errorf("create events: %w", err)
			}
		}
		if len(result.Samples) > 0 {
			if err := tx.Create(&result.Samples).Error; err != nil {
				return fmt.Errorf("create samples: %w", err)
			}
		}
		point := models.ValuationPoint{TakenAt: result.Valuation.TakenAt, TotalCents: result.Valuation.TotalCents}
		if err := tx.Create(&point).Error; err != nil {
			return fmt.Errorf("create valuation point: %w", err)
		}
		if err := pruneTable(tx, "inventory_events", s.eventCap); err != nil {
			return err
		}
		if err := pruneTable(tx, "valuation_points", s.valueCap); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "commit cycle", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range result.Snapshots {
		s.latestSnapshots[snap.AppID] = snap
	}
	for name, est := range result.Estimates {
		s.estimates[name] = est
	}
	for name, rec := range result.Recommendations {
		s.recommendations[name] = rec
	}
	s.valuation = result.Valuation
	s.hasValuation = true
	return nil
}

// pruneTable deletes the oldest rows beyond keep. Both capped tables are
// append-only, so ids order the same way as time.
func pruneTable(tx *gorm.DB, table string, keep int) error {
	if keep <= 0 {
		return nil
	}
	var cutoff int64
	err := tx.Table(table).
		Select("id").
		Order("id DESC").
		Limit(1).
		Offset(keep - 1).
		Scan(&cutoff).Error
	if err != nil {
		return fmt.Errorf("prune %s: %w", table, err)
	}
	if cutoff == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM "+table+" WHERE id < ?", cutoff).Error; err != nil {
		return fmt.Errorf("prune %s: %w", table, err)
	}
	return nil
}

// LatestSnapshot returns the last committed snapshot for a game, or nil if
// none has been committed yet.
func (s *Store) LatestSnapshot(appID int) *models.InventorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestSnapshots[appID]
}

func (s *Store) Estimates() map[string]models.PriceEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.PriceEstimate, len(s.estimates))
	for name, est := range s.estimates {
		out[name] = est
	}
	return out
}

func (s *Store) Recommendations() map[string]models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Recommendation, len(s.recommendations))
	for name, rec := range s.recommendations {
		out[name] = rec
	}
	return out
}

// Valuation returns the latest portfolio valuation. ok is false until the
// first cycle commits.
func (s *Store) Valuation() (models.PortfolioValuation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuation, s.hasValuation
}

// RecentEvents returns the newest inventory events, newest first.
func (s *Store) RecentEvents(limit int) ([]models.InventoryEvent, error) {
	var events []models.InventoryEvent
	err := s.db.Order("id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, &PersistenceError{Op: "load events", Err: err}
	}
	return events, nil
}

// ValueHistory returns the valuation series, oldest first.
func (s *Store) ValueHistory(limit int) ([]models.ValuationPoint, error) {
	var points []models.ValuationPoint
	err := s.db.Order("taken_at DESC").Limit(limit).Find(&points).Error
	if err != nil {
		return nil, &PersistenceError{Op: "load value history", Err: err}
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}
