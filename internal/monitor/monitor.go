package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"steam-sentinel/internal/analysis"
	"steam-sentinel/internal/config"
	"steam-sentinel/internal/inventory"
	"steam-sentinel/internal/market"
	"steam-sentinel/internal/models"
	"steam-sentinel/internal/session"
	"steam-sentinel/internal/store"

	"golang.org/x/sync/errgroup"
)

// State is the monitor's externally visible phase, surfaced on the status
// endpoint.
type State string

const (
	StateIdle           State = "idle"
	StatePolling        State = "polling"
	StateCommitting     State = "committing"
	StateAwaitingReauth State = "awaiting_reauth"
)

// Status is a point-in-time view of the monitor for the dashboard.
type Status struct {
	State           State     `json:"state"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	CyclesCompleted int64     `json:"cycles_completed"`
	ItemsTracked    int       `json:"items_tracked"`
	SkippedItems    int       `json:"skipped_items"`
	LastError       string    `json:"last_error,omitempty"`
}

// Transport is the subset of the Steam service the monitor drives.
type Transport interface {
	UseSession(sess *session.Session)
	FetchInventory(ctx context.Context, steamID64 string, appID, contextID int) ([]byte, error)
	FetchPriceOverview(ctx context.Context, appID, currency int, marketHashName string) ([]byte, error)
	FetchListingPage(ctx context.Context, appID int, marketHashName string) ([]byte, error)
}

// Store is the persistence surface the monitor writes through.
type Store interface {
	LatestSnapshot(appID int) *models.InventorySnapshot
	SampleWindow(appID int, marketHashName string, limit int) ([]models.MarketSample, error)
	Commit(result *store.CycleResult) error
}

// Notifier receives cycle results for live distribution, e.g. the websocket hub.
type Notifier interface {
	Notify(result *store.CycleResult)
}

// Monitor runs the poll/diff/sample/estimate/commit cycle. It is the only
// writer of the store; a single goroutine runs cycles back to back with no
// overlap.
type Monitor struct {
	cfg       *config.Config
	transport Transport
	sessions  session.Provider
	store     Store
	sampler   *market.Sampler
	estimator *analysis.Estimator
	analyzer  *analysis.Analyzer
	notifier  Notifier

	// windows holds the rolling sample window per market_hash_name, loaded
	// lazily from the store and extended only by committed cycles.
	windows map[string][]models.MarketSample

	mu     sync.RWMutex
	status Status
}

func New(cfg *config.Config, transport Transport, sessions session.Provider, st Store) *Monitor {
	return &Monitor{
		cfg:       cfg,
		transport: transport,
		sessions:  sessions,
		store:     st,
		sampler:   market.NewSampler(),
		estimator: analysis.NewEstimator(cfg.Window),
		analyzer:  analysis.NewAnalyzer(cfg.Window),
		windows:   make(map[string][]models.MarketSample),
		status:    Status{State: StateIdle},
	}
}

// SetNotifier wires a live-feed consumer. Must be called before Run.
func (m *Monitor) SetNotifier(n Notifier) { m.notifier = n }

// Status returns a copy of the current monitor status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.status.State = s
	m.mu.Unlock()
}

// Run executes one cycle immediately and then one per poll interval until
// the context is cancelled. Cycles never overlap.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[monitor] starting, poll interval %s, %d game(s)", m.cfg.PollInterval, len(m.cfg.Games))

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[monitor] stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	start := time.Now()

	result, skipped, err := m.cycle(ctx, start)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			m.status.State = StateAwaitingReauth
			m.status.LastError = err.Error()
			log.Printf("[monitor] session expired, suspending until cookies are refreshed")
			return
		}
		if ctx.Err() != nil {
			m.status.State = StateIdle
			return
		}
		m.status.State = StateIdle
		m.status.LastError = err.Error()
		log.Printf("[monitor] cycle failed: %v", err)
		return
	}

	m.status.State = StateIdle
	m.status.LastCycleAt = start
	m.status.CyclesCompleted++
	m.status.ItemsTracked = len(result.Estimates)
	m.status.SkippedItems = skipped
	m.status.LastError = ""
	log.Printf("[monitor] cycle done in %s: %d item(s) tracked, %d skipped, total %.2f",
		time.Since(start).Round(time.Millisecond), len(result.Estimates), skipped,
		float64(result.Valuation.TotalCents)/100)
}

// cycle performs one full pass. Any error before commit leaves the store and
// the in-memory windows untouched.
func (m *Monitor) cycle(ctx context.Context, takenAt time.Time) (*store.CycleResult, int, error) {
	m.setState(StatePolling)

	sess, err := m.sessions.Current()
	if err != nil {
		return nil, 0, err
	}
	m.transport.UseSession(sess)

	// Snapshot every configured game. A failed inventory fetch aborts the
	// whole cycle; committing a partial multi-game diff would fabricate
	// removal events for the game that failed.
	var (
		snapshots []*models.InventorySnapshot
		gameSnaps []analysis.GameSnapshot
		events    []models.InventoryEvent
	)
	for _, game := range m.cfg.Games {
		payload, err := m.transport.FetchInventory(ctx, m.cfg.SteamID64, game.AppID, game.ContextID)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch inventory %s: %w", game.Name, err)
		}
		snap, err := inventory.ParseSnapshot(game.AppID, game.ContextID, takenAt, payload)
		if err != nil {
			return nil, 0, fmt.Errorf("parse inventory %s: %w", game.Name, err)
		}
		prev := m.store.LatestSnapshot(game.AppID)
		for _, ev := range inventory.Reconcile(prev, snap) {
			ev.GameName = game.Name
			events = append(events, ev)
		}
		snapshots = append(snapshots, snap)
		gameSnaps = append(gameSnaps, analysis.GameSnapshot{GameName: game.Name, Snapshot: snap})
	}

	targets := sampleTargets(snapshots)
	samples, skipped := m.sampleAll(ctx, targets)
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	// Extend a scratch copy of each window; the real windows only advance
	// once the commit lands.
	newWindows := make(map[string][]models.MarketSample, len(targets))
	estimates := make(map[string]models.PriceEstimate, len(targets))
	turnovers := make(map[string]models.TurnoverEstimate, len(targets))
	for _, t := range targets {
		window, err := m.window(t.appID, t.name)
		if err != nil {
			return nil, 0, err
		}
		if s, ok := samples[t.name]; ok {
			window = append(window, s)
		}
		window = analysis.TrimWindow(window, m.cfg.Window, takenAt)
		newWindows[t.name] = window
		estimates[t.name] = m.estimator.Estimate(t.name, window, takenAt)
		turnovers[t.name] = m.analyzer.Analyze(t.name, window, takenAt)
	}

	held := heldQuantities(snapshots)
	recommendations := make(map[string]models.Recommendation, len(targets))
	for _, t := range targets {
		recommendations[t.name] = analysis.Recommend(estimates[t.name], turnovers[t.name], held[t.name], m.cfg.Thresholds)
	}

	valuation := analysis.Aggregate(takenAt, gameSnaps, estimates)
	priceEvents(events, estimates)

	result := &store.CycleResult{
		TakenAt:         takenAt,
		Snapshots:       snapshots,
		Events:          events,
		Samples:         collectSamples(samples),
		Estimates:       estimates,
		Recommendations: recommendations,
		Valuation:       valuation,
	}

	m.setState(StateCommitting)
	if err := m.store.Commit(result); err != nil {
		return nil, 0, err
	}
	for name, window := range newWindows {
		m.windows[name] = window
	}

	if m.notifier != nil {
		m.notifier.Notify(result)
	}
	return result, skipped, nil
}

type sampleTarget struct {
	appID int
	name  string
}

// sampleTargets collects the distinct marketable item types across all
// snapshots, in a stable order.
func sampleTargets(snapshots []*models.InventorySnapshot) []sampleTarget {
	seen := make(map[string]bool)
	var targets []sampleTarget
	for _, snap := range snapshots {
		for _, item := range snap.Items {
			if item.MarketHashName == "" || seen[item.MarketHashName] {
				continue
			}
			seen[item.MarketHashName] = true
			targets = append(targets, sampleTarget{appID: snap.AppID, name: item.MarketHashName})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })
	return targets
}

// sampleAll fetches one market sample per target with bounded concurrency.
// A failed item is skipped for this cycle; its previous estimate stands.
func (m *Monitor) sampleAll(ctx context.Context, targets []sampleTarget) (map[string]models.MarketSample, int) {
	var (
		mu      sync.Mutex
		samples = make(map[string]models.MarketSample, len(targets))
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.SampleWorkers)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			sample, err := m.sampleOne(gctx, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() == nil {
					log.Printf("[monitor] skipping %q this cycle: %v", t.name, err)
					skipped++
				}
				return nil
			}
			samples[t.name] = sample
			return nil
		})
	}
	_ = g.Wait()
	return samples, skipped
}

// sampleOne tries the price overview endpoint first and falls back to
// scraping the listing page when the overview is unusable.
func (m *Monitor) sampleOne(ctx context.Context, t sampleTarget) (models.MarketSample, error) {
	now := time.Now()

	payload, err := m.transport.FetchPriceOverview(ctx, t.appID, m.cfg.Currency, t.name)
	if err == nil {
		sample, serr := m.sampler.Sample(t.appID, t.name, now, payload)
		if serr == nil {
			return sample, nil
		}
		err = serr
	}

	page, perr := m.transport.FetchListingPage(ctx, t.appID, t.name)
	if perr != nil {
		return models.MarketSample{}, fmt.Errorf("overview: %v; listing page: %w", err, perr)
	}
	return m.sampler.Sample(t.appID, t.name, now, page)
}

// window returns the rolling window for an item, loading persisted samples
// on first encounter after a restart.
func (m *Monitor) window(appID int, name string) ([]models.MarketSample, error) {
	if w, ok := m.windows[name]; ok {
		return w, nil
	}
	w, err := m.store.SampleWindow(appID, name, m.cfg.Window.MaxSamples)
	if err != nil {
		return nil, err
	}
	m.windows[name] = w
	return w, nil
}

func heldQuantities(snapshots []*models.InventorySnapshot) map[string]int64 {
	held := make(map[string]int64)
	for _, snap := range snapshots {
		for _, item := range snap.Items {
			held[item.MarketHashName] += item.Quantity
		}
	}
	return held
}

// priceEvents annotates reconciler events with the current unit price so the
// event feed can show the value each change added or removed.
func priceEvents(events []models.InventoryEvent, estimates map[string]models.PriceEstimate) {
	for i := range events {
		est, ok := estimates[events[i].MarketHashName]
		if !ok || est.SampleCount < 1 {
			continue
		}
		events[i].UnitPriceCents = est.EstimatedCents
		events[i].AddCents = (events[i].NewQuantity - events[i].OldQuantity) * est.EstimatedCents
	}
}

func collectSamples(samples map[string]models.MarketSample) []models.MarketSample {
	out := make([]models.MarketSample, 0, len(samples))
	for _, s := range samples {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketHashName < out[j].MarketHashName })
	return out
}
