package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GameConfig identifies one tracked game inventory.
type GameConfig struct {
	AppID     int
	ContextID int
	Name      string
}

// Thresholds are the knobs of the recommendation engine. Passed into each
// component at construction so tests can run with distinct values.
type Thresholds struct {
	// ConfidenceFloor gates INSUFFICIENT_DATA: estimates below it are not
	// acted on.
	ConfidenceFloor float64
	// LiquidityFloor is the minimum trades/day before an item counts as
	// liquid enough to sell.
	LiquidityFloor float64
	// KeepQuantity is the held quantity at or below which we keep the item
	// regardless of market signals.
	KeepQuantity int64
	// UndercutMargin is the fraction shaved off the estimated price to price
	// competitively against the lowest listing.
	UndercutMargin float64
	// PriceFloorFrac bounds the undercut: never recommend below this fraction
	// of the estimated price.
	PriceFloorFrac float64
}

// Window bounds the rolling sample window used for estimation. Count and age
// compose; whichever yields fewer samples wins.
type Window struct {
	MaxSamples int
	MaxAge     time.Duration
	// StalenessCap scales turnover down when the newest sample is older than
	// this.
	StalenessCap time.Duration
}

// Config holds all configuration for the sentinel.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	SteamID64   string
	Games       []GameConfig
	Currency    int    // marketplace currency code, pass-through
	Language    string
	CookiesFile string

	PollInterval  time.Duration
	SampleWorkers int

	// Market fetch pacing
	MarketMinDelay   time.Duration
	MarketJitter     time.Duration
	MarketMaxRetries int

	Thresholds Thresholds
	Window     Window

	EventHistoryCap int
	ValueHistoryCap int
}

// Load reads configuration from environment variables with fallback to a
// .env file, then hardcoded defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", "root:password@tcp(127.0.0.1:3306)/steam_sentinel?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8181"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SteamID64:   getEnv("STEAM_ID64", ""),
		Currency:    getEnvInt("CURRENCY", 3), // 3 = EUR
		Language:    getEnv("LANGUAGE", "english"),
		CookiesFile: getEnv("COOKIES_FILE", "cookies.txt"),

		PollInterval:  getEnvDuration("POLL_INTERVAL", 25*time.Minute),
		SampleWorkers: getEnvInt("SAMPLE_WORKERS", 3),

		MarketMinDelay:   getEnvDuration("MARKET_MIN_DELAY", 3500*time.Millisecond),
		MarketJitter:     getEnvDuration("MARKET_JITTER", 1500*time.Millisecond),
		MarketMaxRetries: getEnvInt("MARKET_MAX_RETRIES", 6),

		Thresholds: Thresholds{
			ConfidenceFloor: getEnvFloat("CONFIDENCE_FLOOR", 0.15),
			LiquidityFloor:  getEnvFloat("LIQUIDITY_FLOOR", 2.0),
			KeepQuantity:    int64(getEnvInt("KEEP_QUANTITY", 3)),
			UndercutMargin:  getEnvFloat("UNDERCUT_MARGIN", 0.02),
			PriceFloorFrac:  getEnvFloat("PRICE_FLOOR_FRAC", 0.8),
		},
		Window: Window{
			MaxSamples:   getEnvInt("WINDOW_MAX_SAMPLES", 10),
			MaxAge:       getEnvDuration("WINDOW_MAX_AGE", 48*time.Hour),
			StalenessCap: getEnvDuration("STALENESS_CAP", 2*time.Hour),
		},

		EventHistoryCap: getEnvInt("EVENT_HISTORY_CAP", 10000),
		ValueHistoryCap: getEnvInt("VALUE_HISTORY_CAP", 10000),
	}

	games, err := parseGames(getEnv("GAMES", "2923300:2:Banana,3419430:2:Bongo Cat"))
	if err != nil {
		return nil, err
	}
	cfg.Games = games

	if cfg.Thresholds.PriceFloorFrac <= 0 || cfg.Thresholds.PriceFloorFrac > 1 {
		return nil, fmt.Errorf("PRICE_FLOOR_FRAC must be in (0,1], got %v", cfg.Thresholds.PriceFloorFrac)
	}
	if cfg.SampleWorkers < 1 {
		cfg.SampleWorkers = 1
	}

	return cfg, nil
}

// parseGames parses "appid:contextid:name" triples separated by commas.
func parseGames(raw string) ([]GameConfig, error) {
	var games []GameConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid GAMES entry %q, want appid:contextid[:name]", entry)
		}
		appID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid appid in GAMES entry %q: %w", entry, err)
		}
		contextID, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid context id in GAMES entry %q: %w", entry, err)
		}
		name := strconv.Itoa(appID)
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			name = strings.TrimSpace(parts[2])
		}
		games = append(games, GameConfig{AppID: appID, ContextID: contextID, Name: name})
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("no games configured")
	}
	return games, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
