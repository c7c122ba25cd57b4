package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/pricing"
)

// Config is read once at startup and not modified afterwards.
type Config struct {
	EbayAppID     string
	Marketplace   ebay.Marketplace
	Provider      string
	Endpoint      string
	RatePerMinute int
	HTTPTimeout   time.Duration

	Pricing pricing.Config

	Port          string
	WatchlistPath string
	HistoryPath   string
	WatchSchedule string
	WatchWorkers  int
	LogLevel      slog.Level
}

// Load reads configuration from the environment. Values in envFiles (or .env
// when none are given) fill variables that are not already set; a missing
// default .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	marketplaceID := getEnv("EBAY_MARKETPLACE", ebay.DefaultMarketplace)
	marketplace, ok := ebay.LookupMarketplace(marketplaceID)
	if !ok {
		return nil, fmt.Errorf("unknown eBay marketplace %q", marketplaceID)
	}

	cfg := &Config{
		EbayAppID:     strings.TrimSpace(os.Getenv("EBAY_APP_ID")),
		Marketplace:   marketplace,
		Provider:      strings.ToLower(getEnv("EBAY_PROVIDER", ebay.ProviderFinding)),
		Endpoint:      os.Getenv("EBAY_ENDPOINT"),
		Port:          getEnv("PORT", "8080"),
		WatchlistPath: getEnv("WATCHLIST_PATH", "watchlist.yaml"),
		HistoryPath:   getEnv("HISTORY_PATH", "data/price_history.json"),
		WatchSchedule: getEnv("WATCH_SCHEDULE", "@every 6h"),
		Pricing:       pricing.DefaultConfig(),
	}
	cfg.Pricing.CategoryID = os.Getenv("EBAY_CATEGORY_ID")

	var err error
	if cfg.RatePerMinute, err = getEnvInt("EBAY_RATE_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.WatchWorkers, err = getEnvInt("WATCH_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Pricing.MinPrice, err = getEnvFloat("PRICE_MIN", cfg.Pricing.MinPrice); err != nil {
		return nil, err
	}
	if cfg.Pricing.MaxPrice, err = getEnvFloat("PRICE_MAX", cfg.Pricing.MaxPrice); err != nil {
		return nil, err
	}
	if cfg.Pricing.MaxResults, err = getEnvInt("PRICE_MAX_RESULTS", cfg.Pricing.MaxResults); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Provider != ebay.ProviderFinding && c.Provider != ebay.ProviderScrape {
		return fmt.Errorf("EBAY_PROVIDER must be %q or %q, got %q", ebay.ProviderFinding, ebay.ProviderScrape, c.Provider)
	}
	if c.WatchWorkers < 1 {
		return fmt.Errorf("WATCH_WORKERS must be at least 1, got %d", c.WatchWorkers)
	}
	if c.Pricing.MinPrice < 0 || c.Pricing.MaxPrice <= 0 || c.Pricing.MinPrice > c.Pricing.MaxPrice {
		return fmt.Errorf("invalid price bounds %.2f..%.2f", c.Pricing.MinPrice, c.Pricing.MaxPrice)
	}
	if c.Pricing.MaxResults <= 0 || c.Pricing.MaxResults > ebay.MaxResultsLimit {
		return fmt.Errorf("PRICE_MAX_RESULTS must be between 1 and %d", ebay.MaxResultsLimit)
	}
	return nil
}

// Currency is the marketplace's currency, used for price filters and stats.
func (c *Config) Currency() string {
	return c.Marketplace.Currency
}

func (c *Config) EbayConfig() ebay.Config {
	return ebay.Config{
		AppID:         c.EbayAppID,
		Marketplace:   c.Marketplace,
		Endpoint:      c.Endpoint,
		Timeout:       c.HTTPTimeout,
		RatePerMinute: c.RatePerMinute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
