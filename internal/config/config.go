// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration. It is built once at process
// start and passed into components; components never read the environment
// themselves.
type Config struct {
	ProxyAPIKey  string
	ProxyBaseURL string

	StorageURL string
	StorageKey string
	Bucket     string

	CompanyLinkID string
	CompanyURL    string
	Platform      string

	DataDir  string
	LogLevel string

	FeedPageSize int
	FeedPageCap  int
	FeedPace     time.Duration

	EnrichBatch int
	EnrichPace  time.Duration

	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables.
// The storage mirror is optional: leaving SUPABASE_URL empty disables uploads.
func Load() (*Config, error) {
	apiKey := os.Getenv("SCRAPINGDOG_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SCRAPINGDOG_API_KEY is required")
	}

	linkID := os.Getenv("COMPANY_LINKID")
	if linkID == "" {
		return nil, fmt.Errorf("COMPANY_LINKID is required")
	}

	companyURL := os.Getenv("COMPANY_URL")
	if companyURL == "" {
		companyURL = "https://www.linkedin.com/company/" + linkID
	}

	storageURL := strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	storageKey := os.Getenv("SUPABASE_KEY")
	if storageURL != "" && storageKey == "" {
		return nil, fmt.Errorf("SUPABASE_KEY is required when SUPABASE_URL is set")
	}

	cfg := &Config{
		ProxyAPIKey:   apiKey,
		ProxyBaseURL:  envString("PROXY_BASE_URL", "https://api.scrapingdog.com"),
		StorageURL:    storageURL,
		StorageKey:    storageKey,
		Bucket:        envString("BUCKET_NAME", "csv-files"),
		CompanyLinkID: linkID,
		CompanyURL:    companyURL,
		Platform:      envString("PLATFORM", "linkedin"),
		DataDir:       envString("DATA_DIR", "./data"),
		LogLevel:      envString("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.FeedPageSize, err = envInt("FEED_PAGE_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.FeedPageCap, err = envInt("FEED_MAX_PAGES", 10); err != nil {
		return nil, err
	}
	if cfg.FeedPace, err = envSeconds("FEED_PACE_SEC", 1); err != nil {
		return nil, err
	}
	if cfg.EnrichBatch, err = envInt("ENRICH_BATCH", 20); err != nil {
		return nil, err
	}
	if cfg.EnrichPace, err = envSeconds("ENRICH_PACE_SEC", 2); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envSeconds("HTTP_TIMEOUT_SEC", 60); err != nil {
		return nil, err
	}

	if cfg.FeedPageSize <= 0 {
		return nil, fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	if cfg.FeedPageCap <= 0 {
		return nil, fmt.Errorf("FEED_MAX_PAGES must be positive")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envSeconds(key string, def int) (time.Duration, error) {
	n, err := envInt(key, def)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return time.Duration(n) * time.Second, nil
}
