package spacetraveling

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "spacetraveling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD
	Locale      string `yaml:"locale"`      // Display locale (default "pt-BR")
	TimeZone    string `yaml:"time_zone"`   // Zone dates are shown in (default "America/Sao_Paulo")

	Addr string `yaml:"addr"` // Listen address (default ":3000")

	PrismicEndpoint    string `yaml:"prismic_endpoint"` // Required: e.g. https://repo.cdn.prismic.io/api/v2
	PrismicAccessToken string `yaml:"prismic_access_token"`

	PageSize          int           `yaml:"page_size"`          // Listing page size (default 2)
	Revalidate        time.Duration `yaml:"revalidate"`         // Post freshness window (default 30m)
	ListingRevalidate time.Duration `yaml:"listing_revalidate"` // Listing freshness window (default Revalidate)
	CacheSize         int           `yaml:"cache_size"`         // Max cached posts (default 1024)
	DisableFallback   bool          `yaml:"disable_fallback"`   // Block on unknown paths instead of showing a loading page
	SkipPrerender     bool          `yaml:"skip_prerender"`     // Do not generate pages at startup
	LoadMorePerMinute int           `yaml:"load_more_per_minute"`
	LookupsPerMinute  int           `yaml:"lookups_per_minute"` // Uncached post lookups per client IP (default 30)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.TimeZone == "" {
		c.TimeZone = "America/Sao_Paulo"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PageSize <= 0 {
		c.PageSize = 2
	}
	if c.Revalidate == 0 {
		c.Revalidate = 30 * time.Minute
	}
	if c.ListingRevalidate == 0 {
		c.ListingRevalidate = c.Revalidate
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1024
	}
	if c.LoadMorePerMinute <= 0 {
		c.LoadMorePerMinute = 60
	}
	if c.LookupsPerMinute <= 0 {
		c.LookupsPerMinute = 30
	}
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// overlays environment variables on top of it and fills in defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("spacetraveling: read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("spacetraveling: parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() {
	c.Name = EnvOr("SITE_NAME", c.Name)
	c.URL = EnvOr("SITE_URL", c.URL)
	c.Description = EnvOr("SITE_DESCRIPTION", c.Description)
	c.Author = EnvOr("SITE_AUTHOR", c.Author)
	c.Locale = EnvOr("SITE_LOCALE", c.Locale)
	c.TimeZone = EnvOr("SITE_TIMEZONE", c.TimeZone)
	c.Addr = EnvOr("ADDR", c.Addr)
	c.PrismicEndpoint = EnvOr("PRISMIC_ENDPOINT", c.PrismicEndpoint)
	c.PrismicAccessToken = EnvOr("PRISMIC_ACCESS_TOKEN", c.PrismicAccessToken)
	if v := os.Getenv("REVALIDATE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Revalidate = d
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithBackend replaces the Prismic client built from PrismicEndpoint.
func WithBackend(b Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithLogger sets the logger used outside request handling.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}
