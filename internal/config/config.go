// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Output  OutputConfig  `mapstructure:"output"`
	Status  StatusConfig  `mapstructure:"status"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SearchConfig identifies the search endpoint and the fixed query.
type SearchConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Term          string `mapstructure:"term"`
	Language      string `mapstructure:"language"`
	DocTypeFilter string `mapstructure:"doc_type_filter"`
	StartYear     int    `mapstructure:"start_year"`
}

// HTTPConfig configures the HTTP client and its status-code retry layer.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
	BackoffFactor  float64 `mapstructure:"backoff_factor"`
	RetryStatuses  []int   `mapstructure:"retry_statuses"`
	UserAgent      string  `mapstructure:"user_agent"`
	AcceptLanguage string  `mapstructure:"accept_language"`
	Accept         string  `mapstructure:"accept"`
}

// FetchConfig governs the application-level per-year retry loop and the
// politeness delay between years.
type FetchConfig struct {
	MaxAttempts          int     `mapstructure:"max_attempts"`
	PolitenessMinSeconds float64 `mapstructure:"politeness_min_seconds"`
	PolitenessMaxSeconds float64 `mapstructure:"politeness_max_seconds"`
}

// OutputConfig sets destinations for the CSV and the chart image.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	CSVPrefix   string `mapstructure:"csv_prefix"`
	ChartFile   string `mapstructure:"chart_file"`
	ChartDPI    int    `mapstructure:"chart_dpi"`
	Attribution string `mapstructure:"attribution"`
}

// StatusConfig controls the optional health/metrics endpoint served while a
// run is in flight.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.base_url", "https://scholar.google.com/scholar")
	v.SetDefault("search.term", "OpenFOAM")
	v.SetDefault("search.language", "en")
	v.SetDefault("search.doc_type_filter", "0,5")
	v.SetDefault("search.start_year", 2005)

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.backoff_factor", 1.2)
	v.SetDefault("http.retry_statuses", []int{429, 500, 502, 503, 504})
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
			"AppleWebKit/537.36 (KHTML, like Gecko) "+
			"Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("http.accept_language", "en-US,en;q=0.9")
	v.SetDefault("http.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.politeness_min_seconds", 2.0)
	v.SetDefault("fetch.politeness_max_seconds", 4.0)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.csv_prefix", "openfoam_scholar_counts")
	v.SetDefault("output.chart_file", "openfoam_trend.png")
	v.SetDefault("output.chart_dpi", 200)
	v.SetDefault("output.attribution", "Plot provided by Johan Roenby, STROMNING")

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.port", 9090)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Search.BaseURL); err != nil {
		return fmt.Errorf("search.base_url is not a valid URL: %w", err)
	}
	if strings.TrimSpace(c.Search.Term) == "" {
		return fmt.Errorf("search.term must be set")
	}
	if c.Search.StartYear < 1900 {
		return fmt.Errorf("search.start_year must be >= 1900")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffFactor <= 0 {
		return fmt.Errorf("http.backoff_factor must be > 0")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent must be set")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.PolitenessMinSeconds < 0 {
		return fmt.Errorf("fetch.politeness_min_seconds must be >= 0")
	}
	if c.Fetch.PolitenessMaxSeconds < c.Fetch.PolitenessMinSeconds {
		return fmt.Errorf("fetch.politeness_max_seconds must be >= fetch.politeness_min_seconds")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Output.CSVPrefix == "" {
		return fmt.Errorf("output.csv_prefix must be set")
	}
	if c.Output.ChartFile == "" {
		return fmt.Errorf("output.chart_file must be set")
	}
	if c.Output.ChartDPI <= 0 {
		return fmt.Errorf("output.chart_dpi must be > 0")
	}
	if c.Status.Enabled && c.Status.Port <= 0 {
		return fmt.Errorf("status.port must be > 0 when status is enabled")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestHeaders returns the fixed browser-like header set attached to every
// search request.
func (c Config) RequestHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      c.HTTP.UserAgent,
		"Accept-Language": c.HTTP.AcceptLanguage,
		"Accept":          c.HTTP.Accept,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}
