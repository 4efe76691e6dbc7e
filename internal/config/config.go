// Package config defines process configuration for the analysis service
// and the batch CLI. Values layer defaults, an optional YAML file, and
// UVOM_-prefixed environment variables.
package config

import "time"

// Config contains process configuration. Keys are flat; the matching
// environment variable is the key upper-cased with the UVOM_ prefix
// (e.g. UVOM_SCORECARD_API_KEY).
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is where CSV and report files are written.
	DataDir string `koanf:"data_dir"`

	// Source selects where raw records come from: "api" or "file".
	Source string `koanf:"source"`

	// InputFile is the CSV path read when Source is "file".
	InputFile string `koanf:"input_file"`

	// Scorecard upstream settings.
	ScorecardBaseURL        string  `koanf:"scorecard_base_url"`
	ScorecardAPIKey         string  `koanf:"scorecard_api_key"`
	ScorecardPerPage        int     `koanf:"scorecard_per_page"`
	ScorecardMaxPages       int     `koanf:"scorecard_max_pages"` // 0 = fetch until exhausted
	ScorecardMinEnrollment  int     `koanf:"scorecard_min_enrollment"`
	ScorecardRequestsPerSec float64 `koanf:"scorecard_requests_per_sec"`
	ScorecardTimeoutSec     int     `koanf:"scorecard_timeout_sec"`

	// Scoring parameters. CategoryWeights covers the four quality
	// categories; IndicatorWeights overrides individual intra-category
	// weights by indicator key and may be left empty.
	CategoryWeights  map[string]float64 `koanf:"category_weights"`
	IndicatorWeights map[string]float64 `koanf:"indicator_weights"`
	MinIndicators    int                `koanf:"min_indicators"`
	TieBreak         string             `koanf:"tie_break"` // id | name

	// Sweet-spot percentiles: quality cutoff by rank and price cutoff.
	SweetSpotQualityPercentile float64 `koanf:"sweet_spot_quality_percentile"`
	SweetSpotPricePercentile   float64 `koanf:"sweet_spot_price_percentile"`

	// Value score split between quality percentile and price affordability.
	ValueQualityWeight float64 `koanf:"value_quality_weight"`
	ValuePriceWeight   float64 `koanf:"value_price_weight"`

	// Single foreign-currency conversion applied to file-sourced rows
	// whose currency column matches CurrencyCode.
	CurrencyCode    string  `koanf:"currency_code"`
	CurrencyRateUSD float64 `koanf:"currency_rate_usd"`

	// HTTP serving knobs.
	CacheTTLSec     int      `koanf:"cache_ttl_sec"`
	RateLimitPerMin int      `koanf:"rate_limit_per_min"`
	RateLimitBurst  int      `koanf:"rate_limit_burst"`
	CORSOrigins     []string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":8080",
		DataDir:  "./data",
		Source:   "api",

		ScorecardBaseURL:        "https://api.data.gov/ed/collegescorecard/v1",
		ScorecardPerPage:        100,
		ScorecardMaxPages:       0,
		ScorecardMinEnrollment:  1000,
		ScorecardRequestsPerSec: 2,
		ScorecardTimeoutSec:     30,

		CategoryWeights: map[string]float64{
			"selectivity":     0.30,
			"outcomes":        0.40,
			"student_quality": 0.20,
			"financial":       0.10,
		},
		IndicatorWeights: map[string]float64{},
		MinIndicators:    5,
		TieBreak:         "id",

		SweetSpotQualityPercentile: 0.25,
		SweetSpotPricePercentile:   0.50,

		ValueQualityWeight: 0.7,
		ValuePriceWeight:   0.3,

		CurrencyCode:    "GBP",
		CurrencyRateUSD: 1.27,

		CacheTTLSec:     300,
		RateLimitPerMin: 60,
		RateLimitBurst:  10,
		CORSOrigins:     []string{"*"},
	}
}

// ScorecardTimeout returns the upstream HTTP timeout as a duration.
func (c *Config) ScorecardTimeout() time.Duration {
	return time.Duration(c.ScorecardTimeoutSec) * time.Second
}

// CacheTTL returns the response cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
