package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if UVOM_CONFIG is set
//  3. env (prefix UVOM_)
func Load() (*Config, error) {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	base := New()

	k := koanf.New(".")

	if path := os.Getenv("UVOM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.NewConfigurationError("failed to load config file", err)
		}
	}

	// Environment variables: UVOM_ADDR, UVOM_MIN_INDICATORS, ...
	// Map env keys like UVOM_MIN_INDICATORS -> min_indicators (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("UVOM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "uvom_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.NewConfigurationError("failed to load environment", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.NewConfigurationError("failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.NewValidationError("addr must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("log_level must be one of debug, info, warn, error", c.LogLevel)
	}
	switch c.Source {
	case "api", "file":
	default:
		return errors.NewValidationError("source must be api or file", c.Source)
	}
	if c.Source == "file" && c.InputFile == "" {
		return errors.NewValidationError("input_file is required when source is file")
	}
	if c.ScorecardPerPage <= 0 || c.ScorecardPerPage > 500 {
		return errors.NewValidationError("scorecard_per_page must be in (0, 500]", c.ScorecardPerPage)
	}
	if c.ScorecardRequestsPerSec <= 0 {
		return errors.NewValidationError("scorecard_requests_per_sec must be positive", c.ScorecardRequestsPerSec)
	}
	if c.MinIndicators < 1 || c.MinIndicators > 9 {
		return errors.NewValidationError("min_indicators must be in [1, 9]", c.MinIndicators)
	}
	switch c.TieBreak {
	case "id", "name":
	default:
		return errors.NewValidationError("tie_break must be id or name", c.TieBreak)
	}

	sum := 0.0
	for name, w := range c.CategoryWeights {
		switch name {
		case "selectivity", "outcomes", "student_quality", "financial":
		default:
			return errors.NewValidationError("unknown quality category", name)
		}
		if w < 0 {
			return errors.NewValidationError("category weight must not be negative", name)
		}
		sum += w
	}
	if sum <= 0 {
		return errors.NewValidationError("category weights must sum to a positive value")
	}
	for name, w := range c.IndicatorWeights {
		if w < 0 {
			return errors.NewValidationError("indicator weight must not be negative", name)
		}
	}

	if c.SweetSpotQualityPercentile <= 0 || c.SweetSpotQualityPercentile > 1 {
		return errors.NewValidationError("sweet_spot_quality_percentile must be in (0, 1]", c.SweetSpotQualityPercentile)
	}
	if c.SweetSpotPricePercentile <= 0 || c.SweetSpotPricePercentile > 1 {
		return errors.NewValidationError("sweet_spot_price_percentile must be in (0, 1]", c.SweetSpotPricePercentile)
	}
	if c.ValueQualityWeight < 0 || c.ValuePriceWeight < 0 || c.ValueQualityWeight+c.ValuePriceWeight <= 0 {
		return errors.NewValidationError("value weights must be non-negative and sum to a positive value")
	}
	if c.CurrencyRateUSD <= 0 {
		return errors.NewValidationError("currency_rate_usd must be positive", c.CurrencyRateUSD)
	}
	if c.CacheTTLSec < 0 || c.RateLimitPerMin <= 0 || c.RateLimitBurst <= 0 {
		return errors.NewValidationError("cache and rate limit settings must be positive")
	}
	return nil
}
