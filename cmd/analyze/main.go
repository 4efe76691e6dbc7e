// Command analyze runs the full pipeline once and writes the result
// files into the configured data directory.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/config"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/export"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/scorecard"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/service"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(appLogger.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	slog.Info("Starting one-shot analysis", "source", cfg.Source, "data_dir", cfg.DataDir)

	records, err := buildSource(cfg, appLogger.Logger).FetchInstitutions(ctx)
	if err != nil {
		return err
	}

	pipeline := analysis.NewPipeline(pipelineOptions(cfg), appLogger.Logger)
	result, err := pipeline.Run(records)
	if err != nil {
		return err
	}

	writers := []func(string, *analysis.Result) (string, error){
		export.WriteRankingsFile,
		export.WriteSweetSpotsFile,
		export.WriteBestValueFile,
		export.WriteReportFile,
	}
	paths := make([]string, 0, len(writers))
	for _, write := range writers {
		path, err := write(cfg.DataDir, result)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	slog.Info("Analysis complete",
		"run_id", result.RunID,
		"records_received", result.RecordsReceived,
		"institutions_ranked", len(result.Rows),
		"sweet_spots", result.Summary.SweetSpotCount,
		"quality_cutoff_rank", result.Thresholds.QualityCutoffRank,
		"price_cutoff", result.Thresholds.PriceCutoff,
		"files", paths,
	)
	return nil
}

// buildSource selects where raw institution records come from, matching
// the server's selection.
func buildSource(cfg *config.Config, log *slog.Logger) service.Source {
	if cfg.Source == "file" {
		path := cfg.InputFile
		conv := export.CurrencyConversion{Code: cfg.CurrencyCode, RateUSD: cfg.CurrencyRateUSD}
		return service.SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
			return export.ReadInstitutionsFile(path, conv, log)
		})
	}

	if cfg.ScorecardAPIKey == "" {
		log.Warn("No Scorecard API key configured, upstream requests will likely be rejected")
	}

	return scorecard.NewClient(scorecard.Config{
		BaseURL:        cfg.ScorecardBaseURL,
		APIKey:         cfg.ScorecardAPIKey,
		PerPage:        cfg.ScorecardPerPage,
		MaxPages:       cfg.ScorecardMaxPages,
		MinEnrollment:  cfg.ScorecardMinEnrollment,
		RequestsPerSec: cfg.ScorecardRequestsPerSec,
		Timeout:        cfg.ScorecardTimeout(),
	}, log)
}

// pipelineOptions maps process configuration onto scoring options.
func pipelineOptions(cfg *config.Config) analysis.Options {
	opts := analysis.DefaultOptions()
	opts.CategoryWeights = cfg.CategoryWeights
	opts.IndicatorWeights = cfg.IndicatorWeights
	opts.MinIndicators = cfg.MinIndicators
	opts.TieBreak = cfg.TieBreak
	opts.QualityPercentile = cfg.SweetSpotQualityPercentile
	opts.PricePercentile = cfg.SweetSpotPricePercentile
	opts.ValueQualityWeight = cfg.ValueQualityWeight
	opts.ValuePriceWeight = cfg.ValuePriceWeight
	return opts
}
