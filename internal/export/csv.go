// Package export reads institution datasets from CSV and writes analysis
// results out as CSV files and JSON reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
)

// rankingsHeader is the column layout of the complete analysis table.
// Sub-score cells are blank when the category is undefined for the row;
// blank and zero mean different things.
var rankingsHeader = []string{
	"rank", "id", "name", "state", "city", "enrollment", "price",
	"overall_score",
	"selectivity_score", "outcomes_score", "student_quality_score", "financial_score",
	"indicators_present", "sweet_spot",
	"value_rank", "value_score", "quality_percentile", "price_affordability",
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatSubScore(subs map[string]float64, category string) string {
	v, ok := subs[category]
	if !ok {
		return ""
	}
	return formatScore(v)
}

func rowRecord(row analysis.Row) []string {
	return []string{
		strconv.Itoa(row.Rank),
		strconv.FormatInt(row.ID, 10),
		row.Name,
		row.State,
		row.City,
		strconv.Itoa(row.Enrollment),
		formatScore(row.Price),
		formatScore(row.Overall),
		formatSubScore(row.SubScores, analysis.CategorySelectivity),
		formatSubScore(row.SubScores, analysis.CategoryOutcomes),
		formatSubScore(row.SubScores, analysis.CategoryStudentQuality),
		formatSubScore(row.SubScores, analysis.CategoryFinancial),
		strconv.Itoa(row.IndicatorsPresent),
		strconv.FormatBool(row.SweetSpot),
		strconv.Itoa(row.ValueRank),
		formatScore(row.ValueScore),
		formatScore(row.QualityPercentile),
		formatScore(row.PriceAffordability),
	}
}

// WriteRankings streams the complete analysis table as CSV, ordered by
// quality rank.
func WriteRankings(w io.Writer, result *analysis.Result) error {
	return writeRows(w, result.Rows)
}

// WriteSweetSpots streams only the flagged rows, ordered by quality rank.
func WriteSweetSpots(w io.Writer, result *analysis.Result) error {
	return writeRows(w, result.SweetSpotRows())
}

// WriteBestValue streams all rows reordered by value rank.
func WriteBestValue(w io.Writer, result *analysis.Result) error {
	return writeRows(w, result.ByValueRank())
}

func writeRows(w io.Writer, rows []analysis.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rankingsHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(rowRecord(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRankingsFile writes the complete table to dir/complete_analysis.csv.
func WriteRankingsFile(dir string, result *analysis.Result) (string, error) {
	return writeFile(dir, "complete_analysis.csv", result, WriteRankings)
}

// WriteSweetSpotsFile writes the flagged subset to
// dir/sweet_spot_universities.csv.
func WriteSweetSpotsFile(dir string, result *analysis.Result) (string, error) {
	return writeFile(dir, "sweet_spot_universities.csv", result, WriteSweetSpots)
}

// WriteBestValueFile writes the value ordering to
// dir/best_value_universities.csv.
func WriteBestValueFile(dir string, result *analysis.Result) (string, error) {
	return writeFile(dir, "best_value_universities.csv", result, WriteBestValue)
}

func writeFile(dir, name string, result *analysis.Result, write func(io.Writer, *analysis.Result) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}

	if err := write(f, result); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
