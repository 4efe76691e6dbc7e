package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/metrics"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

// CurrencyConversion converts prices quoted in one foreign currency to
// USD at a fixed rate. Rows in any other currency pass through unchanged.
type CurrencyConversion struct {
	Code    string
	RateUSD float64
}

// ReadInstitutions parses an institution dataset from CSV. The header row
// names the columns; id, name and price are required, everything else,
// indicator columns included, is optional. Unusable rows are skipped and
// counted, matching how the API client treats unusable records.
func ReadInstitutions(r io.Reader, conv CurrencyConversion, log *slog.Logger) ([]types.Institution, error) {
	if log == nil {
		log = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "name", "price"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("input is missing required column %q", required)
		}
	}

	var out []types.Institution
	line := 1
	for {
		line++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		cell := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		id, err := strconv.ParseInt(cell("id"), 10, 64)
		if err != nil {
			metrics.RecordRecordDropped("missing_id")
			log.Warn("skipping row with unusable id", "line", line, "id", cell("id"))
			continue
		}

		name := cell("name")
		if name == "" {
			metrics.RecordRecordDropped("missing_name")
			log.Warn("skipping row without a name", "line", line, "id", id)
			continue
		}

		price, err := strconv.ParseFloat(cell("price"), 64)
		if err != nil || price <= 0 {
			metrics.RecordRecordDropped("missing_price")
			log.Warn("skipping row without a usable price", "line", line, "id", id)
			continue
		}

		currency := strings.ToUpper(cell("currency"))
		if currency == "" {
			currency = "USD"
		}
		if conv.Code != "" && conv.RateUSD > 0 && strings.EqualFold(currency, conv.Code) {
			price *= conv.RateUSD
			currency = "USD"
		}

		inst := types.Institution{
			ID:       id,
			Name:     name,
			State:    cell("state"),
			City:     cell("city"),
			Price:    price,
			Currency: currency,
			Metrics:  make(map[string]float64, analysis.IndicatorCount),
		}
		if enrollment, err := strconv.Atoi(cell("enrollment")); err == nil {
			inst.Enrollment = enrollment
		}

		for _, key := range analysis.IndicatorKeys() {
			raw := cell(key)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Debug("ignoring non-numeric indicator cell",
					"line", line, "id", id, "indicator", key, "value", raw)
				continue
			}
			inst.Metrics[key] = v
		}

		out = append(out, inst)
	}

	log.Info("dataset loaded from csv", "institutions", len(out))
	return out, nil
}

// ReadInstitutionsFile reads a dataset from path.
func ReadInstitutionsFile(path string, conv CurrencyConversion, log *slog.Logger) ([]types.Institution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadInstitutions(f, conv, log)
}
