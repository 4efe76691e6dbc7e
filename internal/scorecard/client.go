// Package scorecard fetches institution records from the US Department of
// Education College Scorecard API.
package scorecard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/metrics"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

// School and cost fields requested alongside the indicator fields.
const (
	fieldID         = "id"
	fieldName       = "school.name"
	fieldState      = "school.state"
	fieldCity       = "school.city"
	fieldEnrollment = "latest.student.size"
	fieldTuitionOut = "latest.cost.tuition.out_of_state"
	fieldTuitionIn  = "latest.cost.tuition.in_state"
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL       string
	APIKey        string
	PerPage       int
	MaxPages      int // 0 fetches until the API reports no more results
	MinEnrollment int
	// RequestsPerSec throttles outgoing calls to stay inside the API's
	// courtesy limits.
	RequestsPerSec float64
	Timeout        time.Duration
}

// Client pages through the Scorecard /schools endpoint. Requests are rate
// limited and retried with backoff on transient failures.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	log        *slog.Logger
}

// NewClient creates a Scorecard client.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	retry := resilience.SlowRetryPolicy.Config
	retry.RetryableErrors = resilience.DefaultRetryConfig().RetryableErrors

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		retry:      retry,
		log:        log,
	}
}

// page mirrors the API envelope: paging metadata plus flat dotted-key
// result maps.
type page struct {
	Metadata struct {
		Total   int `json:"total"`
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
	} `json:"metadata"`
	Results []map[string]any `json:"results"`
}

// FetchInstitutions pages through every operating four-year school above
// the enrollment floor and returns the parsed records. Records missing a
// name or any usable tuition figure are dropped and counted; indicator
// fields stay optional.
func (c *Client) FetchInstitutions(ctx context.Context) ([]types.Institution, error) {
	var out []types.Institution

	for pageNum := 0; ; pageNum++ {
		if c.cfg.MaxPages > 0 && pageNum >= c.cfg.MaxPages {
			c.log.Info("stopping at configured page cap", "pages", pageNum)
			break
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewTimeoutError("rate limiter wait aborted", err)
		}

		pg, err := c.fetchPage(ctx, pageNum)
		if err != nil {
			metrics.RecordFetchError()
			return nil, err
		}

		metrics.RecordPageFetched()
		metrics.RecordRecordsFetched(len(pg.Results))

		for _, raw := range pg.Results {
			inst, reason := parseInstitution(raw)
			if reason != "" {
				metrics.RecordRecordDropped(reason)
				c.log.Debug("skipping unusable record", "reason", reason, "id", raw[fieldID])
				continue
			}
			out = append(out, inst)
		}

		c.log.Debug("fetched page",
			"page", pageNum,
			"results", len(pg.Results),
			"total", pg.Metadata.Total,
			"kept_so_far", len(out),
		)

		if len(pg.Results) == 0 {
			break
		}
		if pg.Metadata.Total > 0 && (pageNum+1)*c.cfg.PerPage >= pg.Metadata.Total {
			break
		}
	}

	c.log.Info("scorecard fetch complete", "institutions", len(out))
	return out, nil
}

// fetchPage issues one GET /schools request with retries.
func (c *Client) fetchPage(ctx context.Context, pageNum int) (*page, error) {
	reqURL := c.buildURL(pageNum)

	resp, err := resilience.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "uni-value-o-meter/1.0")
		return c.httpClient.Do(req)
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, errors.NewExternalAPIError("college scorecard", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.NewRateLimitError(resp.Header.Get("Retry-After"))
		}
		return nil, errors.NewExternalAPIError("college scorecard",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var pg page
	if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
		return nil, errors.NewExternalAPIError("college scorecard",
			fmt.Errorf("decoding page %d: %w", pageNum, err))
	}
	return &pg, nil
}

// buildURL assembles the /schools query: field list, paging, and the
// degree-granting, operating, enrollment-floor filters.
func (c *Client) buildURL(pageNum int) string {
	fields := []string{
		fieldID, fieldName, fieldState, fieldCity, fieldEnrollment,
		fieldTuitionOut, fieldTuitionIn,
	}
	fields = append(fields, analysis.IndicatorFields()...)

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("fields", strings.Join(fields, ","))
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(pageNum))
	q.Set("school.degrees_awarded.predominant", "3,4")
	q.Set("school.operating", "1")
	if c.cfg.MinEnrollment > 0 {
		q.Set("latest.student.size__range", fmt.Sprintf("%d..", c.cfg.MinEnrollment))
	}

	return strings.TrimRight(c.cfg.BaseURL, "/") + "/schools?" + q.Encode()
}

// parseInstitution converts one flat result map. The second return is a
// non-empty drop reason when the record is unusable.
func parseInstitution(raw map[string]any) (types.Institution, string) {
	id, ok := numField(raw, fieldID)
	if !ok {
		return types.Institution{}, "missing_id"
	}

	name := strField(raw, fieldName)
	if name == "" {
		return types.Institution{}, "missing_name"
	}

	// Sticker price: prefer out-of-state tuition (comparable across
	// states), fall back to in-state.
	price, ok := numField(raw, fieldTuitionOut)
	if !ok || price <= 0 {
		price, ok = numField(raw, fieldTuitionIn)
	}
	if !ok || price <= 0 {
		return types.Institution{}, "missing_price"
	}

	inst := types.Institution{
		ID:       int64(id),
		Name:     name,
		State:    strField(raw, fieldState),
		City:     strField(raw, fieldCity),
		Price:    price,
		Currency: "USD",
		Metrics:  make(map[string]float64, analysis.IndicatorCount),
	}
	if size, ok := numField(raw, fieldEnrollment); ok {
		inst.Enrollment = int(size)
	}

	for _, ind := range analysis.Indicators {
		if v, ok := numField(raw, ind.Field); ok {
			inst.Metrics[ind.Key] = v
		}
	}

	return inst, ""
}

func numField(raw map[string]any, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func strField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
