package scorecard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		PerPage:        2,
		MinEnrollment:  1000,
		RequestsPerSec: 1000, // no throttling in tests
		Timeout:        2 * time.Second,
	}
}

func schoolJSON(id int, name string, tuitionOut, tuitionIn any) map[string]any {
	m := map[string]any{
		"id":                  id,
		"school.name":         name,
		"school.state":        "CA",
		"school.city":         "Somewhere",
		"latest.student.size": 12000,
		"latest.admissions.sat_scores.average.overall": 1250,
		"latest.completion.completion_rate_4yr_100nt":  0.71,
	}
	if name == "" {
		delete(m, "school.name")
	}
	if tuitionOut != nil {
		m["latest.cost.tuition.out_of_state"] = tuitionOut
	}
	if tuitionIn != nil {
		m["latest.cost.tuition.in_state"] = tuitionIn
	}
	return m
}

func pageBody(total int, results ...map[string]any) []byte {
	body := map[string]any{
		"metadata": map[string]any{"total": total, "page": 0, "per_page": 2},
		"results":  results,
	}
	b, _ := json.Marshal(body)
	return b
}

func TestFetchInstitutionsPagesUntilExhausted(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pagesServed = append(pagesServed, q.Get("page"))

		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.Equal(t, "3,4", q.Get("school.degrees_awarded.predominant"))
		assert.Equal(t, "1", q.Get("school.operating"))
		assert.Equal(t, "1000..", q.Get("latest.student.size__range"))
		assert.Contains(t, q.Get("fields"), "school.name")
		assert.Contains(t, q.Get("fields"), "latest.admissions.sat_scores.average.overall")

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("page") {
		case "0":
			w.Write(pageBody(3,
				schoolJSON(1, "Alpha University", 30000, 20000),
				schoolJSON(2, "Beta College", 25000, nil),
			))
		case "1":
			w.Write(pageBody(3, schoolJSON(3, "Gamma State", nil, 9000)))
		default:
			t.Errorf("unexpected page %s", q.Get("page"))
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), slog.Default())

	insts, err := client.FetchInstitutions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, pagesServed)
	require.Len(t, insts, 3)

	assert.Equal(t, int64(1), insts[0].ID)
	assert.Equal(t, "Alpha University", insts[0].Name)
	assert.Equal(t, "CA", insts[0].State)
	assert.Equal(t, 12000, insts[0].Enrollment)
	assert.Equal(t, "USD", insts[0].Currency)
	// Out-of-state tuition wins when both are present.
	assert.InDelta(t, 30000, insts[0].Price, 1e-9)
	// In-state is the fallback.
	assert.InDelta(t, 9000, insts[2].Price, 1e-9)

	// Indicator fields land under registry keys.
	assert.InDelta(t, 1250, insts[0].Metrics["sat_avg"], 1e-9)
	assert.InDelta(t, 0.71, insts[0].Metrics["completion_rate"], 1e-9)
	_, hasACT := insts[0].Metrics["act_midpoint"]
	assert.False(t, hasACT)
}

func TestFetchInstitutionsDropsUnusableRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(pageBody(3,
			schoolJSON(1, "", 30000, nil),       // no name
			schoolJSON(2, "No Price U", nil, nil), // no tuition at all
			schoolJSON(3, "Kept U", 15000, nil),
		))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PerPage = 10
	client := NewClient(cfg, slog.Default())

	insts, err := client.FetchInstitutions(context.Background())
	require.NoError(t, err)

	require.Len(t, insts, 1)
	assert.Equal(t, "Kept U", insts[0].Name)
}

func TestFetchInstitutionsRetriesTransientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(pageBody(1, schoolJSON(1, "Alpha University", 30000, nil)))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), slog.Default())
	client.retry.InitialDelay = time.Millisecond
	client.retry.MaxDelay = 2 * time.Millisecond

	insts, err := client.FetchInstitutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, insts, 1)
}

func TestFetchInstitutionsFailsOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"API_KEY_INVALID"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), slog.Default())

	_, err := client.FetchInstitutions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "college scorecard")
}

func TestFetchInstitutionsHonorsPageCap(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write(pageBody(100, schoolJSON(calls, fmt.Sprintf("School %d", calls), 10000, nil)))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxPages = 3
	client := NewClient(cfg, slog.Default())

	insts, err := client.FetchInstitutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, insts, 3)
}

func TestFetchInstitutionsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(pageBody(1000, schoolJSON(1, "Alpha University", 30000, nil)))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestsPerSec = 0.001 // force the limiter to block on page two
	client := NewClient(cfg, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchInstitutions(ctx)
	require.Error(t, err)
}

func TestParseInstitution(t *testing.T) {
	tests := []struct {
		name       string
		raw        map[string]any
		wantReason string
	}{
		{
			name:       "missing id",
			raw:        map[string]any{"school.name": "X"},
			wantReason: "missing_id",
		},
		{
			name:       "missing name",
			raw:        map[string]any{"id": float64(1)},
			wantReason: "missing_name",
		},
		{
			name: "zero tuition is unusable",
			raw: map[string]any{
				"id":                               float64(1),
				"school.name":                      "Free U",
				"latest.cost.tuition.out_of_state": float64(0),
			},
			wantReason: "missing_price",
		},
		{
			name: "null indicator fields are simply absent",
			raw: map[string]any{
				"id":                               float64(7),
				"school.name":                      "Sparse U",
				"latest.cost.tuition.out_of_state": float64(12000),
				"latest.admissions.sat_scores.average.overall": nil,
			},
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, reason := parseInstitution(tt.raw)
			assert.Equal(t, tt.wantReason, reason)
			if tt.wantReason == "" {
				assert.NotZero(t, inst.ID)
				assert.Empty(t, inst.Metrics)
			}
		})
	}
}
