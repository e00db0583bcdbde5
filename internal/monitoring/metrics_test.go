// internal/monitoring/metrics_test.go
package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/griogair/embedfeed/internal/pipeline"
)

func TestMetricsSatisfyRecorderInterface(t *testing.T) {
	var _ pipeline.MetricsRecorder = NewMetrics(prometheus.NewRegistry())
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ArticleScanned()
	m.ArticleScanned()
	m.CandidateFound("bandcamp")
	m.CandidateFound("bandcamp")
	m.CandidateFound("youtube")
	m.DuplicateSkipped("bandcamp")
	m.ResolutionSucceeded()
	m.ResolutionFailed()

	if got := testutil.ToFloat64(m.articlesScanned); got != 2 {
		t.Errorf("articles scanned: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.candidatesFound.WithLabelValues("bandcamp")); got != 2 {
		t.Errorf("bandcamp candidates: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.candidatesFound.WithLabelValues("youtube")); got != 1 {
		t.Errorf("youtube candidates: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.duplicatesTotal.WithLabelValues("bandcamp")); got != 1 {
		t.Errorf("duplicates: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resolutionsOK); got != 1 {
		t.Errorf("resolutions ok: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resolutionsFail); got != 1 {
		t.Errorf("resolutions failed: got %v, want 1", got)
	}
}

func TestHealthReportsDegradedAfterFailedRun(t *testing.T) {
	h := NewHealth("test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected ok status, got %v", resp["status"])
	}

	h.RecordRun(fmt.Errorf("upstream down"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health response: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", resp["status"])
	}
	if resp["run_error"] != "upstream down" {
		t.Errorf("expected run_error, got %v", resp["run_error"])
	}

	h.RecordRun(nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected recovery to ok, got %v", resp["status"])
	}
}
