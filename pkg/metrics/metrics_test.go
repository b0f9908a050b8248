package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	c := NewCollector()

	c.RecordOperation("find", "users", 2*time.Millisecond, 3, nil)
	c.RecordOperation("find", "users", time.Millisecond, 0, nil)
	c.RecordOperation("find", "orders", time.Millisecond, -1, errors.New("boom"))

	if got := testutil.ToFloat64(c.operations.WithLabelValues("find", "users")); got != 2 {
		t.Errorf("Expected 2 find operations on users, got %v", got)
	}
	if got := testutil.ToFloat64(c.operationErrors.WithLabelValues("find")); got != 1 {
		t.Errorf("Expected 1 failed find, got %v", got)
	}
}

func TestRecordRequestAndGauges(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("GET", "/_health", 200, time.Millisecond)
	c.SetActiveCursors(4)
	c.RecordRateLimited()
	if err := c.RegisterGauge("cache_entries", "Compiled entries", func() float64 { return 7 }); err != nil {
		t.Fatalf("RegisterGauge failed: %v", err)
	}

	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "/_health", "200")); got != 1 {
		t.Errorf("Expected 1 request, got %v", got)
	}
	if got := testutil.ToFloat64(c.activeCursors); got != 4 {
		t.Errorf("Expected 4 active cursors, got %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"mimo_http_requests_total", "mimo_cache_entries 7", "mimo_rate_limited_total 1"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.RecordRateLimited()
	if got := testutil.ToFloat64(b.rateLimited); got != 0 {
		t.Errorf("Expected separate registries, got %v", got)
	}
}
