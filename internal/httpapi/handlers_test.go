package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/fetch"
	apimw "github.com/hamed0406/slotwatch/internal/httpapi/middleware"
	"github.com/hamed0406/slotwatch/internal/metrics"
	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/repo/memory"
	"github.com/hamed0406/slotwatch/internal/scheduler"
)

// ---- test helpers ----

// countingFetcher reports location "A" starting at 5 dates and growing
// by 2 per call, so every call after the baseline alerts.
type countingFetcher struct {
	mu sync.Mutex
	n  int
}

func (f *countingFetcher) Fetch(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	total := 5 + 2*(f.n-1)
	return domain.NewSnapshot([]domain.SlotRecord{
		domain.NewSlotRecord("A", strconv.Itoa(total), ""),
	}, time.Now().UTC()), nil
}

func setupRouter(t *testing.T, f fetch.Fetcher) (http.Handler, *scheduler.Monitor) {
	t.Helper()
	log := zap.NewNop()
	alerts := memory.New(10)
	m := metrics.New()
	mon := scheduler.NewMonitor(log, f, &notify.Log{Logger: log}, alerts, m, scheduler.Options{
		Interval:     time.Hour,
		Threshold:    2,
		FetchTimeout: time.Second,
	}, scheduler.State{})

	srv := NewServer(log, mon, alerts, m.Handler())
	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}
	// very high rate limits to avoid flakiness in tests
	return srv.Router(keys, nil, 10_000, 10_000), mon
}

func do(t *testing.T, ts *httptest.Server, method, path, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, ts.URL+path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthzAndMetrics_NoAuth(t *testing.T) {
	h, _ := setupRouter(t, &countingFetcher{})
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp := do(t, ts, http.MethodGet, "/healthz", ""); resp.StatusCode != 200 {
		t.Fatalf("healthz want 200, got %d", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/metrics", ""); resp.StatusCode != 200 {
		t.Fatalf("metrics want 200, got %d", resp.StatusCode)
	}
}

func TestStatusAndSnapshot(t *testing.T) {
	h, mon := setupRouter(t, &countingFetcher{})
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp := do(t, ts, http.MethodGet, "/api/status", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/api/snapshot", "pub_test"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 before baseline, got %d", resp.StatusCode)
	}

	mon.RunOnce(context.Background())

	resp := do(t, ts, http.MethodGet, "/api/status", "pub_test")
	if resp.StatusCode != 200 {
		t.Fatalf("want 200 status, got %d", resp.StatusCode)
	}
	var st struct {
		Initialized bool  `json:"initialized"`
		Cycles      int64 `json:"cycles"`
		Locations   int   `json:"locations"`
		Last        struct {
			Outcome string `json:"outcome"`
		} `json:"last"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Initialized || st.Cycles != 1 || st.Locations != 1 || st.Last.Outcome != metrics.OutcomeBaseline {
		t.Fatalf("unexpected status: %+v", st)
	}

	resp = do(t, ts, http.MethodGet, "/api/snapshot", "pub_test")
	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Records) != 1 || snap.Records[0].TotalDates != "5" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCheck_AdminOnlyAndRecordsAlert(t *testing.T) {
	h, _ := setupRouter(t, &countingFetcher{})
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp := do(t, ts, http.MethodPost, "/api/check", "pub_test"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("public key must not trigger a check, got %d", resp.StatusCode)
	}

	// baseline, then +2
	do(t, ts, http.MethodPost, "/api/check", "adm_test")
	resp := do(t, ts, http.MethodPost, "/api/check", "adm_test")
	if resp.StatusCode != 200 {
		t.Fatalf("want 200 check, got %d", resp.StatusCode)
	}
	var rep scheduler.CycleReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Outcome != metrics.OutcomeAlert || rep.Alert != "A: 7 dates" {
		t.Fatalf("unexpected report: %+v", rep)
	}

	resp = do(t, ts, http.MethodGet, "/api/alerts?limit=5", "pub_test")
	var alerts []domain.AlertRecord
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Body != "A: 7 dates" || !alerts[0].Delivered {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
}

func TestAlerts_BadLimit(t *testing.T) {
	h, _ := setupRouter(t, &countingFetcher{})
	ts := httptest.NewServer(h)
	defer ts.Close()

	for _, q := range []string{"0", "abc", "501"} {
		if resp := do(t, ts, http.MethodGet, "/api/alerts?limit="+q, "pub_test"); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s want 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	srv := NewServer(zap.NewNop(), scheduler.NewMonitor(nil, &countingFetcher{}, &notify.Log{Logger: zap.NewNop()}, nil, nil, scheduler.Options{}, scheduler.State{}), nil, nil)
	h := srv.Router(apimw.Keys{}, []string{"https://dash.example"}, 0, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://dash.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for foreign site: %q", got)
	}
}

func TestCheck_SurvivesClientHangup(t *testing.T) {
	var sawCancel bool
	f := fetch.Func(func(ctx context.Context) (domain.Snapshot, error) {
		sawCancel = ctx.Err() != nil
		return domain.NewSnapshot([]domain.SlotRecord{domain.NewSlotRecord("A", "5", "")}, time.Now()), nil
	})
	h, mon := setupRouter(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // client already gone
	req := httptest.NewRequest(http.MethodPost, "/api/check", nil).WithContext(ctx)
	req.Header.Set("X-API-Key", "adm_test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if sawCancel {
		t.Fatalf("cycle context should not inherit the request cancellation")
	}
	if st := mon.Status(); !st.Initialized || st.Last.Outcome != metrics.OutcomeBaseline {
		t.Fatalf("unexpected status after check: %+v", st)
	}
}
