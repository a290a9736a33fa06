package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/insights"
)

// --- fakes ---

type analyzeCall struct {
	query, sector string
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []analyzeCall
	sectors []string
	multi   int
	result  analysis.Analysis
}

func (f *fakeAnalyzer) Analyze(_ context.Context, query, sector string) analysis.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, analyzeCall{query, sector})
	out := f.result
	out.Query = query
	out.Sector = sector
	return out
}

func (f *fakeAnalyzer) SectorAnalysis(_ context.Context, sector string) analysis.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sectors = append(f.sectors, sector)
	out := f.result
	out.Sector = sector
	return out
}

func (f *fakeAnalyzer) MultiSectorAnalysis(_ context.Context) analysis.MultiSector {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multi++
	out := analysis.MultiSector{SectorAnalyses: map[string]analysis.Analysis{}, TotalSectors: len(analysis.Sectors)}
	for _, s := range analysis.Sectors {
		a := f.result
		a.Sector = s
		out.SectorAnalyses[s] = a
	}
	return out
}

type fakeInsights struct {
	mu          sync.Mutex
	docArgs     [2]int
	historyArgs [2]int
	insightDays int
	docs        []insights.DocumentView
}

func (f *fakeInsights) Summary(context.Context) insights.Summary {
	return insights.Summary{TotalDocuments: 5, LLMEnabled: true, RAGAccuracy: 0.85}
}

func (f *fakeInsights) Documents(_ context.Context, limit, offset int) []insights.DocumentView {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docArgs = [2]int{limit, offset}
	if f.docs == nil {
		return []insights.DocumentView{}
	}
	return f.docs
}

func (f *fakeInsights) History(_ context.Context, limit, days int) []insights.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyArgs = [2]int{limit, days}
	return []insights.HistoryEntry{}
}

func (f *fakeInsights) Insights(_ context.Context, days int) insights.Insights {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insightDays = days
	return insights.Insights{}
}

func (f *fakeInsights) Performance(context.Context) insights.Performance {
	return insights.Performance{Metrics: map[string]insights.MetricValue{}}
}

type fakeIngester struct {
	n   int
	err error
}

func (f *fakeIngester) RunCycle(context.Context) (int, error) { return f.n, f.err }

func newTestRouter(t *testing.T) (http.Handler, *fakeAnalyzer, *fakeInsights) {
	t.Helper()
	a := &fakeAnalyzer{result: analysis.Analysis{ID: "analysis_1", Confidence: 0.7}}
	ins := &fakeInsights{}
	h := NewRouter(Deps{Analyzer: a, Insights: ins, Ingester: &fakeIngester{n: 3}})
	return h, a, ins
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

// --- tests ---

func TestHealth(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"healthy"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHealth_StorageDown(t *testing.T) {
	h := NewRouter(Deps{
		Analyzer: &fakeAnalyzer{},
		Insights: &fakeInsights{},
		Ping:     func() error { return errors.New("database is closed") },
	})
	rr := do(t, h, http.MethodGet, "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestAnalysis_PassesQueryAndSector(t *testing.T) {
	h, a, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/rag/analysis?query=chip+demand&sector=technology")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if len(a.calls) != 1 || a.calls[0] != (analyzeCall{"chip demand", "technology"}) {
		t.Fatalf("calls = %+v", a.calls)
	}

	var got analysis.Analysis
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.ID != "analysis_1" || got.Query != "chip demand" {
		t.Errorf("got %+v", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAnalysis_EmptyQueryDelegates(t *testing.T) {
	h, a, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/rag/analysis")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(a.calls) != 1 || a.calls[0].query != "" {
		t.Errorf("calls = %+v", a.calls)
	}
}

func TestAnalysis_QueryTooLong(t *testing.T) {
	h, a, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/rag/analysis?query="+strings.Repeat("x", maxQueryLen+1))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var body map[string]map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["error"]["type"] != "invalid_request_error" {
		t.Errorf("error = %+v", body["error"])
	}
	if len(a.calls) != 0 {
		t.Error("analyzer called for invalid request")
	}
}

func TestAnalysis_DegradedIsOK(t *testing.T) {
	a := &fakeAnalyzer{result: analysis.Degraded()}
	h := NewRouter(Deps{Analyzer: a, Insights: &fakeInsights{}})
	rr := do(t, h, http.MethodGet, "/api/rag/analysis?query=x")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "temporarily unavailable") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestSectorAnalysis(t *testing.T) {
	h, a, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/rag/analysis/sector/finance")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(a.sectors) != 1 || a.sectors[0] != "finance" {
		t.Errorf("sectors = %v", a.sectors)
	}
}

func TestMultiSector(t *testing.T) {
	h, a, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/rag/analysis/sectors")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got analysis.MultiSector
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if a.multi != 1 || got.TotalSectors != 4 || len(got.SectorAnalyses) != 4 {
		t.Errorf("multi = %d, got %+v", a.multi, got)
	}
}

func TestDocuments_Params(t *testing.T) {
	h, _, ins := newTestRouter(t)

	do(t, h, http.MethodGet, "/api/rag/documents")
	if ins.docArgs != [2]int{20, 0} {
		t.Errorf("defaults = %v, want [20 0]", ins.docArgs)
	}

	do(t, h, http.MethodGet, "/api/rag/documents?limit=500&offset=40")
	if ins.docArgs != [2]int{100, 40} {
		t.Errorf("clamped = %v, want [100 40]", ins.docArgs)
	}

	do(t, h, http.MethodGet, "/api/rag/documents?limit=abc&offset=-3")
	if ins.docArgs != [2]int{20, 0} {
		t.Errorf("malformed = %v, want [20 0]", ins.docArgs)
	}
}

func TestHistoryAndInsights_Params(t *testing.T) {
	h, _, ins := newTestRouter(t)

	do(t, h, http.MethodGet, "/api/rag/history?limit=5&days=3")
	if ins.historyArgs != [2]int{5, 3} {
		t.Errorf("history args = %v", ins.historyArgs)
	}
	do(t, h, http.MethodGet, "/api/rag/insights")
	if ins.insightDays != 30 {
		t.Errorf("insight days = %d, want 30", ins.insightDays)
	}
}

func TestSummaryAndPerformance(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/api/rag/summary")
	var s insights.Summary
	if err := json.NewDecoder(rr.Body).Decode(&s); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if s.TotalDocuments != 5 || !s.LLMEnabled {
		t.Errorf("summary = %+v", s)
	}

	rr = do(t, h, http.MethodGet, "/api/rag/performance")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"metrics"`) {
		t.Errorf("performance status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestIngest(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/rag/ingest")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Stored int `json:"stored"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Stored != 3 {
		t.Errorf("stored = %d, want 3", body.Stored)
	}
}

func TestIngest_Errors(t *testing.T) {
	h := NewRouter(Deps{Analyzer: &fakeAnalyzer{}, Insights: &fakeInsights{}})
	if rr := do(t, h, http.MethodPost, "/api/rag/ingest"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("no ingester: status = %d, want 503", rr.Code)
	}

	h = NewRouter(Deps{
		Analyzer: &fakeAnalyzer{},
		Insights: &fakeInsights{},
		Ingester: &fakeIngester{err: errors.New("disk full")},
	})
	rr := do(t, h, http.MethodPost, "/api/rag/ingest")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("failing ingester: status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "disk full") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestIngest_WrongMethod(t *testing.T) {
	h, _, _ := newTestRouter(t)
	if rr := do(t, h, http.MethodGet, "/api/rag/ingest"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}
