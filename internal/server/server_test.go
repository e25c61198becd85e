package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/app"
	"github.com/dtoro641/confiable/internal/history"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/server"
	"github.com/dtoro641/confiable/internal/testutil"
)

// testConfig returns a service config with no API keys and a TempDir
// database, so no request ever leaves the process.
func testConfig(t *testing.T) app.Config {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func newServerWithConfig(t *testing.T, cfg app.Config) *server.Server {
	t.Helper()

	logger := &testutil.DummyLogger{}
	svc, err := app.New(cfg, logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	s, err := server.NewServer(server.Config{
		ListenAddr: ":0",
		Service:    svc,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	return newServerWithConfig(t, testConfig(t))
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func seedRecord(t *testing.T, s *server.Server, rec *history.Record) {
	t.Helper()
	if err := s.Service().History().SaveAnalysis(context.Background(), rec); err != nil {
		t.Fatalf("save analysis: %v", err)
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/", "")

	origin := rec.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_CORS_Preflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "OPTIONS", "/analyze", "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); methods != "POST" {
		t.Errorf("expected POST, got %q", methods)
	}
}

// ─── Health ────────────────────────────────────────────────────────────

func TestServer_Health_MissingKeys(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health server.HealthResponse
	decodeJSON(t, rec, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q", health.Status)
	}
	if health.Service != "Confiable API" {
		t.Errorf("service = %q", health.Service)
	}
	if health.Config["ANTHROPIC_API_KEY"] != "✗ missing" {
		t.Errorf("anthropic status = %q", health.Config["ANTHROPIC_API_KEY"])
	}
	if health.Config["TAVILY_API_KEY"] != "✗ missing" {
		t.Errorf("tavily status = %q", health.Config["TAVILY_API_KEY"])
	}
}

func TestServer_Health_PlaceholderKeyCountsAsMissing(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.AnthropicAPIKey = "sk-ant-test"
	cfg.TavilyAPIKey = "your_tavily_api_key"
	s := newServerWithConfig(t, cfg)

	rec := doJSON(t, s, "GET", "/", "")

	var health server.HealthResponse
	decodeJSON(t, rec, &health)
	if health.Config["ANTHROPIC_API_KEY"] != "✓ configured" {
		t.Errorf("anthropic status = %q", health.Config["ANTHROPIC_API_KEY"])
	}
	if health.Config["TAVILY_API_KEY"] != "✗ missing" {
		t.Errorf("tavily status = %q", health.Config["TAVILY_API_KEY"])
	}
}

// ─── Analysis ──────────────────────────────────────────────────────────

func TestServer_Analyze_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/analyze", `{invalid}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_Analyze_ValidationError(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/analyze", `{"url":"https://shop.example.com"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp server.ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Error, "html_content") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestServer_AnalyzeMarketplace_OK(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	body := `{
		"url": "https://www.facebook.com/marketplace/item/5550001234",
		"listing": {"title": "iPhone 13 128GB", "price": "$100", "description": "URGE vender hoy"},
		"seller": {"name": "Juan Tapia", "join_date": "Se unió en 2020"}
	}`
	rec := doJSON(t, s, "POST", "/analyze-marketplace", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res model.AggregateResult
	decodeJSON(t, rec, &res)
	if res.Score < 0 || res.Score > 100 {
		t.Errorf("score %d out of range", res.Score)
	}
	if len(res.PerAgentOutputs) != 8 {
		t.Errorf("got %d agent outputs, want 8", len(res.PerAgentOutputs))
	}
	if res.ScoreBreakdown == nil {
		t.Fatal("missing score_breakdown")
	}
	if res.ScoreBreakdown.BaseScore != 100 {
		t.Errorf("base score = %d", res.ScoreBreakdown.BaseScore)
	}

	// No API key configured, so the verdict agent falls back.
	if res.VerdictTitle != "Análisis incompleto" {
		t.Errorf("verdict title = %q", res.VerdictTitle)
	}
}

func TestServer_AnalyzeMarketplace_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/analyze-marketplace", `not-json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// ─── History ───────────────────────────────────────────────────────────

func TestServer_History_ListAndGet(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	seedRecord(t, s, &history.Record{
		ID: "a1", URL: "https://tienda.example.com", Platform: model.PlatformWeb,
		Score: 90, RiskLevel: model.RiskSafe, CreatedAt: 100, ResultJSON: `{"score":90}`,
	})
	seedRecord(t, s, &history.Record{
		ID: "b2", URL: "https://www.facebook.com/marketplace/item/77", Platform: model.PlatformFacebookMarketplace,
		Score: 40, RiskLevel: model.RiskDangerous, CreatedAt: 200, ResultJSON: `{"score":40}`,
	})

	rec := doJSON(t, s, "GET", "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var recs []*history.Record
	decodeJSON(t, rec, &recs)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "b2" {
		t.Errorf("newest first, got %q", recs[0].ID)
	}

	rec = doJSON(t, s, "GET", "/history?url=https://tienda.example.com&limit=5", "")
	decodeJSON(t, rec, &recs)
	if len(recs) != 1 || recs[0].ID != "a1" {
		t.Errorf("filtered list = %v", recs)
	}

	rec = doJSON(t, s, "GET", "/history/a1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var one history.Record
	decodeJSON(t, rec, &one)
	if one.ID != "a1" || one.Score != 90 {
		t.Errorf("record = %+v", one)
	}

	rec = doJSON(t, s, "GET", "/history/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_History_Compare(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	seedRecord(t, s, &history.Record{
		ID: "old", URL: "https://www.facebook.com/marketplace/item/9", Platform: model.PlatformFacebookMarketplace,
		Score: 85, RiskLevel: model.RiskSafe, CreatedAt: 100, ResultJSON: `{"score":85,"flags":[]}`,
	})
	seedRecord(t, s, &history.Record{
		ID: "new", URL: "https://www.facebook.com/marketplace/item/9", Platform: model.PlatformFacebookMarketplace,
		Score: 45, RiskLevel: model.RiskDangerous, CreatedAt: 200, ResultJSON: `{"score":45,"flags":[{"type":"critical","msg":"Menciona Zelle"}]}`,
	})

	rec := doJSON(t, s, "GET", "/history/compare?a=old&b=new", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cmp history.Comparison
	decodeJSON(t, rec, &cmp)
	if cmp.ScoreDelta != -40 {
		t.Errorf("score delta = %d", cmp.ScoreDelta)
	}
	if !cmp.RiskChanged || cmp.RiskTo != model.RiskDangerous {
		t.Errorf("risk transition = %+v", cmp)
	}
	if len(cmp.Changes) == 0 {
		t.Error("expected diff chunks")
	}

	rec = doJSON(t, s, "GET", "/history/compare?a=old", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing b, got %d", rec.Code)
	}

	rec = doJSON(t, s, "GET", "/history/compare?a=old&b=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestServer_History_Disabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DBPath = ""
	s := newServerWithConfig(t, cfg)

	for _, path := range []string{"/history", "/history/some-id", "/history/compare?a=x&b=y"} {
		rec := doJSON(t, s, "GET", path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rec.Code)
		}
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func dialWS(t *testing.T, s *server.Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestServer_AnalyzeWS_StreamsEvents(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	conn := dialWS(t, s)

	frame := `{
		"platform": "facebook_marketplace",
		"listing": {
			"url": "https://www.facebook.com/marketplace/item/5550001234",
			"listing": {"title": "iPhone 13 128GB", "price": "$100"}
		}
	}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write request frame: %v", err)
	}

	var first agent.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if first.Type != agent.EventStatus || first.Status != "iniciando análisis" {
		t.Fatalf("first event = %+v", first)
	}

	var sawDone bool
	var result *model.AggregateResult
	for result == nil {
		var ev agent.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		switch ev.Type {
		case agent.EventAgentDone:
			sawDone = true
		case agent.EventResult:
			result = ev.Result
		}
	}

	if !sawDone {
		t.Error("no agent_done events before the result")
	}
	if result.ScoreBreakdown == nil {
		t.Error("result event missing score_breakdown")
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score %d out of range", result.Score)
	}
}

func TestServer_AnalyzeWS_ValidationError(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	conn := dialWS(t, s)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"platform":"facebook_marketplace"}`)); err != nil {
		t.Fatalf("write request frame: %v", err)
	}

	var resp map[string]string
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if !strings.Contains(resp["error"], "listing") {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestServer_AnalyzeWS_BadRequestFrame(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	conn := dialWS(t, s)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write request frame: %v", err)
	}

	var resp map[string]string
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if resp["error"] != "invalid request frame" {
		t.Errorf("error = %q", resp["error"])
	}
}

// ─── Swagger ───────────────────────────────────────────────────────────

func TestServer_SwaggerDocServed(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var doc struct {
		Swagger string `json:"swagger"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
	}
	decodeJSON(t, rec, &doc)
	if doc.Swagger != "2.0" {
		t.Errorf("swagger version = %q", doc.Swagger)
	}
	if doc.Info.Title != "Confiable API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
}
