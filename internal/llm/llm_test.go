package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...logging.Field)       {}
func (noopLogger) Info(string, ...logging.Field)        {}
func (noopLogger) Warn(string, ...logging.Field)        {}
func (noopLogger) Error(string, ...logging.Field)       {}
func (n noopLogger) With(...logging.Field) logging.Logger { return n }

func newTestClient(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return llm.NewClient(llm.Config{
		APIKey:  "test-key",
		BaseURL: ts.URL,
		Timeout: 5 * time.Second,
	}, noopLogger{})
}

func completionReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}
}

// ─── Complete ──────────────────────────────────────────────────────────

func TestClient_Complete_ReturnsText(t *testing.T) {
	t.Parallel()
	var gotKey, gotVersion string
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		gotBody, _ = io.ReadAll(r.Body)
		completionReply("hola")(w, r)
	})

	out, err := c.Complete(context.Background(), llm.Request{
		System:   "be brief",
		Messages: []llm.Message{llm.UserText("hi")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hola" {
		t.Errorf("expected 'hola', got %q", out)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("expected anthropic-version header")
	}

	var sent map[string]any
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["system"] != "be brief" {
		t.Errorf("expected system prompt in body, got %v", sent["system"])
	}
}

func TestClient_Complete_CachesRepeatCalls(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		completionReply("cached")(w, r)
	})

	req := llm.Request{Messages: []llm.Message{llm.UserText("same prompt")}}
	for i := 0; i < 3; i++ {
		if _, err := c.Complete(context.Background(), req); err != nil {
			t.Fatalf("Complete #%d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestClient_Complete_APIError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := c.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserText("x")}})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestClient_NotConfigured(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"", "your_anthropic_key_here"} {
		c := llm.NewClient(llm.Config{APIKey: key}, noopLogger{})
		if c.Configured() {
			t.Errorf("key %q should not count as configured", key)
		}
		if _, err := c.Complete(context.Background(), llm.Request{}); err != llm.ErrNotConfigured {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	}
}

// ─── CompleteStructured ────────────────────────────────────────────────

func TestClient_CompleteStructured_DecodesFencedJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, completionReply("```json\n{\"sentiment\": 85, \"summary\": \"bien\"}\n```\nEspero que sirva."))

	var out struct {
		Sentiment int    `json:"sentiment"`
		Summary   string `json:"summary"`
	}
	err := c.CompleteStructured(context.Background(), llm.Request{
		Messages: []llm.Message{llm.UserText("resume")},
	}, &out)
	if err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}
	if out.Sentiment != 85 || out.Summary != "bien" {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestClient_CompleteStructured_RejectsNonJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, completionReply("I could not produce JSON, sorry."))

	var out struct{ X int }
	err := c.CompleteStructured(context.Background(), llm.Request{
		Messages: []llm.Message{llm.UserText("x")},
	}, &out)
	if err == nil {
		t.Fatal("expected decode error for prose reply")
	}
}

// ─── ExtractJSON ───────────────────────────────────────────────────────

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"{\"a\":{\"b\":2}} trailing prose", "{\"a\":{\"b\":2}}"},
		{"{\"msg\":\"brace } in string\"} extra", "{\"msg\":\"brace } in string\"}"},
		{"not json at all", "not json at all"},
	}
	for _, tt := range tests {
		if got := llm.ExtractJSON(tt.in); got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
