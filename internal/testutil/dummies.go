// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/search"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Agent ─────────────────────────────────────────────────────────────

// StaticAgent implements agent.Agent with a canned result.
// Set Err to force a failure, Delay to simulate slow work (ctx-aware),
// Panics to crash the call, or Hang to block until ctx is done.
type StaticAgent struct {
	AgentName string
	Result    *model.AgentResult
	Err       error
	Delay     time.Duration
	Panics    bool
	Hang      bool

	mu    sync.Mutex
	calls int
}

func (a *StaticAgent) Name() string { return a.AgentName }

func (a *StaticAgent) Analyze(ctx context.Context, _ *model.AnalysisRequest) (*model.AgentResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.Panics {
		panic("static agent panic: " + a.AgentName)
	}
	if a.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}
	if a.Result != nil {
		return a.Result, nil
	}
	return &model.AgentResult{Flags: []model.Flag{}, Details: map[string]any{}}, nil
}

// Calls reports how many times Analyze ran.
func (a *StaticAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// ImpactAgent returns a StaticAgent that deducts impact points.
func ImpactAgent(name string, impact int) *StaticAgent {
	return &StaticAgent{
		AgentName: name,
		Result: &model.AgentResult{
			Flags:       []model.Flag{model.Info(name + " ok")},
			Details:     map[string]any{"agent": name},
			ScoreImpact: impact,
		},
	}
}

// ─── Completer ─────────────────────────────────────────────────────────

// DummyCompleter implements llm.Completer with canned replies.
// Response feeds Complete; StructuredJSON is unmarshaled into the target
// of CompleteStructured. Err fails both.
type DummyCompleter struct {
	Response       string
	StructuredJSON string
	Err            error
	Unconfigured   bool

	mu       sync.Mutex
	Requests []llm.Request
}

func (d *DummyCompleter) record(req llm.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Requests = append(d.Requests, req)
}

func (d *DummyCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	d.record(req)
	if d.Unconfigured {
		return "", llm.ErrNotConfigured
	}
	if d.Err != nil {
		return "", d.Err
	}
	return d.Response, nil
}

func (d *DummyCompleter) CompleteStructured(_ context.Context, req llm.Request, out any) error {
	d.record(req)
	if d.Unconfigured {
		return llm.ErrNotConfigured
	}
	if d.Err != nil {
		return d.Err
	}
	return json.Unmarshal([]byte(d.StructuredJSON), out)
}

func (d *DummyCompleter) TextModel() string   { return "dummy-text" }
func (d *DummyCompleter) VisionModel() string { return "dummy-vision" }
func (d *DummyCompleter) Configured() bool    { return !d.Unconfigured }

// CallCount reports how many completions were requested.
func (d *DummyCompleter) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Searcher ──────────────────────────────────────────────────────────

// DummySearcher implements search.Searcher. Fn, when set, answers each
// query; otherwise every query returns Results.
type DummySearcher struct {
	Fn           func(query string) (*search.Response, error)
	Results      []search.Result
	Err          error
	Unconfigured bool

	mu      sync.Mutex
	Queries []string
}

func (d *DummySearcher) Search(_ context.Context, query string, _ search.Options) (*search.Response, error) {
	d.mu.Lock()
	d.Queries = append(d.Queries, query)
	d.mu.Unlock()

	if d.Unconfigured {
		return nil, search.ErrNotConfigured
	}
	if d.Fn != nil {
		return d.Fn(query)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return &search.Response{Results: append([]search.Result(nil), d.Results...)}, nil
}

func (d *DummySearcher) Configured() bool { return !d.Unconfigured }

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }

// Err builds a plain error for table tests.
func Err(s string) error { return &errString{s} }
