package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

// EventType tags progress events emitted while a request is analyzed.
type EventType string

const (
	EventStatus     EventType = "status"
	EventAgentStart EventType = "agent_start"
	EventAgentDone  EventType = "agent_done"
	EventResult     EventType = "result"
)

// Outcome describes how a single agent finished.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
)

// Event is one progress notification. The runner emits agent_start and
// agent_done events; the service layer adds status and result framing
// around them.
type Event struct {
	Type      EventType              `json:"type"`
	Agent     string                 `json:"agent,omitempty"`
	Outcome   Outcome                `json:"outcome,omitempty"`
	ElapsedMS int64                  `json:"elapsed_ms,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Result    *model.AggregateResult `json:"result,omitempty"`
}

// EventSink receives progress events. Sinks are called from agent wrapper
// goroutines and must return promptly; slow consumers should buffer and
// drop on their side.
type EventSink func(Event)

// Runner fans one request out to a set of agents concurrently.
//
// Guarantees: every requested agent gets exactly one entry in the result
// map, keyed by Name(). An agent that errors, panics, returns nil or
// overruns its individual timeout is recorded as a neutral substitute
// result and never disturbs the other agents or the request. There are no
// retries; cancellation of overrunning agents is best effort through their
// ctx, and an agent that ignores it is simply abandoned.
type Runner struct {
	cfg    Config
	logger logging.Logger
}

// NewRunner builds a Runner.
func NewRunner(cfg Config, logger logging.Logger) *Runner {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = DefaultConfig().AgentTimeout
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "runner"}),
	}
}

// Run executes all agents against req and returns one result per agent.
func (r *Runner) Run(ctx context.Context, agents []Agent, req *model.AnalysisRequest) map[string]*model.AgentResult {
	return r.RunWithEvents(ctx, agents, req, nil)
}

// RunWithEvents is Run with a progress sink. A nil sink disables events.
func (r *Runner) RunWithEvents(ctx context.Context, agents []Agent, req *model.AnalysisRequest, sink EventSink) map[string]*model.AgentResult {
	results := make(map[string]*model.AgentResult, len(agents))
	if len(agents) == 0 {
		return results
	}

	var mu sync.Mutex
	g, runCtx := errgroup.WithContext(ctx)
	for _, a := range agents {
		a := a
		g.Go(func() error {
			res := r.runOne(runCtx, a, req, sink)
			mu.Lock()
			results[a.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type agentReturn struct {
	res *model.AgentResult
	err error
}

func (r *Runner) runOne(ctx context.Context, a Agent, req *model.AnalysisRequest, sink EventSink) *model.AgentResult {
	name := a.Name()
	start := time.Now()
	emit(sink, Event{Type: EventAgentStart, Agent: name})

	agentCtx, cancel := context.WithTimeout(ctx, r.cfg.AgentTimeout)
	defer cancel()

	ch := make(chan agentReturn, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- agentReturn{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		res, err := a.Analyze(agentCtx, req)
		ch <- agentReturn{res: res, err: err}
	}()

	select {
	case ret := <-ch:
		elapsed := time.Since(start)
		if ret.err != nil {
			r.logger.Warn("agent failed",
				logging.Field{Key: "agent", Value: name},
				logging.Field{Key: "elapsed", Value: elapsed.String()},
				logging.Field{Key: "error", Value: ret.err.Error()})
			emit(sink, Event{Type: EventAgentDone, Agent: name, Outcome: OutcomeFailed, ElapsedMS: elapsed.Milliseconds()})
			return model.UnavailableResult(name, ret.err.Error())
		}
		if ret.res == nil {
			r.logger.Warn("agent returned nil result",
				logging.Field{Key: "agent", Value: name})
			emit(sink, Event{Type: EventAgentDone, Agent: name, Outcome: OutcomeFailed, ElapsedMS: elapsed.Milliseconds()})
			return model.UnavailableResult(name, "nil result")
		}
		if ret.res.ScoreImpact < 0 {
			ret.res.ScoreImpact = 0
		}
		r.logger.Debug("agent done",
			logging.Field{Key: "agent", Value: name},
			logging.Field{Key: "elapsed", Value: elapsed.String()},
			logging.Field{Key: "score_impact", Value: ret.res.ScoreImpact})
		emit(sink, Event{Type: EventAgentDone, Agent: name, Outcome: OutcomeDone, ElapsedMS: elapsed.Milliseconds()})
		return ret.res

	case <-agentCtx.Done():
		// The inner call may still be running; its eventual result is dropped.
		elapsed := time.Since(start)
		outcome := OutcomeFailed
		if errors.Is(agentCtx.Err(), context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		r.logger.Warn("agent did not finish",
			logging.Field{Key: "agent", Value: name},
			logging.Field{Key: "elapsed", Value: elapsed.String()},
			logging.Field{Key: "reason", Value: agentCtx.Err().Error()})
		emit(sink, Event{Type: EventAgentDone, Agent: name, Outcome: outcome, ElapsedMS: elapsed.Milliseconds()})
		return model.UnavailableResult(name, agentCtx.Err().Error())
	}
}

func emit(sink EventSink, ev Event) {
	if sink != nil {
		sink(ev)
	}
}
