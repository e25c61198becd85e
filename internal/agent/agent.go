// Package agent defines the analysis agent contract, a name-keyed registry
// of implementations, and the concurrent runner that fans a request out to
// a set of agents and always comes back with one result per agent.
package agent

import (
	"context"
	"time"

	"github.com/dtoro641/confiable/internal/model"
)

// Agent is a single independent risk check. Implementations may reach out
// to external services but must never mutate the request or any state
// shared with other agents. Returning an error (or a nil result) means the
// agent could not analyze; the runner substitutes a neutral result and the
// request continues.
type Agent interface {
	// Name identifies the agent. Names key the per-agent output map, so
	// they must be unique within a registry.
	Name() string

	// Analyze inspects the request and reports findings. Blocking work
	// must honor ctx cancellation.
	Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error)
}

// Config controls the runner.
type Config struct {
	// AgentTimeout bounds each agent individually. There is no shared
	// per-request deadline beyond the caller's own ctx.
	AgentTimeout time.Duration
}

// DefaultConfig returns runner defaults.
func DefaultConfig() Config {
	return Config{AgentTimeout: 30 * time.Second}
}
