// Package router maps request platforms onto agent line-ups and rejects
// malformed requests before any agent runs.
package router

import (
	"fmt"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/utils"
)

// ValidationError rejects a request as a whole. Handlers translate it to a
// 400; every other failure stays inside the per-agent substitution path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Plan is the resolved agent line-up for one request. Order holds the
// configured names of the agents that actually resolved, in line-up order.
type Plan struct {
	Agents       []agent.Agent
	Order        []string
	VerdictAgent string
}

var platformPlans = map[string]struct {
	agents  []string
	verdict string
}{
	model.PlatformWeb: {
		agents: []string{
			"ecommerce_guard",
			"reviews",
			"price_comparison",
			"domain_reputation",
			"safe_browsing",
		},
		verdict: "ecommerce_guard",
	},
	model.PlatformFacebookMarketplace: {
		agents: []string{
			"seller_trust",
			"seller_history",
			"pricing",
			"price_analysis",
			"image_analysis",
			"red_flags",
			"description_quality",
			"supplier_confidence",
		},
		verdict: "supplier_confidence",
	},
}

// Router resolves platform line-ups against a registry.
type Router struct {
	reg *agent.Registry
	log logging.Logger
}

func New(reg *agent.Registry, log logging.Logger) *Router {
	return &Router{
		reg: reg,
		log: log.With(logging.Field{Key: "component", Value: "router"}),
	}
}

// Route returns the plan for a platform. Unknown platforms get an empty
// plan, not an error; the caller answers with the zero-agent aggregate.
// Configured names missing from the registry are skipped.
func (rt *Router) Route(platform string) Plan {
	entry, ok := platformPlans[platform]
	if !ok {
		rt.log.Warn("no agents configured for platform",
			logging.Field{Key: "platform", Value: platform})
		return Plan{}
	}

	plan := Plan{VerdictAgent: entry.verdict}
	for _, name := range entry.agents {
		a, ok := rt.reg.Resolve(name)
		if !ok {
			rt.log.Warn("agent not registered, skipping",
				logging.Field{Key: "agent", Value: name})
			continue
		}
		plan.Agents = append(plan.Agents, a)
		plan.Order = append(plan.Order, name)
	}
	return plan
}

// Validate checks the request shape for its platform. A nil return means
// the request may be routed; any error is a *ValidationError.
func (rt *Router) Validate(req *model.AnalysisRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Reason: "missing body"}
	}

	switch req.Platform {
	case model.PlatformWeb:
		if req.Page == nil {
			return &ValidationError{Field: "page", Reason: "required for web analysis"}
		}
		if req.Page.URL == "" {
			return &ValidationError{Field: "url", Reason: "required"}
		}
		if _, err := utils.NormalizeURL(req.Page.URL); err != nil {
			return &ValidationError{Field: "url", Reason: "not a valid URL"}
		}
		if req.Page.HTMLContent == "" {
			return &ValidationError{Field: "html_content", Reason: "required"}
		}
	case model.PlatformFacebookMarketplace:
		if req.Listing == nil {
			return &ValidationError{Field: "listing", Reason: "required for marketplace analysis"}
		}
		if req.Listing.URL == "" {
			return &ValidationError{Field: "url", Reason: "required"}
		}
		if _, err := utils.NormalizeURL(req.Listing.URL); err != nil {
			return &ValidationError{Field: "url", Reason: "not a valid URL"}
		}
		if req.Listing.Listing == nil {
			return &ValidationError{Field: "listing.listing", Reason: "required"}
		}
	}
	return nil
}
