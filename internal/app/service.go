// Package app assembles configuration, shared clients, the agent registry
// and the history store into one Service. The HTTP server and the CLI
// drive analyses exclusively through it.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/agents/marketplace"
	"github.com/dtoro641/confiable/internal/agents/storefront"
	"github.com/dtoro641/confiable/internal/aggregate"
	"github.com/dtoro641/confiable/internal/history"
	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/router"
	"github.com/dtoro641/confiable/internal/search"
)

// saveTimeout bounds the background history write after a response.
const saveTimeout = 5 * time.Second

// Service owns every component of an analysis: the LLM and search
// clients, the registered agents, the runner, the router and the optional
// history store.
type Service struct {
	cfg      Config
	logger   logging.Logger
	llm      *llm.Client
	search   *search.Client
	registry *agent.Registry
	runner   *agent.Runner
	router   *router.Router
	store    *history.Store
}

// New builds a Service from cfg. Every agent is registered here; the
// platform plans pick from them by name at request time. When cfg.DBPath
// is empty the history store stays nil and History returns nil.
func New(cfg Config, log logging.Logger) (*Service, error) {
	llmClient := llm.NewClient(llm.Config{
		APIKey:        cfg.AnthropicAPIKey,
		TextModel:     cfg.TextModel,
		VisionModel:   cfg.VisionModel,
		MaxConcurrent: cfg.LLMMaxConcurrent,
		Timeout:       time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
	}, log)

	searchClient := search.NewClient(search.Config{
		APIKey: cfg.TavilyAPIKey,
	}, log)

	reg := agent.NewRegistry()
	reg.Register(storefront.NewGuard(llmClient, log))
	reg.Register(storefront.NewReviews(llmClient, searchClient, log))
	reg.Register(storefront.NewPriceComparison(llmClient, searchClient, log))
	reg.Register(storefront.NewDomainReputation(log))
	reg.Register(storefront.NewSafeBrowsing(storefront.SafeBrowsingConfig{APIKey: cfg.SafeBrowsingAPIKey}, log))
	reg.Register(marketplace.NewSellerTrust(log))
	reg.Register(marketplace.NewSellerHistory(log))
	reg.Register(marketplace.NewPricing(log))
	reg.Register(marketplace.NewPriceAnalysis(log))
	reg.Register(marketplace.NewImageAnalysis(llmClient, log))
	reg.Register(marketplace.NewRedFlags(log))
	reg.Register(marketplace.NewDescriptionQuality(log))
	reg.Register(marketplace.NewSupplierConfidence(llmClient, log))

	runner := agent.NewRunner(agent.Config{
		AgentTimeout: time.Duration(cfg.AgentTimeoutSeconds) * time.Second,
	}, log)

	svc := &Service{
		cfg:      cfg,
		logger:   log.With(logging.Field{Key: "component", Value: "app"}),
		llm:      llmClient,
		search:   searchClient,
		registry: reg,
		runner:   runner,
		router:   router.New(reg, log),
	}

	if cfg.DBPath != "" {
		store, err := history.Open(cfg.DBPath, log)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		svc.store = store
	}

	svc.logger.Info("service ready",
		logging.Field{Key: "agents", Value: len(reg.Names())},
		logging.Field{Key: "history", Value: svc.store != nil})
	return svc, nil
}

// Analyze validates req, fans it out to the platform's agents and returns
// the aggregated verdict. The only error it returns is a
// *router.ValidationError; agent failures degrade into neutral results
// inside the aggregate.
func (s *Service) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AggregateResult, error) {
	return s.run(ctx, req, nil)
}

// AnalyzeStream is Analyze with progress events. The sink receives status
// framing around the runner's agent_start/agent_done events and a final
// result event carrying the same AggregateResult the method returns.
func (s *Service) AnalyzeStream(ctx context.Context, req *model.AnalysisRequest, sink agent.EventSink) (*model.AggregateResult, error) {
	return s.run(ctx, req, sink)
}

func (s *Service) run(ctx context.Context, req *model.AnalysisRequest, sink agent.EventSink) (*model.AggregateResult, error) {
	if err := s.router.Validate(req); err != nil {
		return nil, err
	}
	plan := s.router.Route(req.Platform)

	emit(sink, agent.Event{Type: agent.EventStatus, Status: "iniciando análisis"})
	outputs := s.runner.RunWithEvents(ctx, plan.Agents, req, sink)
	emit(sink, agent.Event{Type: agent.EventStatus, Status: "calculando veredicto"})

	result := aggregate.Aggregate(outputs, plan.Order, plan.VerdictAgent)
	if req.Platform == model.PlatformFacebookMarketplace {
		result.ScoreBreakdown = breakdown(result)
	}

	s.saveAsync(req, result)
	emit(sink, agent.Event{Type: agent.EventResult, Result: result})
	return result, nil
}

func emit(sink agent.EventSink, ev agent.Event) {
	if sink != nil {
		sink(ev)
	}
}

// breakdown recasts the marketplace agents' deductions as the signed
// per-category adjustments the client renders. Missing agents contribute
// zero; response_patterns and ratings_impact are carried for response
// shape compatibility but no longer scored separately.
func breakdown(res *model.AggregateResult) *model.ScoreBreakdown {
	impact := func(name string) int {
		if out, ok := res.PerAgentOutputs[name]; ok && out != nil {
			return out.ScoreImpact
		}
		return 0
	}
	return &model.ScoreBreakdown{
		BaseScore:          100,
		SellerLongevity:    -impact("seller_trust"),
		PostHistory:        -impact("seller_history"),
		DescriptionQuality: -impact("description_quality"),
		ImageAnalysis:      -impact("image_analysis"),
		PriceAnalysis:      -(impact("pricing") + impact("price_analysis")),
		RedFlags:           -impact("red_flags"),
		Total:              res.Score,
	}
}

// saveAsync persists the finished analysis without blocking the response.
// Failures are logged and swallowed.
func (s *Service) saveAsync(req *model.AnalysisRequest, res *model.AggregateResult) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("could not encode analysis for history", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	rec := &history.Record{
		URL:          requestURL(req),
		Platform:     req.Platform,
		Score:        res.Score,
		RiskLevel:    res.RiskLevel,
		VerdictTitle: res.VerdictTitle,
		ResultJSON:   string(payload),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.store.SaveAnalysis(ctx, rec); err != nil {
			s.logger.Warn("could not save analysis",
				logging.Field{Key: "url", Value: rec.URL},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}()
}

func requestURL(req *model.AnalysisRequest) string {
	switch {
	case req.Page != nil:
		return req.Page.URL
	case req.Listing != nil:
		return req.Listing.URL
	default:
		return ""
	}
}

// History exposes the store for the read-side endpoints. Nil when history
// is disabled.
func (s *Service) History() *history.Store {
	return s.store
}

// Config returns the configuration the Service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Close releases everything the Service holds open.
func (s *Service) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close history store: %w", err)
		}
	}
	return nil
}
