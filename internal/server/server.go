package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/dtoro641/confiable/docs"
	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/app"
	"github.com/dtoro641/confiable/internal/history"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/router"
)

// Server is the HTTP + WebSocket API surface for Confiable.
type Server struct {
	cfg      Config
	svc      *app.Service
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server around an already-built Service.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("server requires a service")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	s := &Server{
		cfg:    cfg,
		svc:    cfg.Service,
		router: chi.NewRouter(),
		logger: logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Service returns the underlying app service (tests, etc.).
func (s *Server) Service() *app.Service {
	return s.svc
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/analyze", s.optionsHandler("POST"))
	r.Options("/analyze-marketplace", s.optionsHandler("POST"))
	r.Options("/history", s.optionsHandler("GET"))
	r.Options("/history/compare", s.optionsHandler("GET"))
	r.Options("/history/{id}", s.optionsHandler("GET"))
	r.Options("/ws/analyze", s.optionsHandler("GET"))

	// Health
	r.Get("/", s.handleHealth)

	// Analysis
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze-marketplace", s.handleAnalyzeMarketplace)

	// History
	r.Get("/history", s.handleListHistory)
	r.Get("/history/compare", s.handleCompareHistory)
	r.Get("/history/{id}", s.handleGetHistory)

	// WebSocket progress stream
	r.Get("/ws/analyze", s.handleAnalyzeWS)

	// Interactive API docs
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the service and its resources.
func (s *Server) Close() {
	if s.svc != nil {
		if err := s.svc.Close(); err != nil {
			s.logger.Warn("closing service", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// configStatus renders one API key for the health endpoint. Placeholder
// values copied from .env.example count as missing.
func configStatus(key string) string {
	if key == "" || strings.HasPrefix(key, "your_") {
		return "✗ missing"
	}
	return "✓ configured"
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Service health and configuration status
// @Tags meta
// @Produce json
// @Success 200 {object} server.HealthResponse
// @Router / [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.svc.Config()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "Confiable API",
		Config: map[string]string{
			"ANTHROPIC_API_KEY": configStatus(cfg.AnthropicAPIKey),
			"TAVILY_API_KEY":    configStatus(cfg.TavilyAPIKey),
		},
	})
}

// handleAnalyze godoc
// @Summary Analyze an online store page
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body model.PageRequest true "Page snapshot captured client-side"
// @Success 200 {object} model.AggregateResult
// @Failure 400 {object} server.ErrorResponse
// @Router /analyze [post]
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var page model.PageRequest
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		s.logger.Warn("decoding analyze body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.runAnalysis(w, r, &model.AnalysisRequest{
		Platform: model.PlatformWeb,
		Page:     &page,
	})
}

// handleAnalyzeMarketplace godoc
// @Summary Analyze a marketplace listing
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body model.ListingRequest true "Listing snapshot captured client-side"
// @Success 200 {object} model.AggregateResult
// @Failure 400 {object} server.ErrorResponse
// @Router /analyze-marketplace [post]
func (s *Server) handleAnalyzeMarketplace(w http.ResponseWriter, r *http.Request) {
	var listing model.ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		s.logger.Warn("decoding analyze-marketplace body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.runAnalysis(w, r, &model.AnalysisRequest{
		Platform: model.PlatformFacebookMarketplace,
		Listing:  &listing,
	})
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, req *model.AnalysisRequest) {
	res, err := s.svc.Analyze(r.Context(), req)
	if err != nil {
		var verr *router.ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn("rejected analysis request", logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Warn("analysis failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("analysis done",
		logging.Field{Key: "platform", Value: req.Platform},
		logging.Field{Key: "score", Value: res.Score},
		logging.Field{Key: "risk_level", Value: string(res.RiskLevel)})
	writeJSON(w, http.StatusOK, res)
}

// History

// handleListHistory godoc
// @Summary List stored analyses, newest first
// @Tags history
// @Produce json
// @Param url query string false "Filter by analyzed URL"
// @Param limit query int false "Maximum records (default 20, cap 100)"
// @Success 200 {array} history.Record
// @Failure 404 {object} server.ErrorResponse
// @Router /history [get]
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	store := s.svc.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	url := r.URL.Query().Get("url")
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	recs, err := store.ListAnalyses(r.Context(), url, limit)
	if err != nil {
		s.logger.Warn("listing analyses", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleGetHistory godoc
// @Summary Fetch one stored analysis
// @Tags history
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} history.Record
// @Failure 404 {object} server.ErrorResponse
// @Router /history/{id} [get]
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	store := s.svc.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := store.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		s.logger.Warn("getting analysis", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCompareHistory godoc
// @Summary Compare two stored analyses
// @Tags history
// @Produce json
// @Param a query string true "Baseline analysis ID"
// @Param b query string true "Newer analysis ID"
// @Success 200 {object} history.Comparison
// @Failure 400 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Router /history/compare [get]
func (s *Server) handleCompareHistory(w http.ResponseWriter, r *http.Request) {
	store := s.svc.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "missing a or b query parameter")
		return
	}

	cmp, err := store.CompareAnalyses(r.Context(), a, b)
	if err != nil {
		if errors.Is(err, history.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Warn("comparing analyses", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// WebSocket

// handleAnalyzeWS streams analysis progress. The client sends one JSON
// AnalysisRequest frame and receives event frames until a final "result"
// event. Closing the connection cancels the analysis.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	var req model.AnalysisRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("reading websocket request frame", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(map[string]string{"error": "invalid request frame"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Events are funneled through one channel because the sink runs on
	// agent goroutines and the connection allows a single writer.
	events := make(chan agent.Event, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		_, err := s.svc.AnalyzeStream(ctx, &req, func(ev agent.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		errCh <- err
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; stop the analysis.
			cancel()
			return
		}
	}

	if err := <-errCh; err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
	}
}
