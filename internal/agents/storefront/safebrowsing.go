package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

const defaultSafeBrowsingBaseURL = "https://safebrowsing.googleapis.com"

// SafeBrowsingConfig controls the Safe Browsing lookup client.
type SafeBrowsingConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SafeBrowsing asks the Google Safe Browsing v4 API whether the URL has
// been reported for malware, social engineering or unwanted software.
type SafeBrowsing struct {
	cfg    SafeBrowsingConfig
	client *http.Client
	log    logging.Logger
}

var _ agent.Agent = (*SafeBrowsing)(nil)

func NewSafeBrowsing(cfg SafeBrowsingConfig, logger logging.Logger) *SafeBrowsing {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSafeBrowsingBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SafeBrowsing{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.With(logging.Field{Key: "component", Value: "safe_browsing"}),
	}
}

func (s *SafeBrowsing) Name() string { return "safe_browsing" }

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string            `json:"threatTypes"`
		PlatformTypes    []string            `json:"platformTypes"`
		ThreatEntryTypes []string            `json:"threatEntryTypes"`
		ThreatEntries    []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbMatch struct {
	ThreatType string `json:"threatType"`
	Threat     struct {
		URL string `json:"url"`
	} `json:"threat"`
}

type sbResponse struct {
	Matches []sbMatch `json:"matches"`
}

func (s *SafeBrowsing) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Page == nil {
		return nil, errors.New("page payload required")
	}

	if s.cfg.APIKey == "" {
		return &model.AgentResult{
			Flags:   []model.Flag{model.Info("Safe Browsing check skipped (SAFE_BROWSING_API_KEY not configured)")},
			Details: map[string]any{"checked": false, "reason": "API key not configured"},
		}, nil
	}

	matches, err := s.find(ctx, req.Page.URL)
	if err != nil {
		s.log.Warn("safe browsing lookup failed", logging.Field{Key: "error", Value: err.Error()})
		return &model.AgentResult{
			Flags:   []model.Flag{model.Info("No se pudo consultar Safe Browsing")},
			Details: map[string]any{"checked": false, "error": err.Error()},
		}, nil
	}

	if len(matches) == 0 {
		return &model.AgentResult{
			Flags:   []model.Flag{model.Info("✓ Sin reportes en Google Safe Browsing")},
			Details: map[string]any{"checked": true, "threat_types": []string{}},
		}, nil
	}

	var threatTypes []string
	seen := map[string]bool{}
	for _, m := range matches {
		if !seen[m.ThreatType] {
			seen[m.ThreatType] = true
			threatTypes = append(threatTypes, m.ThreatType)
		}
	}

	flags := make([]model.Flag, 0, len(threatTypes))
	impact := 0
	for _, threat := range threatTypes {
		flags = append(flags, model.Critical("Sitio reportado por Google Safe Browsing: "+threat))
		impact += 60
	}
	if impact > 100 {
		impact = 100
	}

	return &model.AgentResult{
		Flags:       flags,
		Details:     map[string]any{"checked": true, "threat_types": threatTypes},
		ScoreImpact: impact,
	}, nil
}

func (s *SafeBrowsing) find(ctx context.Context, pageURL string) ([]sbMatch, error) {
	var body sbRequest
	body.Client.ClientID = "confiable"
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []map[string]string{{"url": pageURL}}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := s.cfg.BaseURL + "/v4/threatMatches:find?key=" + s.cfg.APIKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("safe browsing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("safe browsing returned status %d", resp.StatusCode)
	}

	var out sbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Matches, nil
}
