package model

// AgentResult is what a single agent reports for one request.
type AgentResult struct {
	// Flags are the user-facing findings, in the order the agent raised them.
	Flags []Flag `json:"flags"`

	// Details holds agent-specific evidence for the UI and for debugging.
	Details map[string]any `json:"details"`

	// ScoreImpact is the number of points this agent deducts from the
	// aggregate score. Never negative; agents floor their own totals at zero.
	ScoreImpact int `json:"score_impact"`

	// VerdictTitle and VerdictMessage are set only by agents designated to
	// phrase the final verdict for their platform.
	VerdictTitle   string `json:"verdict_title,omitempty"`
	VerdictMessage string `json:"verdict_message,omitempty"`
}

// UnavailableResult is the substitute recorded for an agent that failed,
// panicked or timed out. It never moves the score.
func UnavailableResult(agentName, reason string) *AgentResult {
	return &AgentResult{
		Flags:       []Flag{Info("Análisis no disponible: " + agentName)},
		Details:     map[string]any{"error": reason},
		ScoreImpact: 0,
	}
}

// AggregateResult is the combined answer for one analysis request.
type AggregateResult struct {
	// Score is 100 minus the sum of agent impacts, clamped to [0, 100].
	Score int `json:"score"`

	// RiskLevel derives from Score: >= 80 safe, 50..79 suspicious, < 50 dangerous.
	RiskLevel RiskLevel `json:"risk_level"`

	VerdictTitle   string `json:"verdict_title"`
	VerdictMessage string `json:"verdict_message"`

	// Flags is the concatenation of every agent's flags in the platform's
	// configured agent order. Duplicates are kept.
	Flags []Flag `json:"flags"`

	// Details maps agent name to that agent's detail payload.
	Details map[string]any `json:"details"`

	// PerAgentOutputs holds one entry per requested agent, real or
	// substituted. An empty map means no agents ran for the platform.
	PerAgentOutputs map[string]*AgentResult `json:"agent_outputs"`

	// ScoreBreakdown is filled for marketplace analyses only.
	ScoreBreakdown *ScoreBreakdown `json:"score_breakdown,omitempty"`
}

// ScoreBreakdown shows per-category signed contributions for marketplace
// analyses. Each field is the negated impact of its agent.
type ScoreBreakdown struct {
	BaseScore          int `json:"base_score"`
	SellerLongevity    int `json:"seller_longevity"`
	PostHistory        int `json:"post_history"`
	DescriptionQuality int `json:"description_quality"`
	ImageAnalysis      int `json:"image_analysis"`
	PriceAnalysis      int `json:"price_analysis"`
	RedFlags           int `json:"red_flags"`
	ResponsePatterns   int `json:"response_patterns"`
	RatingsImpact      int `json:"ratings_impact"`
	Total              int `json:"total"`
}
