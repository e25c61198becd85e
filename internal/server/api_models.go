package server

// HealthResponse reports liveness and which external API keys are usable.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service" example:"Confiable API"`

	// Config maps each API key name to "✓ configured" or "✗ missing".
	Config map[string]string `json:"config"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
