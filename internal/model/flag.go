package model

// Severity classifies how alarming a single finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// RiskLevel is the overall classification of an analyzed purchase context.
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskSuspicious RiskLevel = "suspicious"
	RiskDangerous  RiskLevel = "dangerous"
)

// Flag is a single user-facing finding produced by an agent.
// The wire names ("type", "msg") are fixed; browser extensions consume them.
type Flag struct {
	Severity Severity `json:"type"`
	Message  string   `json:"msg"`
}

// Critical builds a critical flag.
func Critical(msg string) Flag { return Flag{Severity: SeverityCritical, Message: msg} }

// Warning builds a warning flag.
func Warning(msg string) Flag { return Flag{Severity: SeverityWarning, Message: msg} }

// Info builds an info flag.
func Info(msg string) Flag { return Flag{Severity: SeverityInfo, Message: msg} }
