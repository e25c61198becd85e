// Package aggregate combines per-agent outputs into one scored verdict.
// The rule is uniform for every platform: agents deduct points from a base
// of 100 and the final score maps onto fixed risk bands.
package aggregate

import (
	"sort"

	"github.com/dtoro641/confiable/internal/model"
)

// Fixed risk bands. Product copy and the browser extension both assume
// these exact cut-offs.
const (
	SafeThreshold       = 80
	SuspiciousThreshold = 50
)

var defaultTitles = map[model.RiskLevel]string{
	model.RiskSafe:       "Todo limpio, procede a gastar tu dinero.",
	model.RiskSuspicious: "Huele a humo... mira estos detalles.",
	model.RiskDangerous:  "¡FUEGO! Saca tu tarjeta de aquí.",
}

const defaultMessage = "Revise los detalles a continuación."

const (
	noAgentsTitle   = "Sin análisis disponible"
	noAgentsMessage = "No hay agentes configurados para esta plataforma."
)

// RiskFromScore maps a 0..100 score onto a risk level.
func RiskFromScore(score int) model.RiskLevel {
	switch {
	case score >= SafeThreshold:
		return model.RiskSafe
	case score >= SuspiciousThreshold:
		return model.RiskSuspicious
	default:
		return model.RiskDangerous
	}
}

// Aggregate merges outputs into a single result.
//
// score = clamp(100 - sum of impacts, 0, 100). Flags concatenate in the
// given agent order with each agent's internal order kept and no
// deduplication. Details nest each agent's payload under its name. The
// verdict comes from verdictAgent when that output phrased one, otherwise
// from the risk level defaults.
//
// An empty outputs map yields the no-analysis default: score 100, safe,
// and an empty (non-nil) per-agent map so callers can tell "nothing ran"
// from "ran and found nothing".
func Aggregate(outputs map[string]*model.AgentResult, order []string, verdictAgent string) *model.AggregateResult {
	if outputs == nil {
		outputs = map[string]*model.AgentResult{}
	}

	res := &model.AggregateResult{
		Flags:           []model.Flag{},
		Details:         map[string]any{},
		PerAgentOutputs: outputs,
	}

	if len(outputs) == 0 {
		res.Score = 100
		res.RiskLevel = model.RiskSafe
		res.VerdictTitle = noAgentsTitle
		res.VerdictMessage = noAgentsMessage
		return res
	}

	total := 0
	for _, name := range effectiveOrder(outputs, order) {
		out := outputs[name]
		if out == nil {
			continue
		}
		total += out.ScoreImpact
		res.Flags = append(res.Flags, out.Flags...)
		if out.Details != nil {
			res.Details[name] = out.Details
		}
	}

	score := 100 - total
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	res.Score = score
	res.RiskLevel = RiskFromScore(score)

	res.VerdictTitle = defaultTitles[res.RiskLevel]
	res.VerdictMessage = defaultMessage
	if verdictAgent != "" {
		if v := outputs[verdictAgent]; v != nil {
			if v.VerdictTitle != "" {
				res.VerdictTitle = v.VerdictTitle
			}
			if v.VerdictMessage != "" {
				res.VerdictMessage = v.VerdictMessage
			}
		}
	}

	return res
}

// effectiveOrder is the configured order followed by any output names the
// order missed, sorted, so iteration stays deterministic no matter what.
func effectiveOrder(outputs map[string]*model.AgentResult, order []string) []string {
	seen := make(map[string]bool, len(order))
	eff := make([]string, 0, len(outputs))
	for _, name := range order {
		if _, ok := outputs[name]; ok && !seen[name] {
			eff = append(eff, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range outputs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(eff, extra...)
}
