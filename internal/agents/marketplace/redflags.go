package marketplace

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

type textPattern struct {
	needle  string
	message string
}

var paymentRedFlags = []textPattern{
	{"zelle", "Menciona Zelle (pago fuera de plataforma)"},
	{"venmo", "Menciona Venmo (pago fuera de plataforma)"},
	{"cashapp", "Menciona CashApp (pago fuera de plataforma)"},
	{"cash app", "Menciona Cash App (pago fuera de plataforma)"},
	{"wire transfer", "Solicita transferencia bancaria"},
	{"transferencia", "Solicita transferencia bancaria"},
	{"gift card", "Menciona tarjetas de regalo (común en estafas)"},
	{"tarjeta de regalo", "Menciona tarjetas de regalo (común en estafas)"},
	{"crypto", "Solicita pago en criptomonedas"},
	{"bitcoin", "Solicita pago en Bitcoin"},
}

var contactRedFlags = []textPattern{
	{"whatsapp", "Solicita contacto por WhatsApp (evita registro de FB)"},
	{"telegram", "Solicita contacto por Telegram"},
	{"text me", "Solicita contacto directo por texto"},
	{"call me", "Solicita llamada directa"},
	{"escríbeme al", "Solicita contacto fuera de Facebook"},
}

var scamPhrases = []textPattern{
	{"serious buyers only", `Frase común en estafas: "serious buyers only"`},
	{"solo compradores serios", `Frase común en estafas: "solo compradores serios"`},
	{"no lowballers", "Frase defensiva común"},
	{"price is firm", "Precio no negociable puede indicar urgencia"},
	{"send deposit", "Solicita depósito por adelantado"},
	{"deposito", "Solicita depósito por adelantado"},
	{"shipping only", "Solo envío (no permite verificar en persona)"},
	{"solo envio", "Solo envío (no permite verificar en persona)"},
}

var emailRx = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)

// RedFlags scans listing text for the standard scam playbook: payment off
// the platform, contact off the platform, deposits, location mismatches.
type RedFlags struct {
	log logging.Logger
}

var _ agent.Agent = (*RedFlags)(nil)

func NewRedFlags(logger logging.Logger) *RedFlags {
	return &RedFlags{log: logger.With(logging.Field{Key: "component", Value: "red_flags"})}
}

func (r *RedFlags) Name() string { return "red_flags" }

func (r *RedFlags) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	flags, details, impact := redFlagSignals(listingOf(req), sellerOf(req))

	r.log.Debug("red flags scored",
		logging.Field{Key: "flags", Value: len(flags)},
		logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

func redFlagSignals(listing *model.ListingInfo, seller *model.SellerInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0

	var title, description string
	if listing != nil {
		title = listing.Title
		description = listing.Description
	}
	combined := strings.ToLower(title + " " + description)

	// Payment and contact groups flag the first match only.
	for _, p := range paymentRedFlags {
		if strings.Contains(combined, p.needle) {
			flags = append(flags, model.Critical(p.message))
			impact += 20
			details["payment_red_flag"] = p.needle
			break
		}
	}

	for _, p := range contactRedFlags {
		if strings.Contains(combined, p.needle) {
			flags = append(flags, model.Warning(p.message))
			impact += 10
			details["contact_bypass"] = p.needle
			break
		}
	}

	if emailRx.MatchString(combined) {
		flags = append(flags, model.Warning("Email en la descripción"))
		impact += 5
		details["email_in_description"] = true
	}

	for _, p := range scamPhrases {
		if strings.Contains(combined, p.needle) {
			flags = append(flags, model.Info(p.message))
			impact += 3
		}
	}

	if listing != nil && seller != nil && listing.Location != "" && seller.Location != "" &&
		!strings.EqualFold(listing.Location, seller.Location) {
		flags = append(flags, model.Warning(fmt.Sprintf("Ubicación del artículo (%s) diferente al vendedor (%s)", listing.Location, seller.Location)))
		impact += 10
		details["location_mismatch"] = true
	}

	if listing != nil && listing.PostedDate != "" {
		if days, ok := parsePostedDays(listing.PostedDate); ok {
			details["days_posted"] = days
		}
	}

	return flags, details, impact
}
