package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

var highValueKeywords = []string{
	"iphone", "macbook", "playstation", "ps5", "xbox",
	"nintendo", "laptop", "samsung", "gpu", "rtx",
}

var urgencyTerms = []string{"urge", "urgente", "hoy", "today only", "must go", "moving"}

// Pricing flags too-good-to-be-true asks: free bait, high-value hardware
// at pocket-change prices, urgency language.
type Pricing struct {
	log logging.Logger
}

var _ agent.Agent = (*Pricing)(nil)

func NewPricing(logger logging.Logger) *Pricing {
	return &Pricing{log: logger.With(logging.Field{Key: "component", Value: "pricing"})}
}

func (p *Pricing) Name() string { return "pricing" }

func (p *Pricing) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	flags, details, impact := pricingSignals(listingOf(req))

	p.log.Debug("pricing scored", logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

func pricingSignals(listing *model.ListingInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0
	if listing == nil || listing.Price == "" {
		return flags, details, 0
	}

	details["price_raw"] = listing.Price
	title := strings.ToLower(listing.Title)
	description := strings.ToLower(listing.Description)

	if price, ok := parsePrice(listing.Price); ok {
		details["price_numeric"] = price

		if price == 0 {
			flags = append(flags, model.Warning("Artículo gratis - verifica que no sea carnada"))
			impact += 10
		}

		for _, kw := range highValueKeywords {
			if !strings.Contains(title, kw) {
				continue
			}
			if price > 0 && price < 100 {
				flags = append(flags, model.Critical(fmt.Sprintf("Precio sospechosamente bajo para %s: %s", strings.ToUpper(kw), listing.Price)))
				impact += 25
			} else if price > 0 && price < 300 {
				flags = append(flags, model.Warning(fmt.Sprintf("Precio muy bajo para %s: %s", strings.ToUpper(kw), listing.Price)))
				impact += 10
			}
			break
		}
	}

	for _, term := range urgencyTerms {
		if strings.Contains(title, term) || strings.Contains(description, term) {
			details["has_urgency"] = true
			break
		}
	}

	return flags, details, impact
}
