package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

// SellerHistory reads the posting track record. A first listing is the
// classic throwaway-account tell; a deep catalog buys the seller slack.
type SellerHistory struct {
	log logging.Logger
}

var _ agent.Agent = (*SellerHistory)(nil)

func NewSellerHistory(logger logging.Logger) *SellerHistory {
	return &SellerHistory{log: logger.With(logging.Field{Key: "component", Value: "seller_history"})}
}

func (s *SellerHistory) Name() string { return "seller_history" }

func (s *SellerHistory) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	seller := sellerOf(req)
	if seller == nil {
		return &model.AgentResult{Flags: []model.Flag{}, Details: map[string]any{}}, nil
	}

	flags, details, raw := sellerHistorySignals(seller)
	details["raw_impact"] = raw
	impact := raw
	if impact < 0 {
		impact = 0
	}

	s.log.Debug("seller history scored",
		logging.Field{Key: "raw_impact", Value: raw},
		logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

func sellerHistorySignals(seller *model.SellerInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0
	if seller == nil {
		return flags, details, 0
	}

	if n, ok := parseListingsCount(seller.ListingsCount); ok {
		details["listings_count_parsed"] = n
		details["has_listing_history"] = n > 0
		switch {
		case n == 0:
			flags = append(flags, model.Critical("Primera publicación del vendedor (sin historial)"))
			impact += 25
			details["seller_experience"] = "first_time"
		case n <= 2:
			flags = append(flags, model.Warning(fmt.Sprintf("Vendedor con muy pocas publicaciones (%d)", n)))
			impact += 15
			details["seller_experience"] = "beginner"
		case n <= 5:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con pocas publicaciones (%d)", n)))
			impact += 5
			details["seller_experience"] = "novice"
		case n <= 20:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con historial moderado (%d+ publicaciones)", n)))
			details["seller_experience"] = "moderate"
		case n <= 50:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor experimentado (%d+ publicaciones)", n)))
			impact -= 10
			details["seller_experience"] = "experienced"
		default:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor muy activo (%d+ publicaciones)", n)))
			impact -= 15
			details["seller_experience"] = "power_seller"
		}
		return flags, details, impact
	}

	details["listings_count_parsed"] = nil
	details["has_listing_history"] = nil

	if seller.OtherListingsCount != nil {
		details["other_listings_count"] = *seller.OtherListingsCount
		if *seller.OtherListingsCount == 0 {
			flags = append(flags, model.Warning("Este es el único artículo del vendedor"))
			impact += 10
		}
	}
	return flags, details, impact
}
