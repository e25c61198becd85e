package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/utils"
)

type marketRange struct {
	product  string
	min, max float64
}

// marketPriceRanges holds approximate USD resale ranges for the products
// that dominate marketplace scams.
var marketPriceRanges = []marketRange{
	{"iphone 15 pro max", 900, 1400},
	{"iphone 15 pro", 800, 1200},
	{"iphone 15", 600, 1000},
	{"iphone 14 pro max", 700, 1100},
	{"iphone 14 pro", 600, 1000},
	{"iphone 14", 500, 800},
	{"iphone 13", 400, 700},
	{"iphone 12", 300, 500},
	{"iphone 11", 200, 400},
	{"samsung galaxy s24", 600, 1000},
	{"samsung galaxy s23", 500, 900},
	{"samsung galaxy s22", 400, 700},
	{"macbook pro 16", 1500, 3500},
	{"macbook pro 14", 1200, 3000},
	{"macbook pro 13", 800, 2000},
	{"macbook air m2", 800, 1500},
	{"macbook air m1", 600, 1200},
	{"macbook air", 500, 1500},
	{"imac", 800, 2500},
	{"ipad pro", 500, 1500},
	{"ipad air", 400, 900},
	{"ipad", 250, 600},
	{"ps5", 350, 600},
	{"playstation 5", 350, 600},
	{"xbox series x", 350, 550},
	{"xbox series s", 200, 350},
	{"nintendo switch oled", 280, 400},
	{"nintendo switch", 200, 350},
	{"steam deck", 350, 700},
	{"rtx 4090", 1500, 2500},
	{"rtx 4080", 900, 1500},
	{"rtx 4070", 500, 800},
	{"rtx 3080", 400, 800},
	{"rtx 3070", 300, 600},
	{"rtx 3060", 200, 400},
	{"airpods pro", 150, 280},
	{"airpods max", 350, 600},
	{"apple watch ultra", 500, 900},
	{"apple watch series 9", 300, 500},
	{"apple watch", 150, 500},
}

// findMarketRange matches the longest product key contained in the title,
// so "iphone 15 pro max" never falls through to the plain "iphone 15" row.
func findMarketRange(title string) (marketRange, bool) {
	lower := strings.ToLower(title)
	var best marketRange
	found := false
	for _, r := range marketPriceRanges {
		if !strings.Contains(lower, r.product) {
			continue
		}
		if !found || len(r.product) > len(best.product) {
			best = r
			found = true
		}
	}
	return best, found
}

// PriceAnalysis compares the asking price against known market ranges and
// grades how believable it is.
type PriceAnalysis struct {
	log logging.Logger
}

var _ agent.Agent = (*PriceAnalysis)(nil)

func NewPriceAnalysis(logger logging.Logger) *PriceAnalysis {
	return &PriceAnalysis{log: logger.With(logging.Field{Key: "component", Value: "price_analysis"})}
}

func (p *PriceAnalysis) Name() string { return "price_analysis" }

func (p *PriceAnalysis) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	flags, details, raw := marketPriceSignals(listingOf(req))
	details["raw_impact"] = raw
	impact := raw
	if impact < 0 {
		impact = 0
	}

	p.log.Debug("price analysis scored",
		logging.Field{Key: "raw_impact", Value: raw},
		logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

func marketPriceSignals(listing *model.ListingInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0

	if listing == nil || listing.Price == "" {
		details["price_analysis_available"] = false
		return flags, details, 0
	}

	details["price_raw"] = listing.Price
	details["price_analysis_available"] = true

	price, ok := parsePrice(listing.Price)
	if !ok {
		details["price_numeric"] = nil
		return flags, details, 0
	}
	details["price_numeric"] = price

	if r, matched := findMarketRange(listing.Title); matched {
		details["matched_product"] = r.product
		details["market_price_min"] = r.min
		details["market_price_max"] = r.max
		mid := (r.min + r.max) / 2

		priceTxt := "$" + utils.FormatThousands(price)
		rangeTxt := fmt.Sprintf("$%s-$%s", utils.FormatThousands(r.min), utils.FormatThousands(r.max))

		switch {
		case price == 0:
			flags = append(flags, model.Critical(fmt.Sprintf("🚨 %s GRATIS - Muy probablemente estafa", strings.ToUpper(r.product))))
			impact += 35
			details["price_tier"] = "scam"
			details["price_vs_market"] = "free"
		case price < r.min*0.3:
			flags = append(flags, model.Critical(fmt.Sprintf("🚨 Precio ridículamente bajo para %s: %s (mercado: %s)", r.product, priceTxt, rangeTxt)))
			impact += 30
			details["price_tier"] = "scam"
			details["price_vs_market"] = "extreme_low"
		case price < r.min*0.5:
			flags = append(flags, model.Critical(fmt.Sprintf("⚠️ Precio muy sospechoso para %s: %s (mercado: %s)", r.product, priceTxt, rangeTxt)))
			impact += 20
			details["price_tier"] = "very_suspicious"
			details["price_vs_market"] = "very_low"
		case price < r.min*0.7:
			flags = append(flags, model.Warning(fmt.Sprintf("Precio bajo para %s: %s (mercado: %s)", r.product, priceTxt, rangeTxt)))
			impact += 10
			details["price_tier"] = "suspicious"
			details["price_vs_market"] = "low"
		case price <= r.max*1.1:
			flags = append(flags, model.Info(fmt.Sprintf("✓ Precio razonable para %s: %s", r.product, priceTxt)))
			impact -= 5
			details["price_tier"] = "fair"
			details["price_vs_market"] = "market_rate"
		default:
			flags = append(flags, model.Info(fmt.Sprintf("Precio por encima del mercado para %s: %s", r.product, priceTxt)))
			details["price_tier"] = "high"
			details["price_vs_market"] = "above_market"
		}

		if mid > 0 {
			details["discount_from_market"] = math.Round(((mid-price)/mid)*1000) / 10
		}
	} else {
		details["matched_product"] = nil
		switch {
		case price == 0:
			flags = append(flags, model.Warning("Artículo gratis - verifica legitimidad"))
			impact += 10
			details["price_tier"] = "free"
		case price < 10:
			flags = append(flags, model.Info("Precio muy bajo - verifica que sea real"))
			impact += 5
			details["price_tier"] = "very_low"
		default:
			details["price_tier"] = "unknown"
		}
	}

	if price > 0 {
		if price >= 100 && price < 1000 && math.Mod(price, 100) == 0 {
			details["suspiciously_round"] = true
		}
		if listing.Condition != "" {
			lower := strings.ToLower(listing.Condition)
			if strings.Contains(lower, "new") || strings.Contains(lower, "nuevo") {
				details["claimed_condition"] = "new"
			} else if strings.Contains(lower, "used") || strings.Contains(lower, "usado") {
				details["claimed_condition"] = "used"
			}
		}
	}

	return flags, details, impact
}
