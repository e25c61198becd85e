package marketplace

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

var (
	numericNameRx   = regexp.MustCompile(`\d{4,}`)
	strengthCountRx = regexp.MustCompile(`\((\d+)\)`)
)

// SellerTrust scores the seller profile itself: account age, ratings,
// badges, followers. Veteran accounts with real ratings earn credit back;
// fresh or bare profiles pay for it.
type SellerTrust struct {
	log logging.Logger
}

var _ agent.Agent = (*SellerTrust)(nil)

func NewSellerTrust(logger logging.Logger) *SellerTrust {
	return &SellerTrust{log: logger.With(logging.Field{Key: "component", Value: "seller_trust"})}
}

func (s *SellerTrust) Name() string { return "seller_trust" }

func (s *SellerTrust) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	seller := sellerOf(req)
	if seller == nil {
		// A seller the client could not scrape at all costs a flat penalty.
		return &model.AgentResult{Flags: []model.Flag{}, Details: map[string]any{}, ScoreImpact: 15}, nil
	}

	flags, details, raw := sellerTrustSignals(seller)
	details["raw_impact"] = raw
	impact := raw
	if impact < 0 {
		impact = 0
	}

	s.log.Debug("seller trust scored",
		logging.Field{Key: "raw_impact", Value: raw},
		logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

// sellerTrustSignals is the rule core. The raw total may go negative when
// the profile earns more credit than penalties; it is floored at -30.
func sellerTrustSignals(seller *model.SellerInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0
	if seller == nil {
		return flags, details, 15
	}

	if year, ok := parseJoinYear(seller.JoinDate); ok {
		age := time.Now().Year() - year
		details["account_age_years"] = age
		details["join_year"] = year
		switch {
		case age < 1:
			flags = append(flags, model.Critical(fmt.Sprintf("🚨 Cuenta muy nueva (creada en %d)", year)))
			impact += 30
			details["longevity_tier"] = "very_new"
		case age < 2:
			flags = append(flags, model.Warning(fmt.Sprintf("⚠️ Cuenta relativamente nueva (%d año)", age)))
			impact += 15
			details["longevity_tier"] = "new"
		case age < 3:
			flags = append(flags, model.Info(fmt.Sprintf("Cuenta con %d años en Facebook", age)))
			impact += 5
			details["longevity_tier"] = "moderate"
		case age < 5:
			flags = append(flags, model.Info(fmt.Sprintf("Cuenta establecida (%d años en Facebook)", age)))
			details["longevity_tier"] = "established"
		case age < 10:
			flags = append(flags, model.Info(fmt.Sprintf("✓ Cuenta veterana (%d años en Facebook)", age)))
			impact -= 10
			details["longevity_tier"] = "veteran"
		default:
			flags = append(flags, model.Info(fmt.Sprintf("⭐ Cuenta muy antigua (%d+ años en Facebook)", age)))
			impact -= 15
			details["longevity_tier"] = "senior"
		}
	} else {
		impact += 10
	}

	if seller.Name != "" {
		details["seller_name"] = seller.Name
		if numericNameRx.MatchString(seller.Name) {
			flags = append(flags, model.Warning("Nombre de perfil contiene muchos números"))
			impact += 5
		}
	}

	if seller.ResponseRate != "" {
		details["response_rate"] = seller.ResponseRate
		lower := strings.ToLower(seller.ResponseRate)
		if strings.Contains(lower, "hour") || strings.Contains(lower, "minute") {
			flags = append(flags, model.Info("Vendedor responde rápido: "+seller.ResponseRate))
		}
	}

	if seller.OtherListingsCount != nil {
		n := *seller.OtherListingsCount
		details["other_listings_count"] = n
		if n == 0 {
			flags = append(flags, model.Warning("Este es el único artículo del vendedor"))
			impact += 5
		} else if n > 50 {
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor activo con %d publicaciones", n)))
		}
	}

	if seller.ListingsCount != "" {
		details["listings_count"] = seller.ListingsCount
		if n, ok := parseListingsCount(seller.ListingsCount); ok {
			if n >= 10 {
				flags = append(flags, model.Info(fmt.Sprintf("Vendedor establecido con %s publicaciones", seller.ListingsCount)))
				impact -= 5
			} else if n <= 2 {
				flags = append(flags, model.Warning(fmt.Sprintf("Vendedor con pocas publicaciones (%s)", seller.ListingsCount)))
				impact += 5
			}
		}
	}

	if seller.FollowersCount != nil {
		n := *seller.FollowersCount
		details["followers_count"] = n
		if n >= 50 {
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con %d seguidores", n)))
			impact -= 5
		} else if n >= 10 {
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con %d seguidores", n)))
		}
	}

	if seller.RatingsCount != nil {
		n := *seller.RatingsCount
		details["ratings_count"] = n
		switch {
		case n >= 10:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con %d calificaciones", n)))
			impact -= 10
		case n >= 5:
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con %d calificaciones", n)))
			impact -= 5
		case n == 0:
			flags = append(flags, model.Warning("Vendedor sin calificaciones"))
			impact += 10
		}
	}

	if seller.RatingsAverage != nil {
		avg := *seller.RatingsAverage
		details["ratings_average"] = avg
		switch {
		case avg >= 4.5:
			flags = append(flags, model.Info(fmt.Sprintf("Excelente calificación: %.1f estrellas ⭐", avg)))
			impact -= 10
		case avg >= 4.0:
			flags = append(flags, model.Info(fmt.Sprintf("Buena calificación: %.1f estrellas", avg)))
			impact -= 5
		case avg < 3.0:
			flags = append(flags, model.Critical(fmt.Sprintf("Calificación baja: %.1f estrellas", avg)))
			impact += 20
		}
	}

	if len(seller.Badges) > 0 {
		details["badges"] = seller.Badges
		for _, badge := range seller.Badges {
			lower := strings.ToLower(badge)
			switch {
			case strings.Contains(lower, "buena calificación") || strings.Contains(lower, "good rating"):
				flags = append(flags, model.Info("🏆 Insignia: "+badge))
				impact -= 10
			case strings.Contains(lower, "responde rápido") || strings.Contains(lower, "responds quickly"):
				flags = append(flags, model.Info("⚡ Insignia: "+badge))
				impact -= 5
			case strings.Contains(lower, "destacado") || strings.Contains(lower, "top"):
				flags = append(flags, model.Info("🌟 Vendedor destacado"))
				impact -= 15
			}
		}
	}

	if len(seller.Strengths) > 0 {
		details["strengths"] = seller.Strengths
		total := 0
		for _, strength := range seller.Strengths {
			// Profile strengths read "Comunicación (13)".
			if m := strengthCountRx.FindStringSubmatch(strength); m != nil {
				n, _ := strconv.Atoi(m[1])
				total += n
			}
		}
		if total >= 20 {
			flags = append(flags, model.Info(fmt.Sprintf("Vendedor con %d+ reseñas positivas en aspectos clave", total)))
			impact -= 10
		} else if total >= 5 {
			top := seller.Strengths
			if len(top) > 3 {
				top = top[:3]
			}
			flags = append(flags, model.Info("Fortalezas del vendedor: "+strings.Join(top, ", ")))
			impact -= 5
		}
	}

	if seller.ProfileScreenshot != "" {
		details["profile_investigated"] = true
	}

	if impact < -30 {
		impact = -30
	}
	return flags, details, impact
}
