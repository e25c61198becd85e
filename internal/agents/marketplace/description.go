package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

var (
	shoutRunsRx = regexp.MustCompile(`[!?]{2,}`)
	emojiRx     = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}]`)

	vaguePatterns = []struct {
		rx      *regexp.Regexp
		message string
	}{
		{regexp.MustCompile(`contacta?r?\s*(para|for)\s*(más|more|m[aá]s)\s*(info|información|details)`), `Información vaga: "contactar para más info"`},
		{regexp.MustCompile(`pregunt[ae]r?\s*(por|for)`), `Información vaga: "preguntar por detalles"`},
		{regexp.MustCompile(`no\s+preguntas?\s+tontas?`), "Lenguaje hostil hacia compradores"},
		{regexp.MustCompile(`solo\s+interesados?`), "Filtro de compradores"},
	}

	specificityPatterns = []struct {
		rx   *regexp.Regexp
		kind string
	}{
		{regexp.MustCompile(`\b\d+\s*(gb|tb|inch|pulgadas?|cm|mm|kg|lb)\b`), "specs"},
		{regexp.MustCompile(`\b(modelo|model|serie|series)\s*:?\s*\w+`), "model"},
		{regexp.MustCompile(`\b(marca|brand)\s*:?\s*\w+`), "brand"},
		{regexp.MustCompile(`\b\d{4}\b`), "year"},
		{regexp.MustCompile(`\b(original|auténtico|genuine|authentic)\b`), "authenticity"},
		{regexp.MustCompile(`\b(garant[ií]a|warranty)\b`), "warranty"},
		{regexp.MustCompile(`\b(factura|receipt|invoice)\b`), "receipt"},
	}
)

// DescriptionQuality grades the listing copy. Scam listings tend to be
// short, vague and shouty; real sellers mention specs, warranties and
// receipts.
type DescriptionQuality struct {
	log logging.Logger
}

var _ agent.Agent = (*DescriptionQuality)(nil)

func NewDescriptionQuality(logger logging.Logger) *DescriptionQuality {
	return &DescriptionQuality{log: logger.With(logging.Field{Key: "component", Value: "description_quality"})}
}

func (d *DescriptionQuality) Name() string { return "description_quality" }

func (d *DescriptionQuality) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}

	flags, details, raw := descriptionSignals(listingOf(req))
	details["raw_impact"] = raw
	impact := raw
	if impact < 0 {
		impact = 0
	}

	d.log.Debug("description quality scored",
		logging.Field{Key: "raw_impact", Value: raw},
		logging.Field{Key: "score_impact", Value: impact})

	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}, nil
}

func descriptionSignals(listing *model.ListingInfo) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0

	var title, description string
	if listing != nil {
		title = listing.Title
		description = listing.Description
	}

	descLen := utf8.RuneCountInString(description)
	details["has_description"] = strings.TrimSpace(description) != ""
	details["description_length"] = descLen

	if strings.TrimSpace(description) == "" {
		flags = append(flags, model.Warning("Publicación sin descripción"))
		details["quality_score"] = 0
		return flags, details, 15
	}

	switch {
	case descLen < 20:
		flags = append(flags, model.Warning("Descripción muy corta (menos de 20 caracteres)"))
		impact += 10
		details["length_rating"] = "very_short"
	case descLen < 50:
		impact += 5
		details["length_rating"] = "short"
	case descLen >= 150:
		impact -= 5
		details["length_rating"] = "detailed"
	default:
		details["length_rating"] = "adequate"
	}

	upper := 0
	for _, r := range description {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	upperRatio := float64(upper) / math.Max(float64(descLen), 1)
	details["uppercase_ratio"] = math.Round(upperRatio*100) / 100
	if upperRatio > 0.5 && descLen > 20 {
		flags = append(flags, model.Warning("Descripción mayormente en MAYÚSCULAS"))
		impact += 5
	}

	shouts := len(shoutRunsRx.FindAllString(description, -1))
	emojis := len(emojiRx.FindAllString(description, -1))
	details["excessive_punctuation"] = shouts
	details["emoji_count"] = emojis
	if shouts > 3 {
		impact += 3
	}

	lower := strings.ToLower(description)
	for _, v := range vaguePatterns {
		if v.rx.MatchString(lower) {
			flags = append(flags, model.Info(v.message))
			impact += 2
		}
	}

	found := []string{}
	for _, s := range specificityPatterns {
		if s.rx.MatchString(lower) {
			found = append(found, s.kind)
		}
	}
	details["specific_details"] = found
	details["specificity_count"] = len(found)
	if len(found) >= 3 {
		flags = append(flags, model.Info(fmt.Sprintf("Descripción con detalles específicos (%s)", strings.Join(found[:3], ", "))))
		impact -= 5
	}

	titleWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		titleWords[w] = true
	}
	common := map[string]bool{}
	for _, w := range strings.Fields(lower) {
		if titleWords[w] {
			common[w] = true
		}
	}
	relevance := float64(len(common)) / math.Max(float64(len(titleWords)), 1)
	details["title_description_relevance"] = math.Round(relevance*100) / 100

	// 0-100 readability grade for the UI: length and specificity push it
	// up, every penalty above pulls it down.
	quality := 50 + math.Min(float64(descLen)/5, 20) + float64(len(found))*5 - float64(impact)
	quality = math.Max(0, math.Min(100, quality))
	details["quality_score"] = int(math.Round(quality))

	return flags, details, impact
}
