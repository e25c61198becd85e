package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/search"
	"github.com/dtoro641/confiable/internal/utils"
)

var (
	countrySuffixRx = regexp.MustCompile(`(?i)\s*(Chile|México|Argentina|España|Colombia|Online|Store|Shop|Tienda).*$`)
	starRatingRx    = regexp.MustCompile(`(?i)(\d[.,]\d)\s*(out of 5|/5|stars|estrellas|-star)`)
)

const reviewsSummarySystem = "Eres un analista de reputación de negocios. Analiza reseñas objetivamente. " +
	"Siempre responde en JSON válido sin markdown."

type reviewEntry struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

type googleBusiness struct {
	Found   bool   `json:"found"`
	Summary string `json:"summary"`
}

// Reviews searches the open web for reputation signals about the store:
// its Google Business listing, Trustpilot page and general review chatter,
// then has the model summarize sentiment.
type Reviews struct {
	llm    llm.Completer
	search search.Searcher
	log    logging.Logger
}

var _ agent.Agent = (*Reviews)(nil)

func NewReviews(completer llm.Completer, searcher search.Searcher, logger logging.Logger) *Reviews {
	return &Reviews{
		llm:    completer,
		search: searcher,
		log:    logger.With(logging.Field{Key: "component", Value: "reviews"}),
	}
}

func (r *Reviews) Name() string { return "reviews" }

func (r *Reviews) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Page == nil {
		return nil, errors.New("page payload required")
	}
	start := time.Now()

	if !r.search.Configured() {
		return &model.AgentResult{
			Flags:   []model.Flag{model.Info("Review search skipped (TAVILY_API_KEY not configured)")},
			Details: map[string]any{"reviews_checked": false, "reason": "API key not configured"},
		}, nil
	}

	domain := utils.Hostname(req.Page.URL)
	business := businessName(req.Page.Title, domain)
	base := utils.DomainBase(domain)
	parts := strings.Split(domain, ".")
	ownTLD := "." + parts[len(parts)-1]

	opts := search.Options{Depth: "advanced", MaxResults: 5, IncludeAnswer: true}

	var (
		googleResp, tpResp, generalResp *search.Response
		googleErr, tpErr, generalErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := fmt.Sprintf(`site:google.com/maps "%s" OR "%s" reviews`, business, domain)
		googleResp, googleErr = r.search.Search(gctx, query, opts)
		if googleErr != nil {
			r.log.Warn("google search failed", logging.Field{Key: "error", Value: googleErr.Error()})
		}
		return nil
	})
	g.Go(func() error {
		tpResp, tpErr = r.search.Search(gctx, fmt.Sprintf(`site:trustpilot.com "%s"`, domain), opts)
		if tpErr != nil {
			r.log.Warn("trustpilot search failed", logging.Field{Key: "error", Value: tpErr.Error()})
		}
		return nil
	})
	g.Go(func() error {
		query := fmt.Sprintf(`"%s" opiniones reseñas experiencia compra -"%s.com"`, domain, base)
		generalResp, generalErr = r.search.Search(gctx, query, opts)
		if generalErr != nil {
			r.log.Warn("general search failed", logging.Field{Key: "error", Value: generalErr.Error()})
		}
		return nil
	})
	_ = g.Wait()

	// All three searches down means no reputation signal at all; report that
	// instead of pretending the business has no reviews.
	if googleResp == nil && tpResp == nil && generalResp == nil {
		searchErr := googleErr
		if searchErr == nil {
			searchErr = tpErr
		}
		if searchErr == nil {
			searchErr = generalErr
		}
		if searchErr != nil {
			return &model.AgentResult{
				Flags:   []model.Flag{model.Info("No se pudo completar la búsqueda de reseñas: " + searchErr.Error())},
				Details: map[string]any{"reviews_checked": false, "error": searchErr.Error()},
			}, nil
		}
	}

	var gbInfo *googleBusiness
	var googleReviews []reviewEntry
	if googleResp != nil {
		if googleResp.Answer != "" {
			gbInfo = &googleBusiness{Found: true, Summary: utils.TruncateRunes(googleResp.Answer, 500)}
		}
		for _, res := range googleResp.Results {
			contentLower := strings.ToLower(res.Content)
			urlLower := strings.ToLower(res.URL)

			// A .com result is no evidence about the .cl store (and vice versa).
			if mentionsOtherTLD(contentLower, base, ownTLD, []string{".com", ".net", ".org", ".es", ".mx", ".ar"}) {
				continue
			}
			if strings.Contains(urlLower, "support.google.com") || strings.Contains(urlLower, "help.google.com") {
				continue
			}
			if len(res.Content) <= 50 {
				continue
			}
			source := "Google"
			if strings.Contains(urlLower, "trustpilot.com") {
				source = "Trustpilot"
			} else if strings.Contains(urlLower, "google.com/maps") {
				source = "Google Maps"
			}
			googleReviews = append(googleReviews, newReviewEntry(source, "Google Review", res))
		}
	}

	var tpReviews []reviewEntry
	var tpRating, tpURL string
	if tpResp != nil {
		domainLower := strings.ToLower(domain)
		for _, res := range tpResp.Results {
			urlLower := strings.ToLower(res.URL)
			if !strings.Contains(urlLower, "trustpilot.com") {
				continue
			}
			urlHasExact := strings.Contains(urlLower, domainLower)
			contentLower := strings.ToLower(res.Content + " " + res.Title)

			wrong := false
			for _, tld := range []string{".com", ".net", ".org", ".es", ".mx", ".ar", ".co", ".us", ".uk"} {
				if tld == ownTLD {
					continue
				}
				other := base + tld
				if strings.Contains(urlLower, other) && !strings.Contains(urlLower, domainLower) {
					wrong = true
					break
				}
				if (strings.Contains(contentLower, "reviews of "+other) || strings.Contains(urlLower, "review/"+other)) &&
					!strings.Contains(urlLower, domainLower) {
					wrong = true
					break
				}
			}
			if wrong {
				continue
			}

			if urlHasExact || strings.Contains(contentLower, domainLower) {
				if tpURL == "" || urlHasExact {
					tpURL = res.URL
				}
				if tpRating == "" {
					if m := starRatingRx.FindStringSubmatch(res.Content); m != nil {
						tpRating = strings.ReplaceAll(m[1], ",", ".")
					}
				}
				if len(res.Content) > 50 {
					tpReviews = append(tpReviews, newReviewEntry("Trustpilot", "Trustpilot Review", res))
				}
			}
		}
	}

	var generalReviews []reviewEntry
	if generalResp != nil {
		domainLower := strings.ToLower(domain)
		for _, res := range generalResp.Results {
			urlLower := strings.ToLower(res.URL)
			if strings.Contains(urlLower, "trustpilot.com") {
				continue
			}
			contentLower := strings.ToLower(res.Content + " " + res.Title)

			wrong := false
			for _, tld := range []string{".com", ".net", ".org", ".es", ".mx", ".ar", ".co", ".us", ".uk"} {
				if tld == ownTLD {
					continue
				}
				if strings.Contains(contentLower, base+tld) && !strings.Contains(contentLower, domainLower) {
					wrong = true
					break
				}
			}
			if wrong {
				continue
			}

			source := "Web"
			switch {
			case strings.Contains(urlLower, "google"):
				source = "Google"
			case strings.Contains(urlLower, "facebook"):
				source = "Facebook"
			case strings.Contains(urlLower, "yelp"):
				source = "Yelp"
			case strings.Contains(urlLower, "reddit"):
				source = "Reddit"
			}
			if len(res.Content) > 50 {
				generalReviews = append(generalReviews, newReviewEntry(source, "Review", res))
			}
		}
	}

	var all []reviewEntry
	all = append(all, tpReviews...)
	all = append(all, googleReviews...)
	all = append(all, generalReviews...)

	seen := map[string]bool{}
	unique := all[:0]
	for _, rev := range all {
		key := strings.ToLower(rev.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rev)
	}
	all = unique
	display := all
	if len(display) > 5 {
		display = display[:5]
	}

	var summaryText any
	sentiment := 50
	keyPositives := []string{}
	keyNegatives := []string{}
	trust := "neutral"

	if len(all) >= 3 {
		summary, err := r.summarize(ctx, business, domain, all)
		if err != nil {
			r.log.Warn("review summary failed", logging.Field{Key: "error", Value: err.Error()})
		} else if summary.raw != "" {
			summaryText = summary.raw
		} else {
			summaryText = summary.Summary
			sentiment = summary.Sentiment
			keyPositives = summary.KeyPositives
			keyNegatives = summary.KeyNegatives
			trust = summary.TrustAssessment
		}
	}

	flags := []model.Flag{}
	impact := 0

	if sentiment >= 70 {
		flags = append(flags, model.Info(fmt.Sprintf("✓ Reputación positiva en línea (puntuación: %d/100)", sentiment)))
		impact -= 5
	} else if sentiment <= 30 {
		flags = append(flags, model.Warning(fmt.Sprintf("⚠️ Reputación negativa en línea (puntuación: %d/100)", sentiment)))
		impact += 10
	}

	if tpRating != "" {
		if rating, err := strconv.ParseFloat(tpRating, 64); err == nil {
			if rating >= 4.0 {
				flags = append(flags, model.Info(fmt.Sprintf("✓ Trustpilot: %s/5 estrellas", tpRating)))
			} else if rating < 2.5 {
				flags = append(flags, model.Warning(fmt.Sprintf("⚠️ Trustpilot: %s/5 estrellas (bajo)", tpRating)))
			}
		}
	}

	switch trust {
	case "suspicious":
		flags = append(flags, model.Warning("Las reseñas sugieren precaución con este sitio"))
	case "trustworthy":
		flags = append(flags, model.Info("✓ Las reseñas sugieren que es un sitio confiable"))
	}

	if len(all) == 0 {
		flags = append(flags, model.Warning("No se encontraron reseñas en línea para este negocio"))
	} else {
		var sources []string
		seenSource := map[string]bool{}
		for _, rev := range all {
			if !seenSource[rev.Source] {
				seenSource[rev.Source] = true
				sources = append(sources, rev.Source)
			}
		}
		flags = append(flags, model.Info(fmt.Sprintf("📊 Se encontraron %d reseñas de %s", len(all), strings.Join(sources, ", "))))
	}

	if impact < 0 {
		impact = 0
	}

	r.log.Info("reviews analysis complete",
		logging.Field{Key: "reviews", Value: len(all)},
		logging.Field{Key: "score_impact", Value: impact},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})

	return &model.AgentResult{
		Flags: flags,
		Details: map[string]any{
			"reviews_checked":   true,
			"business_name":     business,
			"domain":            domain,
			"google_business":   gbInfo,
			"trustpilot_rating": orNil(tpRating),
			"trustpilot_url":    orNil(tpURL),
			"review_summary":    summaryText,
			"sentiment_score":   sentiment,
			"trust_assessment":  trust,
			"key_positives":     keyPositives,
			"key_negatives":     keyNegatives,
			"reviews_count":     len(all),
			"reviews":           display,
		},
		ScoreImpact: impact,
	}, nil
}

type reviewSummary struct {
	Summary         string   `json:"summary"`
	Sentiment       int      `json:"sentiment"`
	KeyPositives    []string `json:"key_positives"`
	KeyNegatives    []string `json:"key_negatives"`
	TrustAssessment string   `json:"trust_assessment"`

	// raw carries the model reply when it was not parseable JSON.
	raw string
}

func (r *Reviews) summarize(ctx context.Context, business, domain string, reviews []reviewEntry) (*reviewSummary, error) {
	top := reviews
	if len(top) > 10 {
		top = top[:10]
	}
	var lines []string
	for _, rev := range top {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", rev.Source, rev.Title, rev.Content))
	}

	prompt := fmt.Sprintf(`Analiza las siguientes reseñas y opiniones sobre "%s" (%s):

%s

Proporciona un JSON con:
1. "summary": Un resumen conciso (2-3 oraciones) de la reputación general del negocio basado en las reseñas
2. "sentiment": Un score de 0-100 donde 0=muy negativo, 50=neutral, 100=muy positivo
3. "key_positives": Lista de hasta 3 aspectos positivos mencionados
4. "key_negatives": Lista de hasta 3 aspectos negativos o preocupaciones mencionadas
5. "trust_assessment": "trustworthy", "neutral", o "suspicious" basado en las reseñas

Responde SOLO con el JSON válido, sin markdown.`, business, domain, strings.Join(lines, "\n\n"))

	reply, err := r.llm.Complete(ctx, llm.Request{
		Model:    r.llm.TextModel(),
		System:   reviewsSummarySystem,
		Messages: []llm.Message{llm.UserText(prompt)},
	})
	if err != nil {
		return nil, err
	}

	out := reviewSummary{Sentiment: 50, TrustAssessment: "neutral", KeyPositives: []string{}, KeyNegatives: []string{}}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(reply)), &out); err != nil {
		return &reviewSummary{raw: utils.TruncateRunes(reply, 500)}, nil
	}
	return &out, nil
}

func newReviewEntry(source, fallbackTitle string, res search.Result) reviewEntry {
	title := res.Title
	if title == "" {
		title = fallbackTitle
	}
	return reviewEntry{
		Source:  source,
		Title:   utils.TruncateRunes(title, 100),
		Content: utils.TruncateRunes(res.Content, 300),
		URL:     res.URL,
	}
}

func mentionsOtherTLD(haystack, base, ownTLD string, tlds []string) bool {
	for _, tld := range tlds {
		if tld == ownTLD {
			continue
		}
		if strings.Contains(haystack, base+tld) {
			return true
		}
	}
	return false
}

// businessName guesses the store's name from the page title suffix, falling
// back to the capitalized domain base.
func businessName(title, domain string) string {
	if title != "" {
		for _, sep := range []string{" | ", " - ", " – ", " — "} {
			if !strings.Contains(title, sep) {
				continue
			}
			parts := strings.Split(title, sep)
			if len(parts) < 2 {
				continue
			}
			brand := strings.TrimSpace(parts[len(parts)-1])
			brand = strings.TrimSpace(countrySuffixRx.ReplaceAllString(brand, ""))
			if utf8.RuneCountInString(brand) > 2 {
				return brand
			}
		}
	}
	return capitalize(utils.DomainBase(domain))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
