package storefront_test

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/dtoro641/confiable/internal/agents/storefront"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/search"
	"github.com/dtoro641/confiable/internal/testutil"
)

const longContent = "Muy buena experiencia de compra, despacho rápido y el producto llegó tal como se describe en la página."

// routedSearcher answers each of the three review searches differently.
func routedSearcher(google, trustpilot, general *search.Response) *testutil.DummySearcher {
	return &testutil.DummySearcher{Fn: func(query string) (*search.Response, error) {
		switch {
		case strings.Contains(query, "google.com/maps"):
			return google, nil
		case strings.Contains(query, "trustpilot.com"):
			return trustpilot, nil
		default:
			return general, nil
		}
	}}
}

func sentimentJSON(sentiment int, trust string) string {
	return `{"summary": "Resumen de reputación.", "sentiment": ` + strconv.Itoa(sentiment) + `,
		"key_positives": ["despacho rápido"], "key_negatives": [], "trust_assessment": "` + trust + `"}`
}

func TestReviews_SkippedWithoutKey(t *testing.T) {
	t.Parallel()

	completer := &testutil.DummyCompleter{}
	rev := storefront.NewReviews(completer, &testutil.DummySearcher{Unconfigured: true}, &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "Review search skipped (TAVILY_API_KEY not configured)")
	if res.Details["reviews_checked"] != false {
		t.Error("reviews_checked should be false")
	}
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0", res.ScoreImpact)
	}
	if completer.CallCount() != 0 {
		t.Error("no completion should happen when search is not configured")
	}
}

func TestReviews_PositiveReputation(t *testing.T) {
	t.Parallel()

	general := &search.Response{Results: []search.Result{
		{Title: "Opiniones", URL: "https://resenas.example/a", Content: longContent},
		{Title: "Reseña", URL: "https://resenas.example/b", Content: longContent},
		{Title: "Experiencia", URL: "https://foro.example/c", Content: longContent},
	}}
	completer := &testutil.DummyCompleter{Response: sentimentJSON(85, "trustworthy")}
	rev := storefront.NewReviews(completer, routedSearcher(nil, nil, general), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "✓ Reputación positiva en línea (puntuación: 85/100)")
	hasFlag(t, res.Flags, model.SeverityInfo, "✓ Las reseñas sugieren que es un sitio confiable")
	hasFlag(t, res.Flags, model.SeverityInfo, "📊 Se encontraron 3 reseñas de Web")
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0 (positive adjustment clamps)", res.ScoreImpact)
	}
	if res.Details["sentiment_score"] != 85 {
		t.Errorf("sentiment_score = %v", res.Details["sentiment_score"])
	}
}

func TestReviews_NegativeReputation(t *testing.T) {
	t.Parallel()

	general := &search.Response{Results: []search.Result{
		{Title: "Estafa", URL: "https://resenas.example/a", Content: longContent},
		{Title: "No llegó", URL: "https://resenas.example/b", Content: longContent},
		{Title: "Malo", URL: "https://foro.example/c", Content: longContent},
	}}
	completer := &testutil.DummyCompleter{Response: sentimentJSON(20, "suspicious")}
	rev := storefront.NewReviews(completer, routedSearcher(nil, nil, general), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 10 {
		t.Errorf("impact = %d, want 10", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "⚠️ Reputación negativa en línea (puntuación: 20/100)")
	hasFlag(t, res.Flags, model.SeverityWarning, "Las reseñas sugieren precaución con este sitio")
}

func TestReviews_TrustpilotRating(t *testing.T) {
	t.Parallel()

	tp := &search.Response{Results: []search.Result{{
		Title:   "Tienda-ejemplo Reviews",
		URL:     "https://www.trustpilot.com/review/tienda-ejemplo.cl",
		Content: "Rated 4,5 out of 5 stars. " + longContent,
	}}}
	completer := &testutil.DummyCompleter{Response: sentimentJSON(50, "neutral")}
	rev := storefront.NewReviews(completer, routedSearcher(nil, tp, nil), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "✓ Trustpilot: 4.5/5 estrellas")
	if res.Details["trustpilot_rating"] != "4.5" {
		t.Errorf("trustpilot_rating = %v", res.Details["trustpilot_rating"])
	}
	if res.Details["trustpilot_url"] != "https://www.trustpilot.com/review/tienda-ejemplo.cl" {
		t.Errorf("trustpilot_url = %v", res.Details["trustpilot_url"])
	}
}

func TestReviews_FiltersWrongTLDAndShortContent(t *testing.T) {
	t.Parallel()

	google := &search.Response{Results: []search.Result{
		{Title: "Wrong store", URL: "https://google.com/maps/a", Content: "Reviews for tienda-ejemplo.com store, " + longContent},
		{Title: "Too short", URL: "https://google.com/maps/b", Content: "corto"},
		{Title: "Help page", URL: "https://support.google.com/x", Content: longContent},
	}}
	completer := &testutil.DummyCompleter{}
	rev := storefront.NewReviews(completer, routedSearcher(google, nil, nil), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Details["reviews_count"] != 0 {
		t.Errorf("reviews_count = %v, want 0", res.Details["reviews_count"])
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "No se encontraron reseñas en línea para este negocio")
}

func TestReviews_FewReviewsSkipSummary(t *testing.T) {
	t.Parallel()

	general := &search.Response{Results: []search.Result{
		{Title: "Única reseña", URL: "https://resenas.example/a", Content: longContent},
	}}
	completer := &testutil.DummyCompleter{}
	rev := storefront.NewReviews(completer, routedSearcher(nil, nil, general), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if completer.CallCount() != 0 {
		t.Errorf("summary should need 3+ reviews, got %d completions", completer.CallCount())
	}
	if res.Details["sentiment_score"] != 50 {
		t.Errorf("sentiment_score = %v, want neutral default", res.Details["sentiment_score"])
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "📊 Se encontraron 1 reseñas de Web")
}

func TestReviews_DedupesAcrossSearches(t *testing.T) {
	t.Parallel()

	shared := search.Result{Title: "Reseña", URL: "https://resenas.example/misma", Content: longContent}
	google := &search.Response{Results: []search.Result{shared}}
	general := &search.Response{Results: []search.Result{shared}}
	completer := &testutil.DummyCompleter{}
	rev := storefront.NewReviews(completer, routedSearcher(google, nil, general), &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Details["reviews_count"] != 1 {
		t.Errorf("reviews_count = %v, want 1 after dedupe", res.Details["reviews_count"])
	}
}

func TestReviews_BusinessNameFromTitle(t *testing.T) {
	t.Parallel()

	searcher := routedSearcher(nil, nil, nil)
	rev := storefront.NewReviews(&testutil.DummyCompleter{}, searcher, &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Details["business_name"] != "Salomon" {
		t.Errorf("business_name = %v, want Salomon", res.Details["business_name"])
	}

	var mapsQuery string
	for _, q := range searcher.Queries {
		if strings.Contains(q, "google.com/maps") {
			mapsQuery = q
		}
	}
	if !strings.Contains(mapsQuery, `"Salomon"`) {
		t.Errorf("maps query should carry the business name, got %q", mapsQuery)
	}
}

func TestReviews_AllSearchesFailing(t *testing.T) {
	t.Parallel()

	searcher := &testutil.DummySearcher{Err: testutil.Err("tavily 500")}
	rev := storefront.NewReviews(&testutil.DummyCompleter{}, searcher, &testutil.DummyLogger{})

	res, err := rev.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "No se pudo completar la búsqueda de reseñas: tavily 500")
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0", res.ScoreImpact)
	}
}
