package marketplace_test

import (
	"context"
	"testing"

	"github.com/dtoro641/confiable/internal/agents/marketplace"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/testutil"
)

// ─── Description quality ─────────────────────────────────────────────────

func TestDescriptionQuality_Empty(t *testing.T) {
	t.Parallel()

	dq := marketplace.NewDescriptionQuality(&testutil.DummyLogger{})
	res, err := dq.Analyze(context.Background(), marketReq(&model.ListingInfo{Title: "iPhone"}, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 15 {
		t.Errorf("impact = %d, want 15", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "Publicación sin descripción")
	if got := res.Details["has_description"]; got != false {
		t.Errorf("has_description = %v, want false", got)
	}
	if got := res.Details["quality_score"]; got != 0 {
		t.Errorf("quality_score = %v, want 0", got)
	}
}

func TestDescriptionQuality_VeryShort(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{Title: "iPhone", Description: "Como nuevo"}
	dq := marketplace.NewDescriptionQuality(&testutil.DummyLogger{})
	res, err := dq.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 10 {
		t.Errorf("impact = %d, want 10", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "Descripción muy corta")
	if got := res.Details["length_rating"]; got != "very_short" {
		t.Errorf("length_rating = %v, want very_short", got)
	}
}

func TestDescriptionQuality_DetailedSpecific(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title: "MacBook Pro 13",
		Description: "Vendo MacBook Pro 2021 original con factura y garantía vigente. " +
			"Modelo: A2338, 256GB SSD y 8GB RAM, pantalla de 13 pulgadas. " +
			"Marca: Apple. Incluye cargador original y caja. " +
			"Batería con 92% de capacidad, cero detalles estéticos.",
	}
	dq := marketplace.NewDescriptionQuality(&testutil.DummyLogger{})
	res, err := dq.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0", res.ScoreImpact)
	}
	if got := res.Details["raw_impact"]; got != -10 {
		t.Errorf("raw_impact = %v, want -10", got)
	}
	if got := res.Details["length_rating"]; got != "detailed" {
		t.Errorf("length_rating = %v, want detailed", got)
	}
	if got := res.Details["specificity_count"]; got != 7 {
		t.Errorf("specificity_count = %v, want 7", got)
	}
	if got := res.Details["quality_score"]; got != 100 {
		t.Errorf("quality_score = %v, want 100", got)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "Descripción con detalles específicos (specs, model, brand)")
}

func TestDescriptionQuality_ShoutyVague(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "Tele Samsung",
		Description: "LLAMAR YA!! PRECIO FIJO!! SOLO INTERESADOS!! NO PREGUNTAS TONTAS!! CONTACTAR PARA MAS INFO!!",
	}
	dq := marketplace.NewDescriptionQuality(&testutil.DummyLogger{})
	res, err := dq.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// 5 caps + 3 punctuation + 2 per vague pattern hit.
	if res.ScoreImpact != 14 {
		t.Errorf("impact = %d, want 14", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "mayormente en MAYÚSCULAS")
	hasFlag(t, res.Flags, model.SeverityInfo, "contactar para más info")
	hasFlag(t, res.Flags, model.SeverityInfo, "Lenguaje hostil hacia compradores")
	hasFlag(t, res.Flags, model.SeverityInfo, "Filtro de compradores")
	if got := res.Details["excessive_punctuation"]; got != 5 {
		t.Errorf("excessive_punctuation = %v, want 5", got)
	}
}

func TestDescriptionQuality_TitleRelevance(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "iPhone 13 usado",
		Description: "Vendo iphone 13 usado en excelente estado, liberado para todas las compañías. Incluye cable.",
	}
	dq := marketplace.NewDescriptionQuality(&testutil.DummyLogger{})
	res, err := dq.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := res.Details["title_description_relevance"]; got != 1.0 {
		t.Errorf("title_description_relevance = %v, want 1", got)
	}
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0", res.ScoreImpact)
	}
}
