package marketplace_test

import (
	"context"
	"testing"

	"github.com/dtoro641/confiable/internal/agents/marketplace"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/testutil"
)

// ─── Pricing ─────────────────────────────────────────────────────────────

func TestPricing_NoPrice(t *testing.T) {
	t.Parallel()

	pricing := marketplace.NewPricing(&testutil.DummyLogger{})
	res, err := pricing.Analyze(context.Background(), marketReq(&model.ListingInfo{Title: "iPhone 13"}, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 0 || len(res.Flags) != 0 || len(res.Details) != 0 {
		t.Errorf("want empty result, got %+v", res)
	}
}

func TestPricing_FreeItemIsBait(t *testing.T) {
	t.Parallel()

	pricing := marketplace.NewPricing(&testutil.DummyLogger{})
	res, err := pricing.Analyze(context.Background(), marketReq(&model.ListingInfo{Title: "Sofá", Price: "Gratis"}, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 10 {
		t.Errorf("impact = %d, want 10", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "verifica que no sea carnada")
	if got := res.Details["price_numeric"]; got != 0.0 {
		t.Errorf("price_numeric = %v, want 0", got)
	}
}

func TestPricing_HighValueKeywordTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		price    string
		impact   int
		severity model.Severity
		msg      string
	}{
		{"under hundred", "$90", 25, model.SeverityCritical, "Precio sospechosamente bajo para IPHONE: $90"},
		{"under three hundred", "$250", 10, model.SeverityWarning, "Precio muy bajo para IPHONE: $250"},
		{"plausible", "$450", 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing := &model.ListingInfo{Title: "iPhone 14 Pro Max como nuevo", Price: tt.price}
			pricing := marketplace.NewPricing(&testutil.DummyLogger{})
			res, err := pricing.Analyze(context.Background(), marketReq(listing, nil))
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if res.ScoreImpact != tt.impact {
				t.Errorf("impact = %d, want %d", res.ScoreImpact, tt.impact)
			}
			if tt.msg == "" {
				if len(res.Flags) != 0 {
					t.Errorf("want no flags, got %v", res.Flags)
				}
				return
			}
			hasFlag(t, res.Flags, tt.severity, tt.msg)
		})
	}
}

func TestPricing_UrgencyDetail(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "Refrigerador",
		Price:       "$450",
		Description: "URGE vender hoy, me cambio de casa",
	}
	pricing := marketplace.NewPricing(&testutil.DummyLogger{})
	res, err := pricing.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := res.Details["has_urgency"]; got != true {
		t.Errorf("has_urgency = %v, want true", got)
	}
	if len(res.Flags) != 0 || res.ScoreImpact != 0 {
		t.Errorf("urgency alone must not flag, got %v impact %d", res.Flags, res.ScoreImpact)
	}
}
