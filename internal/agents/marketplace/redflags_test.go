package marketplace_test

import (
	"context"
	"testing"

	"github.com/dtoro641/confiable/internal/agents/marketplace"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/testutil"
)

// ─── Red flags ───────────────────────────────────────────────────────────

func TestRedFlags_PaymentFirstMatchOnly(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "iPhone 13",
		Description: "Acepto Zelle o Bitcoin, envíame el pago y te lo mando",
	}
	rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
	res, err := rf.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 20 {
		t.Errorf("impact = %d, want 20", res.ScoreImpact)
	}
	if len(res.Flags) != 1 {
		t.Fatalf("flags = %v, want exactly one", res.Flags)
	}
	hasFlag(t, res.Flags, model.SeverityCritical, "Menciona Zelle")
	if got := res.Details["payment_red_flag"]; got != "zelle" {
		t.Errorf("payment_red_flag = %v, want zelle", got)
	}
}

func TestRedFlags_ContactBypassAndEmail(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "Notebook",
		Description: "Escríbeme al WhatsApp o al correo juan@mail.com para coordinar",
	}
	rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
	res, err := rf.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 15 {
		t.Errorf("impact = %d, want 15", res.ScoreImpact)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "WhatsApp")
	hasFlag(t, res.Flags, model.SeverityWarning, "Email en la descripción")
	if got := res.Details["contact_bypass"]; got != "whatsapp" {
		t.Errorf("contact_bypass = %v, want whatsapp", got)
	}
	if got := res.Details["email_in_description"]; got != true {
		t.Errorf("email_in_description = %v, want true", got)
	}
}

func TestRedFlags_ScamPhrasesStack(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "PS5 nueva",
		Description: "Solo compradores serios. No lowballers. Price is firm.",
	}
	rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
	res, err := rf.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 9 {
		t.Errorf("impact = %d, want 9", res.ScoreImpact)
	}
	if len(res.Flags) != 3 {
		t.Errorf("flags = %v, want three", res.Flags)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "solo compradores serios")
	hasFlag(t, res.Flags, model.SeverityInfo, "Frase defensiva común")
	hasFlag(t, res.Flags, model.SeverityInfo, "Precio no negociable")
}

func TestRedFlags_LocationMismatch(t *testing.T) {
	t.Parallel()

	t.Run("different cities", func(t *testing.T) {
		t.Parallel()

		listing := &model.ListingInfo{Title: "Mesa", Location: "Santiago"}
		seller := &model.SellerInfo{Location: "Miami"}
		rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
		res, err := rf.Analyze(context.Background(), marketReq(listing, seller))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if res.ScoreImpact != 10 {
			t.Errorf("impact = %d, want 10", res.ScoreImpact)
		}
		hasFlag(t, res.Flags, model.SeverityWarning, "Ubicación del artículo (Santiago) diferente al vendedor (Miami)")
		if got := res.Details["location_mismatch"]; got != true {
			t.Errorf("location_mismatch = %v, want true", got)
		}
	})

	t.Run("case insensitive match", func(t *testing.T) {
		t.Parallel()

		listing := &model.ListingInfo{Title: "Mesa", Location: "santiago"}
		seller := &model.SellerInfo{Location: "Santiago"}
		rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
		res, err := rf.Analyze(context.Background(), marketReq(listing, seller))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if res.ScoreImpact != 0 || len(res.Flags) != 0 {
			t.Errorf("want clean result, got impact %d flags %v", res.ScoreImpact, res.Flags)
		}
	})
}

func TestRedFlags_PostedDaysDetail(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{Title: "Mesa", PostedDate: "hace 2 semanas"}
	rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
	res, err := rf.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := res.Details["days_posted"]; got != 14 {
		t.Errorf("days_posted = %v, want 14", got)
	}
}

func TestRedFlags_CleanListing(t *testing.T) {
	t.Parallel()

	listing := &model.ListingInfo{
		Title:       "Mesa de centro",
		Description: "Mesa de madera en buen estado, retiro en persona",
	}
	rf := marketplace.NewRedFlags(&testutil.DummyLogger{})
	res, err := rf.Analyze(context.Background(), marketReq(listing, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreImpact != 0 || len(res.Flags) != 0 {
		t.Errorf("want clean result, got impact %d flags %v", res.ScoreImpact, res.Flags)
	}
}
