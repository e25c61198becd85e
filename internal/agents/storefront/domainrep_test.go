package storefront_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dtoro641/confiable/internal/agents/storefront"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/testutil"
)

func whoisRecord(created, expires time.Time) string {
	return fmt.Sprintf(`Domain Name: TIENDA-EJEMPLO.CL
Registrar: NIC Chile
Updated Date: %s
Creation Date: %s
Registry Expiry Date: %s
Name Server: ns1.example.cl
`, time.Now().UTC().Format(time.RFC3339), created.UTC().Format(time.RFC3339), expires.UTC().Format(time.RFC3339))
}

func staticWhois(record string) storefront.WhoisFunc {
	return func(string) (string, error) { return record, nil }
}

func TestDomainReputation_AgeBands(t *testing.T) {
	t.Parallel()

	now := time.Now()
	farExpiry := now.AddDate(2, 0, 0)

	tests := []struct {
		name         string
		created      time.Time
		wantImpact   int
		wantSeverity model.Severity
		wantMsg      string
	}{
		{
			name:         "brand new domain",
			created:      now.AddDate(0, 0, -10),
			wantImpact:   25,
			wantSeverity: model.SeverityCritical,
			wantMsg:      "Dominio registrado hace menos de un mes",
		},
		{
			name:         "young domain",
			created:      now.AddDate(0, 0, -90),
			wantImpact:   10,
			wantSeverity: model.SeverityWarning,
			wantMsg:      "Dominio registrado hace menos de 6 meses",
		},
		{
			name:         "established domain",
			created:      now.AddDate(-3, 0, 0),
			wantImpact:   0,
			wantSeverity: model.SeverityInfo,
			wantMsg:      "✓ Dominio con antigüedad de 3 años",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dr := storefront.NewDomainReputationWith(staticWhois(whoisRecord(tt.created, farExpiry)), &testutil.DummyLogger{})
			res, err := dr.Analyze(context.Background(), pageRequest("<html></html>", ""))
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if res.ScoreImpact != tt.wantImpact {
				t.Errorf("impact = %d, want %d", res.ScoreImpact, tt.wantImpact)
			}
			hasFlag(t, res.Flags, tt.wantSeverity, tt.wantMsg)
			if res.Details["checked"] != true {
				t.Errorf("details = %v", res.Details)
			}
		})
	}
}

func TestDomainReputation_ExpiringSoon(t *testing.T) {
	t.Parallel()

	record := whoisRecord(time.Now().AddDate(0, 0, -90), time.Now().AddDate(0, 0, 30))
	dr := storefront.NewDomainReputationWith(staticWhois(record), &testutil.DummyLogger{})

	res, err := dr.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityWarning, "El dominio expira pronto")
	if res.ScoreImpact != 15 {
		t.Errorf("impact = %d, want 15 (young domain + imminent expiry)", res.ScoreImpact)
	}
}

func TestDomainReputation_LookupFailureFailsOpen(t *testing.T) {
	t.Parallel()

	dr := storefront.NewDomainReputationWith(func(string) (string, error) {
		return "", testutil.Err("whois timeout")
	}, &testutil.DummyLogger{})

	res, err := dr.Analyze(context.Background(), pageRequest("<html></html>", ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "No se pudo verificar la antigüedad del dominio")
	if res.ScoreImpact != 0 {
		t.Errorf("impact = %d, want 0", res.ScoreImpact)
	}
}

func TestDomainReputation_SubdomainWalksUpToParent(t *testing.T) {
	t.Parallel()

	var lookups []string
	record := whoisRecord(time.Now().AddDate(-3, 0, 0), time.Now().AddDate(2, 0, 0))
	dr := storefront.NewDomainReputationWith(func(domain string) (string, error) {
		lookups = append(lookups, domain)
		if domain == "tienda-ejemplo.cl" {
			return record, nil
		}
		return "No match for domain.", nil
	}, &testutil.DummyLogger{})

	req := pageRequest("<html></html>", "")
	req.Page.URL = "https://shop.tienda-ejemplo.cl/ofertas"
	res, err := dr.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(lookups) != 2 || lookups[0] != "shop.tienda-ejemplo.cl" || lookups[1] != "tienda-ejemplo.cl" {
		t.Errorf("lookups = %v", lookups)
	}
	hasFlag(t, res.Flags, model.SeverityInfo, "✓ Dominio con antigüedad de 3 años")
}
