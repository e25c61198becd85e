package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/utils"
)

// WhoisFunc resolves the raw WHOIS record for a domain.
type WhoisFunc func(domain string) (string, error)

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// DomainReputation checks how old the store's domain is. Freshly registered
// domains are the strongest scam tell this scanner has that needs no model.
type DomainReputation struct {
	lookup WhoisFunc
	log    logging.Logger
}

var _ agent.Agent = (*DomainReputation)(nil)

func NewDomainReputation(logger logging.Logger) *DomainReputation {
	client := whois.NewClient()
	client.SetTimeout(10 * time.Second)
	return NewDomainReputationWith(func(domain string) (string, error) {
		return client.Whois(domain)
	}, logger)
}

// NewDomainReputationWith builds the agent around a custom WHOIS resolver.
func NewDomainReputationWith(lookup WhoisFunc, logger logging.Logger) *DomainReputation {
	return &DomainReputation{
		lookup: lookup,
		log:    logger.With(logging.Field{Key: "component", Value: "domain_reputation"}),
	}
}

func (d *DomainReputation) Name() string { return "domain_reputation" }

func (d *DomainReputation) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Page == nil {
		return nil, errors.New("page payload required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host := utils.Hostname(req.Page.URL)
	if host == "" {
		return unverifiableDomain("no host in url"), nil
	}

	info, err := d.domainRecord(host)
	if err != nil {
		d.log.Warn("whois lookup failed",
			logging.Field{Key: "domain", Value: host},
			logging.Field{Key: "error", Value: err.Error()})
		return unverifiableDomain(err.Error()), nil
	}

	registrar := ""
	if info.Registrar != nil {
		registrar = info.Registrar.Name
	}

	created := parseWhoisTime(info.Domain.CreatedDate, info.Domain.CreatedDateInTime)
	if created.IsZero() {
		res := unverifiableDomain("creation date not present in whois record")
		if registrar != "" {
			res.Details["registrar"] = registrar
		}
		return res, nil
	}

	ageDays := int(time.Since(created).Hours() / 24)

	flags := []model.Flag{}
	impact := 0
	switch {
	case ageDays < 30:
		flags = append(flags, model.Critical("Dominio registrado hace menos de un mes"))
		impact += 25
	case ageDays < 180:
		flags = append(flags, model.Warning("Dominio registrado hace menos de 6 meses"))
		impact += 10
	case ageDays >= 730:
		flags = append(flags, model.Info(fmt.Sprintf("✓ Dominio con antigüedad de %d años", ageDays/365)))
		impact -= 5
	}

	expiration := parseWhoisTime(info.Domain.ExpirationDate, info.Domain.ExpirationDateInTime)
	if !expiration.IsZero() {
		if until := time.Until(expiration); until >= 0 && until <= 60*24*time.Hour {
			flags = append(flags, model.Warning("El dominio expira pronto"))
			impact += 5
		}
	}

	if impact < 0 {
		impact = 0
	}

	return &model.AgentResult{
		Flags: flags,
		Details: map[string]any{
			"checked":    true,
			"domain":     host,
			"registrar":  orNil(registrar),
			"created":    info.Domain.CreatedDate,
			"expiration": orNil(info.Domain.ExpirationDate),
			"age_days":   ageDays,
		},
		ScoreImpact: impact,
	}, nil
}

// domainRecord looks the host up, walking up to the parent domain when the
// registry has no record for a subdomain.
func (d *DomainReputation) domainRecord(host string) (*whoisparser.WhoisInfo, error) {
	for {
		raw, err := d.lookup(host)
		if err != nil {
			return nil, err
		}
		parsed, perr := whoisparser.Parse(raw)
		if perr == nil && parsed.Domain != nil {
			return &parsed, nil
		}
		parts := strings.Split(host, ".")
		if len(parts) <= 2 {
			if perr == nil {
				perr = errors.New("whois record has no domain section")
			}
			return nil, perr
		}
		host = strings.Join(parts[1:], ".")
	}
}

func parseWhoisTime(raw string, parsed *time.Time) time.Time {
	if parsed != nil {
		return *parsed
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func unverifiableDomain(reason string) *model.AgentResult {
	return &model.AgentResult{
		Flags:   []model.Flag{model.Info("No se pudo verificar la antigüedad del dominio")},
		Details: map[string]any{"checked": false, "error": reason},
	}
}
