package storefront

import (
	"context"
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

const (
	maxPriceCandidates = 5
	maxPriceContent    = 1500

	// Values below this are almost always installment amounts, not the
	// full price of anything worth comparing.
	minPlausiblePrice = 50000
)

var (
	priceHintRx     = regexp.MustCompile(`[\$|CLP]\s?\d`)
	clpPriceRx      = regexp.MustCompile(`[\$|CLP]\s?(\d{1,3}(?:[.,]\d{3})+)`)
	priceSepCleanRx = regexp.MustCompile(`[.,]`)
)

const priceExtractSystem = `Eres un experto en extraer precios de productos de texto de sitios web de comercio electrónico.

Tu tarea es identificar el PRECIO ACTUAL/DE VENTA de un producto, NO:
- El precio original tachado (antes del descuento)
- El precio en cuotas/mensualidades (ej: "12 cuotas de $22.499")
- Costos de envío
- Otros precios no relacionados con el producto

REGLAS IMPORTANTES:
1. El precio actual es generalmente el MÁS PROMINENTE y puede estar marcado como "oferta", "ahora", "precio actual", o simplemente ser el precio no tachado
2. Si ves "X% OFF" o "descuento", el precio actual es el MENOR, no el original
3. Las cuotas/mensualidades suelen mencionarse como "en X cuotas de $Y" - ignora $Y y busca el precio total
4. Los precios chilenos usan puntos como separador de miles (ej: $269.990 = 269990)
5. Si no puedes determinar el precio actual con confianza, devuelve null

Devuelve el precio como número entero sin separadores.

Campos JSON esperados: {"current_price": número entero o null, "currency": "CLP", "is_installment": booleano, "confidence": 0-100}.`

type extractedPrice struct {
	CurrentPrice  *int   `json:"current_price"`
	Currency      string `json:"currency"`
	IsInstallment bool   `json:"is_installment"`
	Confidence    int    `json:"confidence"`
}

type priceComparison struct {
	Store            string `json:"store"`
	Title            string `json:"title"`
	PriceText        string `json:"price_text"`
	PriceNumeric     int    `json:"price_numeric"`
	URL              string `json:"url"`
	ExtractionMethod string `json:"extraction_method"`
	Confidence       int    `json:"confidence"`
}

// PriceComparison looks the product up in other stores so the user can
// compare. It is purely informational and never deducts points.
type PriceComparison struct {
	llm    llm.Completer
	search search.Searcher
	log    logging.Logger
}

var _ agent.Agent = (*PriceComparison)(nil)

func NewPriceComparison(completer llm.Completer, searcher search.Searcher, logger logging.Logger) *PriceComparison {
	return &PriceComparison{
		llm:    completer,
		search: searcher,
		log:    logger.With(logging.Field{Key: "component", Value: "price_comparison"}),
	}
}

func (p *PriceComparison) Name() string { return "price_comparison" }

func (p *PriceComparison) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Page == nil {
		return nil, errors.New("page payload required")
	}
	start := time.Now()

	if !p.search.Configured() {
		return &model.AgentResult{
			Flags:   []model.Flag{},
			Details: map[string]any{"checked": false, "reason": "API key not configured"},
		}, nil
	}

	product := productName(req.Page.Title)
	if utf8.RuneCountInString(product) < 3 {
		return &model.AgentResult{
			Flags:   []model.Flag{},
			Details: map[string]any{"checked": false, "reason": "No product name extracted"},
		}, nil
	}

	resp, err := p.search.Search(ctx, fmt.Sprintf(`comprar "%s" precio Chile`, product), search.Options{
		Depth:         "advanced",
		MaxResults:    20,
		IncludeAnswer: true,
	})
	if err != nil {
		p.log.Warn("product search failed", logging.Field{Key: "error", Value: err.Error()})
		return &model.AgentResult{
			Flags:   []model.Flag{},
			Details: map[string]any{"checked": false, "error": err.Error()},
		}, nil
	}

	type candidate struct {
		url, domain, title, content string
	}
	ownDomain := utils.Hostname(req.Page.URL)
	seen := map[string]bool{}
	var candidates []candidate
	for _, res := range resp.Results {
		domain := utils.Hostname(res.URL)
		if domain == "" || strings.Contains(domain, ownDomain) || strings.Contains(ownDomain, domain) {
			continue
		}
		if seen[domain] {
			continue
		}
		if !priceHintRx.MatchString(res.Content) {
			continue
		}
		seen[domain] = true
		candidates = append(candidates, candidate{url: res.URL, domain: domain, title: res.Title, content: res.Content})
	}
	if len(candidates) > maxPriceCandidates {
		candidates = candidates[:maxPriceCandidates]
	}

	comparisons := make([]*priceComparison, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			if ext := p.llmPrice(gctx, cand.content, cand.title, product); ext != nil {
				comparisons[i] = &priceComparison{
					Store:            cand.domain,
					Title:            cand.title,
					PriceText:        "$" + utils.FormatThousands(float64(*ext.CurrentPrice)),
					PriceNumeric:     *ext.CurrentPrice,
					URL:              cand.url,
					ExtractionMethod: "llm",
					Confidence:       ext.Confidence,
				}
				return nil
			}
			if price, ok := fallbackPrice(cand.content); ok {
				comparisons[i] = &priceComparison{
					Store:            cand.domain,
					Title:            cand.title,
					PriceText:        "$" + utils.FormatThousands(float64(price)),
					PriceNumeric:     price,
					URL:              cand.url,
					ExtractionMethod: "regex_fallback",
					Confidence:       30,
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	found := []priceComparison{}
	for _, c := range comparisons {
		if c != nil {
			found = append(found, *c)
		}
	}

	flags := []model.Flag{}
	if len(found) > 0 {
		flags = append(flags, model.Info(fmt.Sprintf("💡 Encontramos este producto en otras %d tiendas. ¡Compara precios!", len(found))))
	}

	p.log.Info("price comparison complete",
		logging.Field{Key: "comparisons", Value: len(found)},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})

	return &model.AgentResult{
		Flags: flags,
		Details: map[string]any{
			"checked":      true,
			"product_name": product,
			"comparisons":  found,
		},
	}, nil
}

func (p *PriceComparison) llmPrice(ctx context.Context, content, title, product string) *extractedPrice {
	prompt := fmt.Sprintf(`Producto buscado: %s

Título del resultado: %s

Contenido de la página:
%s

Extrae el PRECIO ACTUAL (no el original, no cuotas) del producto.`,
		product, title, utils.TruncateRunes(content, maxPriceContent))

	out := extractedPrice{Currency: "CLP", Confidence: 50}
	err := p.llm.CompleteStructured(ctx, llm.Request{
		Model:     p.llm.TextModel(),
		System:    priceExtractSystem,
		Messages:  []llm.Message{llm.UserText(prompt)},
		MaxTokens: 200,
	}, &out)
	if err != nil {
		p.log.Debug("llm price extraction failed", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	if out.CurrentPrice == nil || *out.CurrentPrice == 0 || out.Confidence < 50 || out.IsInstallment {
		return nil
	}
	return &out
}

// fallbackPrice scans for Chilean peso amounts and returns the smallest one
// that cannot be an installment.
func fallbackPrice(content string) (int, bool) {
	matches := clpPriceRx.FindAllStringSubmatch(content, -1)
	best := 0
	for _, m := range matches {
		n, err := strconv.Atoi(priceSepCleanRx.ReplaceAllString(m[1], ""))
		if err != nil || n < minPlausiblePrice {
			continue
		}
		if best == 0 || n < best {
			best = n
		}
	}
	return best, best > 0
}

// productName takes the first segment of the page title, which e-commerce
// sites use for the product.
func productName(title string) string {
	if title == "" {
		return ""
	}
	for _, sep := range []string{" | ", " - ", " – ", " — "} {
		if strings.Contains(title, sep) {
			return strings.TrimSpace(strings.Split(title, sep)[0])
		}
	}
	return strings.TrimSpace(title)
}
