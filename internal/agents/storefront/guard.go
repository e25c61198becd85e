// Package storefront implements the analysis agents behind the "web"
// platform: page security, online reputation, price comparison, domain
// age and Safe Browsing lookups.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/utils"
)

// Evidence caps keep the prompt within budget on pathological pages.
const (
	maxIframes        = 20
	maxIframeChars    = 500
	maxForms          = 15
	maxHiddenInputs   = 10
	maxCriticalInputs = 5
	maxMetaTags       = 15
	maxJSONLDScripts  = 2
	maxProductTitles  = 3
	maxPriceElements  = 5
	maxPriceMatches   = 15
)

var (
	securityMetaRx = regexp.MustCompile(`(?i)security|csp|x-frame|cors|og:title|og:price|product:price`)
	currencyCtxRx  = regexp.MustCompile(`(.{0,50})([\$€£¥]\s?\d{1,3}(?:[,.]\d{3})*(?:[.,]\d{2})?)(.{0,50})`)
	htmlTagRx      = regexp.MustCompile(`<[^>]+>`)
	iframeBodyRx   = regexp.MustCompile(`(?s)>.*?</iframe>`)
	formTagRx      = regexp.MustCompile(`(?i)<form[^>]*>`)

	criticalInputKeywords = []string{"password", "email", "card", "cvv", "payment"}
)

const guardSystemPrompt = "You are an elite e-commerce security expert. Perform a multi-modal analysis of this webpage. " +
	"Analyze Visuals, HTML structure, and Pricing logic simultaneously to detect scams, phishing, or vulnerabilities."

const guardSchemaHint = `Return a JSON object shaped as:
{"visual": {"phishing_detected": bool, "phishing_reasoning": string, "purchase_button_present": bool, "purchase_reasoning": string},
 "html": {"iframe_risk_detected": bool, "iframe_reasoning": string, "csrf_risk_detected": bool, "csrf_reasoning": string},
 "price": {"suspiciously_low_price": bool, "reasoning": string}}`

type guardVisual struct {
	PhishingDetected      bool   `json:"phishing_detected"`
	PhishingReasoning     string `json:"phishing_reasoning"`
	PurchaseButtonPresent bool   `json:"purchase_button_present"`
	PurchaseReasoning     string `json:"purchase_reasoning"`
}

type guardHTML struct {
	IframeRiskDetected bool   `json:"iframe_risk_detected"`
	IframeReasoning    string `json:"iframe_reasoning"`
	CSRFRiskDetected   bool   `json:"csrf_risk_detected"`
	CSRFReasoning      string `json:"csrf_reasoning"`
}

type guardPrice struct {
	SuspiciouslyLowPrice bool   `json:"suspiciously_low_price"`
	Reasoning            string `json:"reasoning"`
}

type guardAnalysis struct {
	Visual *guardVisual `json:"visual"`
	HTML   *guardHTML   `json:"html"`
	Price  *guardPrice  `json:"price"`
}

// Guard runs the combined page security check: visual phishing, iframe and
// CSRF exposure, and too-good-to-be-true pricing, resolved in one vision
// model call over evidence extracted from the page HTML.
type Guard struct {
	llm llm.Completer
	log logging.Logger
}

var _ agent.Agent = (*Guard)(nil)

func NewGuard(completer llm.Completer, logger logging.Logger) *Guard {
	return &Guard{
		llm: completer,
		log: logger.With(logging.Field{Key: "component", Value: "ecommerce_guard"}),
	}
}

func (g *Guard) Name() string { return "ecommerce_guard" }

func (g *Guard) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Page == nil {
		return nil, errors.New("page payload required")
	}
	start := time.Now()

	ev := extractSecurityEvidence(req.Page.HTMLContent)

	var (
		visual  *guardVisual
		htmlRes *guardHTML
		price   *guardPrice
	)
	analysis, err := g.checkSecurity(ctx, req.Page.URL, req.Page.ScreenshotBase64, ev)
	if err != nil {
		g.log.Warn("combined security check failed",
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		visual, htmlRes, price = analysis.Visual, analysis.HTML, analysis.Price
	}

	flags := []model.Flag{}
	impact := 0
	purchaseActive := false

	if visual != nil {
		if visual.PhishingDetected {
			flags = append(flags, model.Critical("Posible Phishing detectado: "+visual.PhishingReasoning))
			impact += 100
		} else {
			flags = append(flags, model.Info("No se detectó phishing visual obvio."))
		}
		if visual.PurchaseButtonPresent {
			purchaseActive = true
			flags = append(flags, model.Info("Botón de compra detectado."))
		} else {
			flags = append(flags, model.Warning("No se detectó botón de compra activo."))
		}
	} else {
		flags = append(flags, model.Warning("No se pudo realizar análisis visual (falta screenshot)."))
	}

	// Iframe and CSRF exposure weigh double on pages where a purchase can
	// actually happen.
	if htmlRes != nil && htmlRes.IframeRiskDetected {
		flags = append(flags, exposureFlag(purchaseActive, "Riesgo de Iframe: "+htmlRes.IframeReasoning))
		impact += exposureImpact(purchaseActive)
	} else {
		flags = append(flags, model.Info("Iframes seguros o ausentes."))
	}
	if htmlRes != nil && htmlRes.CSRFRiskDetected {
		flags = append(flags, exposureFlag(purchaseActive, "Falta protección Anti-CSRF: "+htmlRes.CSRFReasoning))
		impact += exposureImpact(purchaseActive)
	} else {
		flags = append(flags, model.Info("Formularios seguros o ausentes."))
	}

	if price != nil && price.SuspiciouslyLowPrice {
		flags = append(flags, model.Critical("Precio sospechosamente bajo: "+price.Reasoning))
		impact += 40
	} else if price != nil {
		flags = append(flags, model.Info("Análisis de precio: "+price.Reasoning))
	}

	if impact > 100 {
		impact = 100
	}

	g.log.Info("security analysis complete",
		logging.Field{Key: "flags", Value: len(flags)},
		logging.Field{Key: "score_impact", Value: impact},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})

	return &model.AgentResult{
		Flags: flags,
		Details: map[string]any{
			"visual_analysis": visual,
			"html_security":   htmlRes,
			"price_analysis":  price,
		},
		ScoreImpact: impact,
	}, nil
}

func exposureFlag(purchaseActive bool, msg string) model.Flag {
	if purchaseActive {
		return model.Critical(msg)
	}
	return model.Warning(msg)
}

func exposureImpact(purchaseActive bool) int {
	if purchaseActive {
		return 20
	}
	return 10
}

func (g *Guard) checkSecurity(ctx context.Context, pageURL, screenshot string, ev securityEvidence) (*guardAnalysis, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze webpage hosted at '%s'.\n\n", pageURL)

	section := func(title, body, whenEmpty string) {
		sb.WriteString("=== " + title + " ===\n")
		if strings.TrimSpace(body) != "" {
			sb.WriteString(body)
		} else {
			sb.WriteString(whenEmpty)
		}
		sb.WriteString("\n\n")
	}
	section("IFRAMES", ev.iframes, "No iframes detected.")
	section("FORMS", ev.forms, "No forms detected.")
	section("PRICE/PRODUCT CONTEXT", ev.priceContext, "No price information detected.")

	sb.WriteString("Perform a comprehensive security analysis covering:\n" +
		"1. Visual Phishing (Logo/Layout mimicry)\n" +
		"2. Purchase Validation (Visible 'Buy' buttons)\n" +
		"3. HTML Risks (Iframes/CSRF)\n" +
		"4. Price Logic (Too good to be true scams)\n\n" +
		"If no screenshot is provided, set visual fields to False/Safe.\n\n" +
		guardSchemaHint)

	msg := llm.UserText(sb.String())
	if screenshot != "" {
		msg.Content = append(msg.Content, llm.Content{
			Type:   "image",
			Source: &llm.ImageSource{Type: "base64", MediaType: "image/png", Data: screenshot},
		})
	}

	var out guardAnalysis
	err := g.llm.CompleteStructured(ctx, llm.Request{
		Model:    g.llm.VisionModel(),
		System:   guardSystemPrompt,
		Messages: []llm.Message{msg},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type securityEvidence struct {
	iframes      string
	forms        string
	priceContext string
}

// extractSecurityEvidence pulls the security-relevant slices of a page into
// compact text blocks for the model. A page that fails to parse yields
// empty evidence, not an error.
func extractSecurityEvidence(htmlContent string) securityEvidence {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return securityEvidence{}
	}

	var iframes []string
	doc.Find("iframe").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxIframes {
			return false
		}
		raw, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		collapsed := iframeBodyRx.ReplaceAllString(raw, ">[...]</iframe>")
		iframes = append(iframes, fmt.Sprintf("iframe_%d: %s", i+1, utils.TruncateRunes(collapsed, maxIframeChars)))
		return true
	})

	var forms []string
	doc.Find("form").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxForms {
			return false
		}
		raw, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		var parts []string
		if tag := formTagRx.FindString(raw); tag != "" {
			parts = append(parts, "tag: "+tag)
		}
		var hidden, critical []string
		s.Find("input").Each(func(_ int, in *goquery.Selection) {
			inputHTML, err := goquery.OuterHtml(in)
			if err != nil {
				return
			}
			low := strings.ToLower(inputHTML)
			if strings.Contains(low, "hidden") && len(hidden) < maxHiddenInputs {
				hidden = append(hidden, inputHTML)
			}
			for _, kw := range criticalInputKeywords {
				if strings.Contains(low, kw) {
					if len(critical) < maxCriticalInputs {
						critical = append(critical, inputHTML)
					}
					break
				}
			}
		})
		if len(hidden) > 0 {
			parts = append(parts, "hidden_inputs: "+strings.Join(hidden, ", "))
		}
		if len(critical) > 0 {
			parts = append(parts, "critical_inputs: "+strings.Join(critical, ", "))
		}
		forms = append(forms, fmt.Sprintf("form_%d: %s", i+1, strings.Join(parts, " | ")))
		return true
	})

	var metaTags []string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		if securityMetaRx.MatchString(raw) {
			metaTags = append(metaTags, strings.TrimSpace(raw))
		}
		return len(metaTags) < maxMetaTags
	})

	var priceContext []string

	var jsonLD []string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		txt := s.Text()
		if strings.Contains(txt, `"Product"`) || strings.Contains(txt, `"Offer"`) {
			jsonLD = append(jsonLD, strings.TrimSpace(txt))
		}
		return len(jsonLD) < maxJSONLDScripts
	})
	if len(jsonLD) > 0 {
		priceContext = append(priceContext, "JSON-LD Structured Data (HIGH RELIABILITY):\n"+strings.Join(jsonLD, "\n---\n"))
	}

	var titles []string
	doc.Find("h1").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxProductTitles {
			return false
		}
		if txt := strings.TrimSpace(s.Text()); txt != "" {
			titles = append(titles, txt)
		}
		return true
	})
	if len(titles) > 0 {
		priceContext = append(priceContext, "Possible Product Titles: "+strings.Join(titles, " | "))
	}

	var productMeta []string
	for _, m := range metaTags {
		low := strings.ToLower(m)
		if strings.Contains(low, "og:title") || strings.Contains(low, "price") {
			productMeta = append(productMeta, m)
		}
	}
	if len(productMeta) > 0 {
		priceContext = append(priceContext, "Meta Info (HIGH RELIABILITY): "+strings.Join(productMeta, " | "))
	}

	var priceTexts []string
	doc.Find(`[class*="price"], [class*="amount"], [class*="cost"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if txt := strings.TrimSpace(s.Text()); txt != "" {
			priceTexts = append(priceTexts, txt)
		}
		return len(priceTexts) < maxPriceElements
	})
	if len(priceTexts) > 0 {
		priceContext = append(priceContext, "Price Elements Content: "+strings.Join(priceTexts, ", "))
	}

	matches := currencyCtxRx.FindAllStringSubmatch(htmlContent, maxPriceMatches)
	if len(matches) > 0 {
		lines := make([]string, 0, len(matches))
		for _, m := range matches {
			pre := strings.TrimSpace(htmlTagRx.ReplaceAllString(m[1], " "))
			post := strings.TrimSpace(htmlTagRx.ReplaceAllString(m[3], " "))
			lines = append(lines, fmt.Sprintf("...%s [ %s ] %s...", pre, m[2], post))
		}
		priceContext = append(priceContext, "Visible Prices with Context: "+strings.Join(lines, "\n"))
	}

	return securityEvidence{
		iframes:      strings.Join(iframes, "\n"),
		forms:        strings.Join(forms, "\n"),
		priceContext: strings.Join(priceContext, "\n"),
	}
}
