package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
	"github.com/dtoro641/confiable/internal/utils"
)

const supplierConfidenceSystem = `Eres un experto chileno en detectar estafas en Facebook Marketplace. Tu personalidad:

ESTILO:
- Eres directo y sin rodeos, pero explicativo
- Tienes un humor negro y eres ligeramente cínico
- Te preocupas genuinamente por proteger al comprador

TÍTULOS CREATIVOS (ejemplos):
- "Huele a humo... y no es asado"
- "Este vendedor brilla más que el sol"
- "No le compraría ni chicle a este compadre"
- "Procede con ojo, puede ser trucho"
- "La firme, se ve legit"

TU ANÁLISIS DEBE INCLUIR:
1. verdict_message: Explicación DETALLADA (4-5 oraciones) que DEBE mencionar:
   - Información del vendedor (antigüedad, calificaciones)
   - Análisis del precio (¿razonable o sospechoso?)
   - DESCRIPCIÓN DE LAS IMÁGENES: qué se ve, estado del producto, si parecen auténticas
   - Conclusión y recomendación

2. key_concerns: Lista preocupaciones específicas incluyendo sobre las imágenes si aplica
   (ej: "Fotos parecen de catálogo", "Producto se ve muy usado para el precio")

3. positive_signals: Lista señales positivas incluyendo sobre las imágenes
   (ej: "Fotos reales tomadas en casa", "Se ve el producto desde varios ángulos")

CRITERIOS DE SCORE:
- 80-100: Vendedor confiable, bajo riesgo (cuenta antigua, buenas reviews, precio razonable, fotos auténticas)
- 50-79: Sospechoso, proceder con precaución (algunos red flags pero no definitivos)
- 0-49: Alto riesgo de estafa (cuenta nueva, precio irreal, fotos de stock, señales claras de scam)`

const supplierConfidencePrompt = `Analiza esta publicación de Facebook Marketplace:

VENDEDOR:
%s

PUBLICACIÓN:
%s

ANÁLISIS DE IMÁGENES:
%s

ALERTAS DETECTADAS:
%s

Necesito que:
1. Evalúes la confiabilidad del vendedor (score 0-100)
2. Expliques EN DETALLE por qué es o no confiable, INCLUYENDO observaciones sobre las imágenes
3. Menciones las señales positivas y negativas específicas
4. Comenta sobre el estado del producto según las imágenes
5. Des un veredicto completo que integre TODO: vendedor, precio, descripción E IMÁGENES

Campos JSON esperados: {"confidence_score": 0-100, "risk_level": "safe|suspicious|dangerous", "verdict_title": "máx 10 palabras, en español", "verdict_message": "2-4 oraciones, en español", "key_concerns": ["..."], "positive_signals": ["..."]}`

type confidenceVerdict struct {
	ConfidenceScore int      `json:"confidence_score"`
	RiskLevel       string   `json:"risk_level"`
	VerdictTitle    string   `json:"verdict_title"`
	VerdictMessage  string   `json:"verdict_message"`
	KeyConcerns     []string `json:"key_concerns"`
	PositiveSignals []string `json:"positive_signals"`
}

// SupplierConfidence is the verdict agent for marketplace analyses: it
// reads everything the request carries and phrases the final call in
// Chilean Spanish. It never moves the score; the rule agents do that.
type SupplierConfidence struct {
	completer llm.Completer
	log       logging.Logger
}

var _ agent.Agent = (*SupplierConfidence)(nil)

func NewSupplierConfidence(completer llm.Completer, logger logging.Logger) *SupplierConfidence {
	return &SupplierConfidence{
		completer: completer,
		log:       logger.With(logging.Field{Key: "component", Value: "supplier_confidence"}),
	}
}

func (s *SupplierConfidence) Name() string { return "supplier_confidence" }

func (s *SupplierConfidence) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}
	start := time.Now()
	lst := req.Listing

	prompt := fmt.Sprintf(supplierConfidencePrompt,
		sellerSummary(lst.Seller),
		listingSummary(lst.Listing),
		imageSummary(lst),
		flagsSummary(cheapRuleFlags(lst)))

	var verdict confidenceVerdict
	err := s.completer.CompleteStructured(ctx, llm.Request{
		Model:     s.completer.TextModel(),
		System:    supplierConfidenceSystem,
		Messages:  []llm.Message{llm.UserText(prompt)},
		MaxTokens: 1500,
	}, &verdict)
	if err != nil || verdict.VerdictTitle == "" {
		if err != nil {
			s.log.Warn("confidence analysis failed", logging.Field{Key: "error", Value: err.Error()})
		}
		return &model.AgentResult{
			Flags:          []model.Flag{model.Warning("No se pudo completar el análisis de IA")},
			Details:        map[string]any{"analysis_method": "fallback"},
			VerdictTitle:   "Análisis incompleto",
			VerdictMessage: "No pudimos analizar completamente esta publicación. Procede con precaución.",
		}, nil
	}

	if verdict.KeyConcerns == nil {
		verdict.KeyConcerns = []string{}
	}
	if verdict.PositiveSignals == nil {
		verdict.PositiveSignals = []string{}
	}

	flags := []model.Flag{}
	for _, concern := range verdict.KeyConcerns {
		flags = append(flags, model.Warning(concern))
	}
	for _, positive := range verdict.PositiveSignals {
		flags = append(flags, model.Info("✓ "+positive))
	}

	s.log.Info("confidence verdict ready",
		logging.Field{Key: "confidence_score", Value: verdict.ConfidenceScore},
		logging.Field{Key: "risk_level", Value: verdict.RiskLevel},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})

	return &model.AgentResult{
		Flags: flags,
		Details: map[string]any{
			"confidence_score": verdict.ConfidenceScore,
			"risk_level":       verdict.RiskLevel,
			"key_concerns":     verdict.KeyConcerns,
			"positive_signals": verdict.PositiveSignals,
			"analysis_method":  "llm",
		},
		VerdictTitle:   verdict.VerdictTitle,
		VerdictMessage: verdict.VerdictMessage,
	}, nil
}

// cheapRuleFlags reruns the deterministic rule cores so the model sees the
// same alerts the rule agents raise. Agents in one fan-out never read each
// other's outputs, so the verdict agent recomputes instead of waiting.
func cheapRuleFlags(lst *model.ListingRequest) []model.Flag {
	var flags []model.Flag
	collect := func(f []model.Flag, _ map[string]any, _ int) {
		flags = append(flags, f...)
	}
	collect(sellerTrustSignals(lst.Seller))
	collect(sellerHistorySignals(lst.Seller))
	collect(pricingSignals(lst.Listing))
	collect(marketPriceSignals(lst.Listing))
	collect(imageCountSignals(lst.Listing, lst.ListingImages))
	collect(redFlagSignals(lst.Listing, lst.Seller))
	collect(descriptionSignals(lst.Listing))
	return flags
}

func sellerSummary(seller *model.SellerInfo) string {
	if seller == nil {
		return "No se pudo obtener información del vendedor."
	}
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	if seller.Name != "" {
		add("- Nombre: %s", seller.Name)
	}
	if seller.JoinDate != "" {
		add("- Fecha de ingreso: %s", seller.JoinDate)
		if year, ok := parseJoinYear(seller.JoinDate); ok {
			add("- Años en la plataforma: %d", time.Now().Year()-year)
		}
	}
	if seller.Location != "" {
		add("- Ubicación del vendedor: %s", seller.Location)
	}
	if seller.ListingsCount != "" {
		add("- Número de publicaciones: %s", seller.ListingsCount)
	}
	if seller.FollowersCount != nil {
		add("- Seguidores: %d", *seller.FollowersCount)
	}
	if seller.RatingsCount != nil {
		add("- Número de calificaciones: %d", *seller.RatingsCount)
	}
	if seller.RatingsAverage != nil {
		add("- Calificación promedio: %g estrellas", *seller.RatingsAverage)
	}
	if len(seller.Badges) > 0 {
		add("- Insignias: %s", strings.Join(seller.Badges, ", "))
	}
	if len(seller.Strengths) > 0 {
		add("- Fortalezas: %s", strings.Join(seller.Strengths, ", "))
	}
	if seller.ResponseRate != "" {
		add("- Tasa de respuesta: %s", seller.ResponseRate)
	}

	if len(parts) == 0 {
		return "Información del vendedor no disponible."
	}
	return strings.Join(parts, "\n")
}

func listingSummary(listing *model.ListingInfo) string {
	if listing == nil {
		return "No se pudo obtener información de la publicación."
	}
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	if listing.Title != "" {
		add("- Título: %s", listing.Title)
	}
	if listing.Price != "" {
		add("- Precio: %s", listing.Price)
	}
	if listing.Description != "" {
		desc := listing.Description
		if utf8.RuneCountInString(desc) > 500 {
			desc = utils.TruncateRunes(desc, 500) + "..."
		}
		add("- Descripción: %s", desc)
	}
	if listing.Condition != "" {
		add("- Condición: %s", listing.Condition)
	}
	if listing.Location != "" {
		add("- Ubicación del artículo: %s", listing.Location)
	}
	if listing.PostedDate != "" {
		add("- Fecha de publicación: %s", listing.PostedDate)
	}
	if listing.ImageCount != nil {
		add("- Número de imágenes: %d", *listing.ImageCount)
	}

	if len(parts) == 0 {
		return "Información de la publicación no disponible."
	}
	return strings.Join(parts, "\n")
}

func imageSummary(lst *model.ListingRequest) string {
	var parts []string
	count := len(lst.ListingImages)
	if lst.Listing != nil && lst.Listing.ImageCount != nil && *lst.Listing.ImageCount > 0 {
		count = *lst.Listing.ImageCount
	}
	if count > 0 {
		parts = append(parts, fmt.Sprintf("- Número de imágenes publicadas: %d", count))
	}
	if lst.ScreenshotBase64 != "" {
		parts = append(parts, "- Captura de la publicación disponible para revisión visual")
	}
	if len(parts) == 0 {
		return "No se analizaron imágenes."
	}
	return strings.Join(parts, "\n")
}

func flagsSummary(flags []model.Flag) string {
	if len(flags) == 0 {
		return "No se detectaron banderas de alerta."
	}

	var critical, warnings, info []string
	for _, f := range flags {
		switch f.Severity {
		case model.SeverityCritical:
			critical = append(critical, f.Message)
		case model.SeverityWarning:
			warnings = append(warnings, f.Message)
		default:
			info = append(info, f.Message)
		}
	}

	var parts []string
	if len(critical) > 0 {
		parts = append(parts, "ALERTAS CRÍTICAS:\n"+bulleted(critical))
	}
	if len(warnings) > 0 {
		parts = append(parts, "ADVERTENCIAS:\n"+bulleted(warnings))
	}
	if len(info) > 0 {
		parts = append(parts, "INFORMACIÓN:\n"+bulleted(info))
	}
	return strings.Join(parts, "\n\n")
}

func bulleted(msgs []string) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = "  - " + m
	}
	return strings.Join(lines, "\n")
}
