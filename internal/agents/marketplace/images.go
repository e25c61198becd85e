package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtoro641/confiable/internal/agent"
	"github.com/dtoro641/confiable/internal/llm"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

const imageAnalysisSystem = `Eres un experto analizando imágenes de productos en marketplace.
Tu trabajo es evaluar la autenticidad de las fotos y describir lo que ves.

En tu análisis incluye:
- Si las fotos parecen auténticas o de internet
- El estado aparente del producto (nuevo, usado, dañado)
- Cualquier detalle sospechoso o positivo que notes
- Una breve descripción de lo que muestra la imagen

Sé específico y útil para el comprador.`

const imageAnalysisPrompt = `Analiza esta imagen de una publicación de Facebook Marketplace.

1. ¿Las fotos parecen de stock/internet o tomadas por el vendedor?
2. ¿Hay marcas de agua o logos?
3. ¿Se ve el producto claramente? ¿En qué estado aparenta estar?
4. ¿El entorno/fondo es consistente (casa real vs estudio)?
5. Describe brevemente qué ves en la imagen del producto.

Campos JSON esperados: {"is_stock_photo": bool, "is_professional": bool, "has_watermark": bool, "background_consistent": bool, "shows_actual_product": bool, "confidence": 0-100, "concerns": ["en español"], "positive_signals": ["en español"], "product_description": "breve, en español", "apparent_condition": "nuevo|como nuevo|usado|muy usado|dañado"}`

type imageFindings struct {
	IsStockPhoto         bool     `json:"is_stock_photo"`
	IsProfessional       bool     `json:"is_professional"`
	HasWatermark         bool     `json:"has_watermark"`
	BackgroundConsistent bool     `json:"background_consistent"`
	ShowsActualProduct   bool     `json:"shows_actual_product"`
	Confidence           int      `json:"confidence"`
	Concerns             []string `json:"concerns"`
	PositiveSignals      []string `json:"positive_signals"`
	ProductDescription   string   `json:"product_description"`
	ApparentCondition    string   `json:"apparent_condition"`
}

// ImageAnalysis counts listing photos and, when a screenshot came along,
// asks the vision model whether they look like the seller's own shots or
// lifted catalog material.
type ImageAnalysis struct {
	completer llm.Completer
	log       logging.Logger
}

var _ agent.Agent = (*ImageAnalysis)(nil)

func NewImageAnalysis(completer llm.Completer, logger logging.Logger) *ImageAnalysis {
	return &ImageAnalysis{
		completer: completer,
		log:       logger.With(logging.Field{Key: "component", Value: "image_analysis"}),
	}
}

func (a *ImageAnalysis) Name() string { return "image_analysis" }

func (a *ImageAnalysis) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AgentResult, error) {
	if req.Listing == nil {
		return nil, errors.New("listing payload required")
	}
	start := time.Now()
	lst := req.Listing

	flags, details, impact := imageCountSignals(lst.Listing, lst.ListingImages)

	if lst.ScreenshotBase64 == "" {
		details["screenshot_available"] = false
		return a.finish(flags, details, impact, start), nil
	}
	details["screenshot_available"] = true

	// Absent keys in the model's reply keep these defaults.
	findings := imageFindings{BackgroundConsistent: true, ShowsActualProduct: true, Confidence: 50}
	err := a.completer.CompleteStructured(ctx, llm.Request{
		Model:  a.completer.VisionModel(),
		System: imageAnalysisSystem,
		Messages: []llm.Message{{Role: "user", Content: []llm.Content{
			{Type: "image", Source: &llm.ImageSource{Type: "base64", MediaType: "image/png", Data: lst.ScreenshotBase64}},
			{Type: "text", Text: imageAnalysisPrompt},
		}}},
		MaxTokens: 800,
	}, &findings)
	if err != nil {
		a.log.Warn("vision analysis failed", logging.Field{Key: "error", Value: err.Error()})
		details["ai_analysis_error"] = err.Error()
		return a.finish(flags, details, impact, start), nil
	}

	details["ai_analysis"] = map[string]any{
		"is_stock_photo":        findings.IsStockPhoto,
		"is_professional":       findings.IsProfessional,
		"has_watermark":         findings.HasWatermark,
		"background_consistent": findings.BackgroundConsistent,
		"shows_actual_product":  findings.ShowsActualProduct,
		"confidence":            findings.Confidence,
		"product_description":   findings.ProductDescription,
		"apparent_condition":    findings.ApparentCondition,
	}

	if findings.IsStockPhoto {
		flags = append(flags, model.Critical("🚨 Las imágenes parecen ser fotos de stock/internet"))
		impact += 25
	}
	if findings.HasWatermark {
		flags = append(flags, model.Warning("⚠️ Las imágenes tienen marcas de agua"))
		impact += 15
	}
	if findings.IsProfessional && !findings.ShowsActualProduct {
		flags = append(flags, model.Warning("⚠️ Fotos muy profesionales para marketplace personal"))
		impact += 10
	}
	if !findings.BackgroundConsistent {
		flags = append(flags, model.Warning("⚠️ Fondo inconsistente en las imágenes"))
		impact += 10
	}
	if !findings.ShowsActualProduct {
		flags = append(flags, model.Warning("⚠️ No se muestra claramente el producto real"))
		impact += 10
	}
	for _, concern := range findings.Concerns {
		flags = append(flags, model.Warning(concern))
	}
	for _, positive := range findings.PositiveSignals {
		flags = append(flags, model.Info("✓ "+positive))
	}
	if findings.Confidence >= 80 {
		flags = append(flags, model.Info("✓ Imágenes parecen auténticas"))
		impact -= 5
	} else if findings.Confidence < 40 {
		flags = append(flags, model.Warning("Baja confianza en autenticidad de imágenes"))
		impact += 10
	}
	details["image_authenticity_confidence"] = findings.Confidence

	return a.finish(flags, details, impact, start), nil
}

func (a *ImageAnalysis) finish(flags []model.Flag, details map[string]any, raw int, start time.Time) *model.AgentResult {
	details["raw_impact"] = raw
	impact := raw
	if impact < 0 {
		impact = 0
	}
	a.log.Info("image analysis complete",
		logging.Field{Key: "score_impact", Value: impact},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})
	return &model.AgentResult{Flags: flags, Details: details, ScoreImpact: impact}
}

func imageCountSignals(listing *model.ListingInfo, images []string) ([]model.Flag, map[string]any, int) {
	flags := []model.Flag{}
	details := map[string]any{}
	impact := 0

	count := len(images)
	if listing != nil && listing.ImageCount != nil && *listing.ImageCount > 0 {
		count = *listing.ImageCount
	}
	details["image_count"] = count

	switch {
	case count == 0:
		flags = append(flags, model.Warning("Publicación sin imágenes"))
		impact += 15
		details["image_quality_tier"] = "none"
	case count == 1:
		impact += 5
		details["image_quality_tier"] = "minimal"
	case count >= 5:
		flags = append(flags, model.Info(fmt.Sprintf("Múltiples imágenes disponibles (%d)", count)))
		impact -= 5
		details["image_quality_tier"] = "excellent"
	case count >= 3:
		details["image_quality_tier"] = "good"
	default:
		details["image_quality_tier"] = "adequate"
	}

	return flags, details, impact
}
