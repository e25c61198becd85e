package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtoro641/confiable/internal/app"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

// sampleListing is a deliberately alarming listing: brand-new account,
// numeric seller name, implausible price and a wire-transfer ask.
func sampleListing() *model.AnalysisRequest {
	ratings := 0
	return &model.AnalysisRequest{
		Platform: model.PlatformFacebookMarketplace,
		Listing: &model.ListingRequest{
			URL: "https://www.facebook.com/marketplace/item/5550001234",
			Listing: &model.ListingInfo{
				Title:       "iPhone 15 Pro Max nuevo en caja",
				Price:       "$150",
				Description: "URGE vender hoy. Acepto Zelle, envíame el pago y te lo mando.",
			},
			Seller: &model.SellerInfo{
				Name:         "User8429175",
				JoinDate:     fmt.Sprintf("Se unió en %d", time.Now().Year()),
				RatingsCount: &ratings,
			},
		},
	}
}

// Runs one marketplace analysis offline (no API keys, no network) and
// prints the verdict. The real API lives in cmd/confiable.
func main() {
	cfg := app.DefaultConfig()
	cfg.DBPath = "" // no persistence for the demo

	logger := logging.NewStdoutLogger("demo")
	logger.SetLevel("warn")

	svc, err := app.New(cfg, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer svc.Close()

	res, err := svc.Analyze(context.Background(), sampleListing())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Score: %d (%s)\n", res.Score, res.RiskLevel)
	fmt.Printf("Veredicto: %s\n\n", res.VerdictTitle)

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
