// Package marketplace hosts the analysis agents for facebook_marketplace
// requests. Most are rule engines over the scraped seller and listing
// fields; image_analysis and the supplier_confidence verdict agent add the
// model-backed view on top, in the same fan-out.
//
// Marketplace scrapes arrive as display text ("Se unió en 2019", "20+",
// "$1,500", "hace 3 semanas"), so the package keeps a shared set of
// parsers that turn those strings into numbers.
package marketplace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dtoro641/confiable/internal/model"
)

var (
	joinYearRx  = regexp.MustCompile(`(19|20)\d{2}`)
	daysAgoRx   = regexp.MustCompile(`(\d+)\s*(day|día|dias)`)
	weeksAgoRx  = regexp.MustCompile(`(\d+)\s*(week|semana)`)
	monthsAgoRx = regexp.MustCompile(`(\d+)\s*(month|mes)`)
	priceJunkRx = regexp.MustCompile(`[^\d.]`)
	firstIntRx  = regexp.MustCompile(`\d+`)
)

// parseJoinYear pulls the year out of join date strings like
// "Joined in 2019" or "Se unió en 2019".
func parseJoinYear(joinDate string) (int, bool) {
	m := joinYearRx.FindString(joinDate)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// parsePostedDays converts posting age strings ("Listed 2 days ago",
// "hace 3 semanas") to a day count. English and Spanish units both work.
func parsePostedDays(postedDate string) (int, bool) {
	if postedDate == "" {
		return 0, false
	}
	lower := strings.ToLower(postedDate)

	for _, term := range []string{"just now", "ahora", "recién", "hour", "minute", "hora", "minuto"} {
		if strings.Contains(lower, term) {
			return 0, true
		}
	}
	if strings.Contains(lower, "yesterday") || strings.Contains(lower, "ayer") {
		return 1, true
	}
	if m := daysAgoRx.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := weeksAgoRx.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 7, true
	}
	if m := monthsAgoRx.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 30, true
	}
	return 0, false
}

// parsePrice extracts a numeric price from strings like "$1,500",
// "90 000 $", "Free" or "Gratis". Dots count as decimal separators, so
// dot-grouped amounts ("$1.500.000") come back unparseable.
func parsePrice(price string) (float64, bool) {
	if price == "" {
		return 0, false
	}
	lower := strings.ToLower(price)
	if strings.Contains(lower, "free") || strings.Contains(lower, "gratis") {
		return 0, true
	}
	cleaned := priceJunkRx.ReplaceAllString(price, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseListingsCount reads the leading number out of listing counters like
// "20+" or "5 publicaciones".
func parseListingsCount(listings string) (int, bool) {
	m := firstIntRx.FindString(listings)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func listingOf(req *model.AnalysisRequest) *model.ListingInfo {
	if req == nil || req.Listing == nil {
		return nil
	}
	return req.Listing.Listing
}

func sellerOf(req *model.AnalysisRequest) *model.SellerInfo {
	if req == nil || req.Listing == nil {
		return nil
	}
	return req.Listing.Seller
}
