package model

// Platform identifiers accepted by the analysis API. Unknown platforms are
// routed to an empty agent set and answered with the default aggregate.
const (
	PlatformWeb                 = "web"
	PlatformFacebookMarketplace = "facebook_marketplace"
)

// LinkStats summarizes anchor counts extracted client-side.
type LinkStats struct {
	Total    int `json:"total"`
	Internal int `json:"internal"`
	External int `json:"external"`
}

// PageRequest describes a storefront page captured by the client. The page
// content arrives pre-extracted; the server never fetches the URL itself.
type PageRequest struct {
	URL              string `json:"url"`
	HTMLContent      string `json:"html_content"`
	ScreenshotBase64 string `json:"screenshot_base64,omitempty"`

	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	MetaKeywords    string `json:"meta_keywords,omitempty"`
	Charset         string `json:"charset,omitempty"`
	Language        string `json:"language,omitempty"`
	Protocol        string `json:"protocol,omitempty"`

	Scripts         int        `json:"scripts,omitempty"`
	ExternalScripts int        `json:"external_scripts,omitempty"`
	Images          int        `json:"images,omitempty"`
	Forms           int        `json:"forms,omitempty"`
	IFrames         int        `json:"iframes,omitempty"`
	Links           *LinkStats `json:"links,omitempty"`
	LoadTime        float64    `json:"load_time,omitempty"`
}

// SellerInfo carries the seller profile fields a marketplace client could
// scrape. Everything is optional; agents treat missing data as a signal of
// its own (an unverifiable seller costs trust points).
type SellerInfo struct {
	Name        string `json:"name,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	JoinDate    string `json:"join_date,omitempty"`
	Location    string `json:"location,omitempty"`
	SellerSince string `json:"seller_since,omitempty"`

	Rating             *float64 `json:"rating,omitempty"`
	RatingsAverage     *float64 `json:"ratings_average,omitempty"`
	RatingsCount       *int     `json:"ratings_count,omitempty"`
	ResponseRate       string   `json:"response_rate,omitempty"`
	ResponseTime       string   `json:"response_time,omitempty"`
	OtherListingsCount *int     `json:"other_listings_count,omitempty"`
	FollowersCount     *int     `json:"followers_count,omitempty"`
	MutualFriends      *int     `json:"mutual_friends,omitempty"`

	// ListingsCount is a display string, e.g. "20+".
	ListingsCount string `json:"listings_count,omitempty"`

	Badges    []string `json:"badges,omitempty"`
	Strengths []string `json:"strengths,omitempty"`

	VerifiedIdentity    bool   `json:"verified_identity,omitempty"`
	RecentActivity      string `json:"recent_activity,omitempty"`
	TotalSales          string `json:"total_sales,omitempty"`
	ProfileCompleteness string `json:"profile_completeness,omitempty"`
	ProfileScreenshot   string `json:"profile_screenshot,omitempty"`
}

// ListingInfo carries the listing fields of a marketplace post.
// Price is kept raw ("Free", "$100", "$1.200"); agents parse it themselves.
type ListingInfo struct {
	Title       string `json:"title,omitempty"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Location    string `json:"location,omitempty"`
	PostedDate  string `json:"posted_date,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageCount  *int   `json:"image_count,omitempty"`
}

// ListingRequest describes a marketplace listing captured by the client.
type ListingRequest struct {
	URL              string `json:"url"`
	Platform         string `json:"platform,omitempty"`
	ScreenshotBase64 string `json:"screenshot_base64,omitempty"`
	HTMLContent      string `json:"html_content,omitempty"`

	Listing *ListingInfo `json:"listing,omitempty"`
	Seller  *SellerInfo  `json:"seller,omitempty"`

	ListingImages       []string         `json:"listing_images,omitempty"`
	SellerOtherListings []map[string]any `json:"seller_other_listings,omitempty"`
}

// AnalysisRequest is the envelope handed to agents. Exactly one of Page or
// Listing is set, matching Platform. Agents must treat it as read-only.
type AnalysisRequest struct {
	Platform string          `json:"platform"`
	Page     *PageRequest    `json:"page,omitempty"`
	Listing  *ListingRequest `json:"listing,omitempty"`
}

// URL returns the subject URL regardless of request kind.
func (r *AnalysisRequest) URL() string {
	if r.Page != nil {
		return r.Page.URL
	}
	if r.Listing != nil {
		return r.Listing.URL
	}
	return ""
}
