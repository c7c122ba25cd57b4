package model

import (
	"strings"
	"time"
)

// SellingState mirrors the sold-listings service's sellingState field.
type SellingState string

const (
	StateEndedWithSales    SellingState = "EndedWithSales"
	StateEndedWithoutSales SellingState = "EndedWithoutSales"
	StateActive            SellingState = "Active"
)

// Sold reports whether the listing resulted in a completed sale.
func (s SellingState) Sold() bool {
	return s == StateEndedWithSales
}

// SortOrder values accepted by the search service.
type SortOrder string

const (
	SortEndTimeSoonest    SortOrder = "EndTimeSoonest"
	SortBestMatch         SortOrder = "BestMatch"
	SortPricePlusShipLow  SortOrder = "PricePlusShippingLowest"
	SortPricePlusShipHigh SortOrder = "PricePlusShippingHighest"
	SortStartTimeNewest   SortOrder = "StartTimeNewest"
)

// SoldListing is one normalised item from a sold-listings search.
type SoldListing struct {
	ItemID       string       `json:"item_id"`
	Title        string       `json:"title"`
	SoldPrice    float64      `json:"sold_price"`
	Currency     string       `json:"currency"`
	SellingState SellingState `json:"selling_state"`
	SoldDate     *time.Time   `json:"sold_date,omitempty"`
	Condition    string       `json:"condition"`
	URL          string       `json:"url"`
}

// SearchQuery is the fully resolved set of search parameters for one call.
type SearchQuery struct {
	Keywords   string    `json:"keywords"`
	MaxResults int       `json:"max_results"`
	SortOrder  SortOrder `json:"sort_order"`
	CategoryID string    `json:"category_id,omitempty"`
	MinPrice   *float64  `json:"min_price,omitempty"`
	MaxPrice   *float64  `json:"max_price,omitempty"`
	Currency   string    `json:"currency"`
}

// SearchResult is what a provider returns for a search. Success is false when
// the upstream acknowledged the request as failed; Error then carries its message.
type SearchResult struct {
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	Items          []SoldListing `json:"items"`
	TotalAvailable int           `json:"total_available"`
}

type PriceStats struct {
	AvgPrice    float64 `json:"avg_price"`
	MedianPrice float64 `json:"median_price"`
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	Currency    string  `json:"currency"`
}

type DateRange struct {
	Newest *time.Time `json:"newest"`
	Oldest *time.Time `json:"oldest"`
}

// MarketPriceResult is the response of a market price lookup. PriceStats and
// DateRange are nil unless at least one confirmed sale was found.
type MarketPriceResult struct {
	Success              bool          `json:"success"`
	Query                string        `json:"query"`
	Generation           string        `json:"generation"`
	PartType             string        `json:"part_type"`
	ConnectorType        string        `json:"connector_type,omitempty"`
	ItemsFound           int           `json:"items_found"`
	TotalAvailable       int           `json:"total_available"`
	SkippedOtherCurrency int           `json:"skipped_other_currency,omitempty"`
	Error                string        `json:"error,omitempty"`
	PriceStats           *PriceStats   `json:"price_stats,omitempty"`
	DateRange            *DateRange    `json:"date_range,omitempty"`
	Listings             []SoldListing `json:"listings,omitempty"`
}

// PartVariant identifies a physical part being priced.
type PartVariant struct {
	Generation    string `json:"generation" yaml:"generation"`
	PartType      string `json:"part_type" yaml:"part"`
	ConnectorType string `json:"connector_type,omitempty" yaml:"connector,omitempty"`
}

// Key is a stable identifier for the variant, used by history storage.
func (v PartVariant) Key() string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(v.Generation),
		strings.TrimSpace(v.PartType),
		strings.TrimSpace(v.ConnectorType),
	}, "|"))
}

func (v PartVariant) String() string {
	if v.ConnectorType == "" {
		return v.Generation + " / " + v.PartType
	}
	return v.Generation + " / " + v.PartType + " (" + v.ConnectorType + ")"
}

// ProviderStatus is diagnostic information about a sold-listings provider.
type ProviderStatus struct {
	Configured  bool   `json:"configured"`
	Marketplace string `json:"marketplace"`
	HasAppID    bool   `json:"has_app_id"`
	Provider    string `json:"provider"`
	Currency    string `json:"currency"`
}
