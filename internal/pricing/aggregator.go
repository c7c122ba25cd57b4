package pricing

import (
	"context"
	"fmt"

	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/model"
)

// Config holds the search defaults applied to every lookup.
type Config struct {
	MinPrice   float64
	MaxPrice   float64
	MaxResults int
	CategoryID string
}

func DefaultConfig() Config {
	return Config{
		MinPrice:   1,
		MaxPrice:   200,
		MaxResults: 25,
	}
}

// FetchOptions override Config for a single lookup.
type FetchOptions struct {
	MinPrice   *float64
	MaxPrice   *float64
	MaxResults int
	CategoryID string
	SortOrder  model.SortOrder
}

// Aggregator turns sold listings into market price statistics. It keeps no
// state between calls and is safe for concurrent use.
type Aggregator struct {
	provider ebay.Provider
	cfg      Config
}

func NewAggregator(provider ebay.Provider, cfg Config) *Aggregator {
	return &Aggregator{provider: provider, cfg: cfg}
}

// IsConfigured reports whether the provider can be called.
func (a *Aggregator) IsConfigured() bool {
	return a.provider.Available()
}

func (a *Aggregator) Status() model.ProviderStatus {
	return a.provider.Status()
}

func (a *Aggregator) searchOptions(opts FetchOptions) ebay.SearchOptions {
	minPrice, maxPrice := a.cfg.MinPrice, a.cfg.MaxPrice
	if opts.MinPrice != nil {
		minPrice = *opts.MinPrice
	}
	if opts.MaxPrice != nil {
		maxPrice = *opts.MaxPrice
	}
	maxResults := a.cfg.MaxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}
	category := a.cfg.CategoryID
	if opts.CategoryID != "" {
		category = opts.CategoryID
	}
	return ebay.SearchOptions{
		MaxResults: maxResults,
		SortOrder:  opts.SortOrder,
		CategoryID: category,
		MinPrice:   &minPrice,
		MaxPrice:   &maxPrice,
	}
}

// FetchMarketPrices looks up recent sales for a part variant. Finding no sales
// is a normal outcome reported with Success=false and a nil error; missing
// configuration and upstream failures are returned as errors.
func (a *Aggregator) FetchMarketPrices(ctx context.Context, v model.PartVariant, opts FetchOptions) (*model.MarketPriceResult, error) {
	query := BuildSearchQuery(v.Generation, v.PartType, v.ConnectorType)
	result := &model.MarketPriceResult{
		Query:         query,
		Generation:    v.Generation,
		PartType:      v.PartType,
		ConnectorType: v.ConnectorType,
	}

	if !a.provider.Available() {
		return nil, &ebay.ConfigurationError{Setting: "EBAY_APP_ID"}
	}

	search, err := a.provider.SearchSoldListings(ctx, query, a.searchOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("search sold listings for %q: %w", query, err)
	}
	if !search.Success {
		result.Error = search.Error
		return result, nil
	}
	result.TotalAvailable = search.TotalAvailable

	listings, skipped := sameCurrency(search.Items, a.provider.Marketplace().Currency)
	result.SkippedOtherCurrency = skipped
	if len(listings) == 0 {
		result.Error = "no sold listings found"
		return result, nil
	}

	dates := ComputeDateRange(listings)
	result.Success = true
	result.ItemsFound = len(listings)
	result.PriceStats = ComputeStats(listings)
	result.DateRange = &dates
	result.Listings = listings
	return result, nil
}

// sameCurrency drops listings priced in a currency other than the
// marketplace's so statistics never mix units. Listings with no currency are
// assumed to be in the marketplace currency.
func sameCurrency(items []model.SoldListing, currency string) ([]model.SoldListing, int) {
	kept := make([]model.SoldListing, 0, len(items))
	skipped := 0
	for _, item := range items {
		if !item.SellingState.Sold() {
			continue
		}
		if item.Currency == "" {
			item.Currency = currency
		}
		if currency != "" && item.Currency != currency {
			skipped++
			continue
		}
		kept = append(kept, item)
	}
	return kept, skipped
}
