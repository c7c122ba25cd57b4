package ebay

import (
	"context"

	"github.com/guarzo/podprice/internal/model"
)

// Provider is a source of sold listings for one marketplace.
type Provider interface {
	Available() bool
	SearchSoldListings(ctx context.Context, keywords string, opts SearchOptions) (*model.SearchResult, error)
	Status() model.ProviderStatus
	Marketplace() Marketplace
}

var (
	_ Provider = (*Client)(nil)
	_ Provider = (*Scraper)(nil)
)

// NewProvider picks the implementation named by kind ("finding" or "scrape").
func NewProvider(kind string, cfg Config) Provider {
	if kind == ProviderScrape {
		return NewScraper(cfg)
	}
	return NewClient(cfg)
}

const (
	ProviderFinding = "finding"
	ProviderScrape  = "scrape"
)
