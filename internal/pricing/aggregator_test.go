package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/testutil"
)

// fakeProvider is a test-only ebay.Provider returning canned results.
type fakeProvider struct {
	available bool
	result    *model.SearchResult
	err       error

	calls    int
	keywords string
	opts     ebay.SearchOptions
}

func newFakeProvider(items ...model.SoldListing) *fakeProvider {
	return &fakeProvider{
		available: true,
		result:    &model.SearchResult{Success: true, Items: items, TotalAvailable: len(items)},
	}
}

func (f *fakeProvider) Available() bool {
	return f.available
}

func (f *fakeProvider) SearchSoldListings(ctx context.Context, keywords string, opts ebay.SearchOptions) (*model.SearchResult, error) {
	f.calls++
	f.keywords = keywords
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeProvider) Status() model.ProviderStatus {
	return model.ProviderStatus{Configured: f.available, Marketplace: "EBAY-GB", HasAppID: f.available, Provider: "fake", Currency: "GBP"}
}

func (f *fakeProvider) Marketplace() ebay.Marketplace {
	m, _ := ebay.LookupMarketplace("EBAY-GB")
	return m
}

var leftEarbud = model.PartVariant{Generation: "AirPods (3rd Gen)", PartType: "left"}

func TestFetchMarketPrices_Stats(t *testing.T) {
	provider := newFakeProvider(testutil.SoldListings("GBP", 10.00, 12.50, 15.00)...)
	agg := NewAggregator(provider, DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchMarketPrices: %v", err)
	}
	if !result.Success || result.ItemsFound != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	want := model.PriceStats{AvgPrice: 12.5, MedianPrice: 12.5, MinPrice: 10, MaxPrice: 15, Currency: "GBP"}
	if *result.PriceStats != want {
		t.Errorf("PriceStats = %+v, want %+v", *result.PriceStats, want)
	}
	if result.Query != "AirPods (3rd Gen) left earbud" {
		t.Errorf("Query = %q", result.Query)
	}
	if provider.keywords != result.Query {
		t.Errorf("provider searched %q", provider.keywords)
	}
	if len(result.Listings) != 3 {
		t.Errorf("expected 3 listings, got %d", len(result.Listings))
	}
}

func TestFetchMarketPrices_EvenMedian(t *testing.T) {
	agg := NewAggregator(newFakeProvider(testutil.SoldListings("GBP", 10, 20, 30, 40)...), DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchMarketPrices: %v", err)
	}
	if result.PriceStats.MedianPrice != 25 {
		t.Errorf("median = %v, want 25", result.PriceStats.MedianPrice)
	}
}

func TestFetchMarketPrices_NoSales(t *testing.T) {
	unsold := testutil.SoldListings("GBP", 10, 20)
	for i := range unsold {
		unsold[i].SellingState = model.StateEndedWithoutSales
	}
	agg := NewAggregator(newFakeProvider(unsold...), DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("no sales should not be an error: %v", err)
	}
	if result.Success || result.ItemsFound != 0 {
		t.Errorf("expected success=false, items_found=0, got %+v", result)
	}
	if result.PriceStats != nil || result.DateRange != nil {
		t.Error("stats should be absent when nothing sold")
	}
	if result.Error == "" {
		t.Error("expected a no-data message")
	}
}

func TestFetchMarketPrices_UpstreamAckFailure(t *testing.T) {
	provider := &fakeProvider{available: true, result: &model.SearchResult{Success: false, Error: "Invalid keywords", Items: []model.SoldListing{}}}
	agg := NewAggregator(provider, DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.Error != "Invalid keywords" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFetchMarketPrices_NotConfigured(t *testing.T) {
	provider := newFakeProvider()
	provider.available = false
	agg := NewAggregator(provider, DefaultConfig())

	if agg.IsConfigured() {
		t.Error("IsConfigured should be false")
	}
	_, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	var cfgErr *ebay.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times", provider.calls)
	}
}

func TestFetchMarketPrices_UpstreamError(t *testing.T) {
	provider := newFakeProvider()
	provider.err = &ebay.UpstreamError{StatusCode: http.StatusBadGateway}
	agg := NewAggregator(provider, DefaultConfig())

	_, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	var upstream *ebay.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected wrapped UpstreamError, got %v", err)
	}
}

func TestFetchMarketPrices_OtherCurrencySkipped(t *testing.T) {
	items := testutil.SoldListings("GBP", 10, 20, 30)
	items[1].Currency = "USD"
	items[2].Currency = ""
	agg := NewAggregator(newFakeProvider(items...), DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchMarketPrices: %v", err)
	}
	if result.ItemsFound != 2 || result.SkippedOtherCurrency != 1 {
		t.Errorf("items_found=%d skipped=%d, want 2 and 1", result.ItemsFound, result.SkippedOtherCurrency)
	}
	if result.PriceStats.MaxPrice != 30 || result.PriceStats.Currency != "GBP" {
		t.Errorf("unexpected stats: %+v", result.PriceStats)
	}
}

func TestFetchMarketPrices_OptionsOverrideDefaults(t *testing.T) {
	provider := newFakeProvider(testutil.SoldListings("GBP", 10)...)
	agg := NewAggregator(provider, Config{MinPrice: 1, MaxPrice: 200, MaxResults: 25, CategoryID: "80077"})

	minPrice := 5.0
	_, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{MinPrice: &minPrice, MaxResults: 10})
	if err != nil {
		t.Fatalf("FetchMarketPrices: %v", err)
	}
	opts := provider.opts
	if *opts.MinPrice != 5 || *opts.MaxPrice != 200 {
		t.Errorf("price bounds = %v..%v", *opts.MinPrice, *opts.MaxPrice)
	}
	if opts.MaxResults != 10 || opts.CategoryID != "80077" {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestFetchMarketPrices_FindingEndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("keywords"); got != "AirPods (3rd Gen) left earbud" {
			t.Errorf("keywords = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(testutil.FindingResponseJSON("Success", 3,
			testutil.FindingItem{ID: "1", Title: "a", Price: "10.00", Currency: "GBP", State: "EndedWithSales", EndTime: "2024-03-01T10:00:00.000Z"},
			testutil.FindingItem{ID: "2", Title: "b", Price: "12.50", Currency: "GBP", State: "EndedWithSales", EndTime: "2024-03-05T10:00:00.000Z"},
			testutil.FindingItem{ID: "3", Title: "c", Price: "15.00", Currency: "GBP", State: "EndedWithSales", EndTime: "2024-03-03T10:00:00.000Z"},
			testutil.FindingItem{ID: "4", Title: "d", Price: "99.00", Currency: "GBP", State: "EndedWithoutSales"},
		))
	}))
	defer srv.Close()

	gb, _ := ebay.LookupMarketplace("EBAY-GB")
	client := ebay.NewClient(ebay.Config{AppID: testutil.GetTestEbayAppID(), Marketplace: gb, Endpoint: srv.URL})
	agg := NewAggregator(client, DefaultConfig())

	result, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchMarketPrices: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one outbound call, got %d", calls.Load())
	}

	want := model.PriceStats{AvgPrice: 12.5, MedianPrice: 12.5, MinPrice: 10, MaxPrice: 15, Currency: "GBP"}
	if result.ItemsFound != 3 || *result.PriceStats != want {
		t.Errorf("items_found=%d stats=%+v", result.ItemsFound, result.PriceStats)
	}
	if result.DateRange.Newest.Day() != 5 || result.DateRange.Oldest.Day() != 1 {
		t.Errorf("date range = %v..%v", result.DateRange.Oldest, result.DateRange.Newest)
	}
}

func TestFetchMarketPrices_FindingWithoutAppID(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	agg := NewAggregator(ebay.NewClient(ebay.Config{Endpoint: srv.URL}), DefaultConfig())
	_, err := agg.FetchMarketPrices(context.Background(), leftEarbud, FetchOptions{})
	if !errors.Is(err, ebay.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("no request should be made without an app ID")
	}
}
