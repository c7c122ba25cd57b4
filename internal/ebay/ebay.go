package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/guarzo/podprice/internal/model"
)

const (
	DefaultFindingURL = "https://svcs.ebay.com/services/search/FindingService/v1"

	findingOperation = "findCompletedItems"
	findingVersion   = "1.13.0"

	DefaultMaxResults = 50
	MaxResultsLimit   = 100
)

// Config configures a sold-listings provider.
type Config struct {
	AppID       string
	Marketplace Marketplace
	// Endpoint overrides the Finding API URL (or the site root for the scraper).
	Endpoint      string
	Timeout       time.Duration
	RatePerMinute int
}

// SearchOptions are the caller-tunable search parameters. Zero values take
// the defaults described on ResolveQuery.
type SearchOptions struct {
	MaxResults int
	SortOrder  model.SortOrder
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
}

// Client queries the eBay Finding API for completed listings.
type Client struct {
	appID       string
	marketplace Marketplace
	endpoint    string
	http        *resty.Client
	limiter     *rate.Limiter
}

func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultFindingURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	marketplace := cfg.Marketplace
	if marketplace.ID == "" {
		marketplace, _ = LookupMarketplace(DefaultMarketplace)
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("X-EBAY-SOA-SERVICE-NAME", "FindingService")
	client.SetHeader("X-EBAY-SOA-OPERATION-NAME", findingOperation)
	client.SetHeader("X-EBAY-SOA-SERVICE-VERSION", findingVersion)
	client.SetHeader("X-EBAY-SOA-GLOBAL-ID", marketplace.ID)
	client.SetHeader("X-EBAY-SOA-RESPONSE-DATA-FORMAT", "JSON")

	return &Client{
		appID:       strings.TrimSpace(cfg.AppID),
		marketplace: marketplace,
		endpoint:    endpoint,
		http:        client,
		limiter:     newLimiter(cfg.RatePerMinute),
	}
}

// newLimiter spaces calls to stay within the daily Finding API quota while
// still allowing a small burst.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 3)
}

func (c *Client) Available() bool {
	return c.appID != ""
}

func (c *Client) Marketplace() Marketplace {
	return c.marketplace
}

func (c *Client) Status() model.ProviderStatus {
	return model.ProviderStatus{
		Configured:  c.Available(),
		Marketplace: c.marketplace.ID,
		HasAppID:    c.appID != "",
		Provider:    "finding",
		Currency:    c.marketplace.Currency,
	}
}

// ResolveQuery applies defaults: 50 results (clamped to 100), soonest-ending
// first, prices in the marketplace currency.
func ResolveQuery(keywords string, opts SearchOptions, m Marketplace) model.SearchQuery {
	q := model.SearchQuery{
		Keywords:   strings.TrimSpace(keywords),
		MaxResults: opts.MaxResults,
		SortOrder:  opts.SortOrder,
		CategoryID: opts.CategoryID,
		MinPrice:   opts.MinPrice,
		MaxPrice:   opts.MaxPrice,
		Currency:   m.Currency,
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.MaxResults > MaxResultsLimit {
		q.MaxResults = MaxResultsLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = model.SortEndTimeSoonest
	}
	return q
}

// SearchSoldListings runs one findCompletedItems call and returns only the
// listings that ended with a sale. An unacknowledged response is reported
// through SearchResult.Success rather than as an error.
func (c *Client) SearchSoldListings(ctx context.Context, keywords string, opts SearchOptions) (*model.SearchResult, error) {
	if !c.Available() {
		return nil, &ConfigurationError{Setting: "EBAY_APP_ID"}
	}
	q := ResolveQuery(keywords, opts, c.marketplace)
	if q.Keywords == "" {
		return nil, ErrEmptyKeywords
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Message: "waiting for rate limiter", Err: err}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-EBAY-SOA-SECURITY-APPNAME", c.appID).
		SetQueryParamsFromValues(c.buildParams(q)).
		Get(c.endpoint)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Message:    extractErrorMessage(body),
		}
	}

	var fr findingResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Message:    "parse eBay response",
			Err:        err,
		}
	}
	if len(fr.Response) == 0 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Message:    "response missing findCompletedItemsResponse",
		}
	}

	return parseFindingResponse(fr.Response[0], q.MaxResults), nil
}

func (c *Client) buildParams(q model.SearchQuery) url.Values {
	params := url.Values{}
	params.Set("OPERATION-NAME", findingOperation)
	params.Set("SERVICE-VERSION", findingVersion)
	params.Set("SECURITY-APPNAME", c.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("REST-PAYLOAD", "")
	params.Set("GLOBAL-ID", c.marketplace.ID)
	params.Set("keywords", q.Keywords)
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(q.MaxResults))
	params.Set("sortOrder", string(q.SortOrder))
	if q.CategoryID != "" {
		params.Set("categoryId", q.CategoryID)
	}

	filters := []itemFilter{{name: "SoldItemsOnly", value: "true"}}
	if q.MinPrice != nil {
		filters = append(filters, itemFilter{name: "MinPrice", value: formatPrice(*q.MinPrice), currency: q.Currency})
	}
	if q.MaxPrice != nil {
		filters = append(filters, itemFilter{name: "MaxPrice", value: formatPrice(*q.MaxPrice), currency: q.Currency})
	}
	for i, f := range filters {
		prefix := fmt.Sprintf("itemFilter(%d)", i)
		params.Set(prefix+".name", f.name)
		params.Set(prefix+".value", f.value)
		if f.currency != "" {
			params.Set(prefix+".paramName", "Currency")
			params.Set(prefix+".paramValue", f.currency)
		}
	}
	return params
}

type itemFilter struct {
	name     string
	value    string
	currency string
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
