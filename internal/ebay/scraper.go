package ebay

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/guarzo/podprice/internal/model"
)

const scraperUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Scraper reads the public sold-items results page. It needs no app ID and is
// used where Finding API access is unavailable.
type Scraper struct {
	baseURL     string
	marketplace Marketplace
	client      *http.Client
	limiter     *rate.Limiter
}

func NewScraper(cfg Config) *Scraper {
	marketplace := cfg.Marketplace
	if marketplace.ID == "" {
		marketplace, _ = LookupMarketplace(DefaultMarketplace)
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = marketplace.BaseURL()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		baseURL:     strings.TrimRight(baseURL, "/"),
		marketplace: marketplace,
		client:      &http.Client{Timeout: timeout},
		limiter:     newLimiter(cfg.RatePerMinute),
	}
}

func (s *Scraper) Available() bool {
	return true
}

func (s *Scraper) Marketplace() Marketplace {
	return s.marketplace
}

func (s *Scraper) Status() model.ProviderStatus {
	return model.ProviderStatus{
		Configured:  true,
		Marketplace: s.marketplace.ID,
		HasAppID:    false,
		Provider:    ProviderScrape,
		Currency:    s.marketplace.Currency,
	}
}

var scrapeSortCodes = map[model.SortOrder]string{
	model.SortEndTimeSoonest:    "1",
	model.SortBestMatch:         "12",
	model.SortPricePlusShipLow:  "15",
	model.SortPricePlusShipHigh: "16",
	model.SortStartTimeNewest:   "10",
}

func (s *Scraper) searchURL(q model.SearchQuery) string {
	params := url.Values{}
	params.Set("_nkw", q.Keywords)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_sacat", "0")
	if q.CategoryID != "" {
		params.Set("_sacat", q.CategoryID)
	}
	if code, ok := scrapeSortCodes[q.SortOrder]; ok {
		params.Set("_sop", code)
	}
	if q.MinPrice != nil {
		params.Set("_udlo", formatPrice(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		params.Set("_udhi", formatPrice(*q.MaxPrice))
	}
	ipg := "60"
	if q.MaxResults > 60 {
		ipg = "120"
	}
	params.Set("_ipg", ipg)
	return s.baseURL + "/sch/i.html?" + params.Encode()
}

func (s *Scraper) SearchSoldListings(ctx context.Context, keywords string, opts SearchOptions) (*model.SearchResult, error) {
	q := ResolveQuery(keywords, opts, s.marketplace)
	if q.Keywords == "" {
		return nil, ErrEmptyKeywords
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Message: "waiting for rate limiter", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "decode body", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "parse results page", Err: err}
	}

	return s.parseResults(doc, q.MaxResults), nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

var (
	itemIDPattern = regexp.MustCompile(`/itm/(?:[^/?]+/)?(\d+)`)
	numberPattern = regexp.MustCompile(`\d[\d.,]*`)
)

func (s *Scraper) parseResults(doc *goquery.Document, max int) *model.SearchResult {
	result := &model.SearchResult{Success: true, Items: []model.SoldListing{}}

	heading := doc.Find(".srp-controls__count-heading").First().Text()
	if m := numberPattern.FindString(heading); m != "" {
		result.TotalAvailable, _ = strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m))
	}

	doc.Find("ul.srp-results li.s-item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		listing, ok := s.parseItem(sel)
		if !ok || !listing.SellingState.Sold() {
			return true
		}
		result.Items = append(result.Items, listing)
		return max <= 0 || len(result.Items) < max
	})

	return result
}

func (s *Scraper) parseItem(sel *goquery.Selection) (model.SoldListing, bool) {
	title := strings.TrimSpace(sel.Find(".s-item__title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "New listing"))
	if title == "" || strings.EqualFold(title, "Shop on eBay") {
		return model.SoldListing{}, false
	}

	href, _ := sel.Find("a.s-item__link").First().Attr("href")
	listing := model.SoldListing{
		Title:     title,
		URL:       stripQuery(href),
		Condition: strings.TrimSpace(sel.Find(".SECONDARY_INFO").First().Text()),
	}
	if m := itemIDPattern.FindStringSubmatch(href); len(m) > 1 {
		listing.ItemID = m[1]
	}

	price, currency, ok := parsePrice(sel.Find(".s-item__price").First().Text(), s.marketplace)
	if !ok {
		return listing, false
	}
	listing.SoldPrice = price
	listing.Currency = currency

	caption := sel.Find(".s-item__caption--signal.POSITIVE, .s-item__title--tagblock .POSITIVE").First()
	if caption.Length() > 0 {
		listing.SellingState = model.StateEndedWithSales
		if sold, ok := parseSoldDate(caption.Text()); ok {
			listing.SoldDate = &sold
		}
	} else {
		listing.SellingState = model.StateEndedWithoutSales
	}

	return listing, true
}

func stripQuery(href string) string {
	if i := strings.IndexByte(href, '?'); i >= 0 {
		return href[:i]
	}
	return href
}

var currencyPrefixes = []struct {
	prefix   string
	currency string
}{
	{"AU $", "AUD"},
	{"C $", "CAD"},
	{"US $", "USD"},
	{"EUR", "EUR"},
	{"GBP", "GBP"},
	{"£", "GBP"},
	{"€", "EUR"},
}

// parsePrice reads a results-page price such as "£12.50" or "EUR 12,50".
// Price ranges ("£10.00 to £15.00") are rejected.
func parsePrice(text string, m Marketplace) (float64, string, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if text == "" || strings.Contains(text, " to ") {
		return 0, "", false
	}

	currency := ""
	for _, p := range currencyPrefixes {
		if strings.Contains(text, p.prefix) {
			currency = p.currency
			break
		}
	}
	if currency == "" && strings.Contains(text, "$") {
		currency = "USD"
		if m.Currency == "AUD" || m.Currency == "CAD" {
			currency = m.Currency
		}
	}
	if currency == "" {
		currency = m.Currency
	}

	num := numberPattern.FindString(text)
	if num == "" {
		return 0, "", false
	}
	lastComma := strings.LastIndex(num, ",")
	if lastComma > strings.LastIndex(num, ".") && len(num)-lastComma-1 == 2 {
		num = strings.ReplaceAll(num, ".", "")
		num = strings.Replace(num, ",", ".", 1)
	} else {
		num = strings.ReplaceAll(num, ",", "")
	}

	price, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}
	return price, currency, true
}

var soldDateLayouts = []string{"2 Jan 2006", "Jan 2, 2006", "2 Jan. 2006"}

// parseSoldDate reads captions like "Sold  12 Mar 2024" or "Sold Mar 12, 2024".
func parseSoldDate(caption string) (time.Time, bool) {
	text := strings.Join(strings.Fields(caption), " ")
	text = strings.TrimSpace(strings.TrimPrefix(text, "Sold"))
	for _, layout := range soldDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
