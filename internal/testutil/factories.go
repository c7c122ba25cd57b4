package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

// TestDataFactory provides methods for generating dynamic test data
type TestDataFactory struct {
	rand *rand.Rand
	seq  int
}

// NewTestDataFactory creates a new test data factory with a seeded random generator
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateTestToken generates a random test token
func (f *TestDataFactory) GenerateTestToken() string {
	return fmt.Sprintf("test-token-%d", f.rand.Int63())
}

// GenerateTestGeneration picks an AirPods generation name.
func (f *TestDataFactory) GenerateTestGeneration() string {
	gens := []string{"AirPods (2nd Gen)", "AirPods (3rd Gen)", "AirPods Pro", "AirPods Pro (2nd Gen)", "AirPods 4"}
	return gens[f.rand.Intn(len(gens))]
}

// GenerateTestPrice returns a price between 5.00 and 120.00 with cent precision.
func (f *TestDataFactory) GenerateTestPrice() float64 {
	return float64(f.rand.Intn(11500)+500) / 100
}

// GenerateSoldListing builds a confirmed-sold listing sold within the last 60 days.
func (f *TestDataFactory) GenerateSoldListing(currency string) model.SoldListing {
	f.seq++
	sold := time.Now().UTC().Add(-time.Duration(f.rand.Intn(60*24)) * time.Hour).Truncate(time.Second)
	return model.SoldListing{
		ItemID:       strconv.Itoa(100000 + f.seq),
		Title:        f.GenerateTestGeneration() + " genuine replacement",
		SoldPrice:    f.GenerateTestPrice(),
		Currency:     currency,
		SellingState: model.StateEndedWithSales,
		SoldDate:     &sold,
		Condition:    "Used",
		URL:          fmt.Sprintf("https://www.ebay.test/itm/%d", 100000+f.seq),
	}
}

// SoldListings builds one confirmed-sold listing per price.
func SoldListings(currency string, prices ...float64) []model.SoldListing {
	out := make([]model.SoldListing, len(prices))
	for i, p := range prices {
		out[i] = model.SoldListing{
			ItemID:       strconv.Itoa(i + 1),
			Title:        fmt.Sprintf("listing %d", i+1),
			SoldPrice:    p,
			Currency:     currency,
			SellingState: model.StateEndedWithSales,
		}
	}
	return out
}

// FindingItem describes one item for FindingResponseJSON. Empty EndTime omits
// listingInfo.
type FindingItem struct {
	ID       string
	Title    string
	Price    string
	Currency string
	State    string
	EndTime  string
}

// FindingResponseJSON renders a findCompletedItems JSON body in the Finding
// API's array-wrapped format.
func FindingResponseJSON(ack string, totalEntries int, items ...FindingItem) []byte {
	rendered := make([]map[string]any, 0, len(items))
	for _, it := range items {
		item := map[string]any{
			"itemId":      []string{it.ID},
			"title":       []string{it.Title},
			"viewItemURL": []string{"https://www.ebay.co.uk/itm/" + it.ID},
			"condition": []map[string]any{
				{"conditionDisplayName": []string{"Used"}},
			},
			"sellingStatus": []map[string]any{{
				"currentPrice": []map[string]string{{"@currencyId": it.Currency, "__value__": it.Price}},
				"sellingState": []string{it.State},
			}},
		}
		if it.EndTime != "" {
			item["listingInfo"] = []map[string]any{{"endTime": []string{it.EndTime}}}
		}
		rendered = append(rendered, item)
	}

	body := map[string]any{
		"ack": []string{ack},
		"searchResult": []map[string]any{{
			"@count": strconv.Itoa(len(items)),
			"item":   rendered,
		}},
		"paginationOutput": []map[string]any{{
			"totalEntries": []string{strconv.Itoa(totalEntries)},
		}},
	}
	if ack != "Success" && ack != "Warning" {
		body["errorMessage"] = []map[string]any{{
			"error": []map[string]any{{"message": []string{"Invalid keywords"}}},
		}}
	}

	data, err := json.Marshal(map[string]any{"findCompletedItemsResponse": []any{body}})
	if err != nil {
		panic(err)
	}
	return data
}

// PageItem describes one result on a sold-items results page. Empty SoldCaption
// renders an item without the sold marker.
type PageItem struct {
	ID          string
	Title       string
	Price       string
	SoldCaption string
	Condition   string
}

// SoldResultsPageHTML renders a minimal eBay search results page.
func SoldResultsPageHTML(total int, items ...PageItem) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1 class="srp-controls__count-heading"><span class="BOLD">`)
	b.WriteString(strconv.Itoa(total))
	b.WriteString(`</span> results</h1><ul class="srp-results">`)
	b.WriteString(`<li class="s-item"><a class="s-item__link" href="https://ebay.com/itm/123456"><div class="s-item__title"><span>Shop on eBay</span></div></a><span class="s-item__price">£20.00</span></li>`)
	for _, it := range items {
		b.WriteString(`<li class="s-item">`)
		if it.SoldCaption != "" {
			fmt.Fprintf(&b, `<div class="s-item__caption--signal POSITIVE"><span>%s</span></div>`, html.EscapeString(it.SoldCaption))
		}
		fmt.Fprintf(&b, `<a class="s-item__link" href="https://www.ebay.co.uk/itm/%s?hash=abc"><div class="s-item__title"><span>%s</span></div></a>`, it.ID, html.EscapeString(it.Title))
		fmt.Fprintf(&b, `<div class="s-item__subtitle"><span class="SECONDARY_INFO">%s</span></div>`, html.EscapeString(it.Condition))
		fmt.Fprintf(&b, `<span class="s-item__price"><span class="POSITIVE">%s</span></span>`, html.EscapeString(it.Price))
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}
