package ebay

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

// The Finding API JSON format wraps nearly every field in a one-element array.
type findingResponse struct {
	Response []findingBody `json:"findCompletedItemsResponse"`
}

type findingBody struct {
	Ack          []string       `json:"ack"`
	ErrorMessage []errorMessage `json:"errorMessage"`
	SearchResult []struct {
		Count string        `json:"@count"`
		Item  []findingItem `json:"item"`
	} `json:"searchResult"`
	PaginationOutput []struct {
		TotalEntries []string `json:"totalEntries"`
	} `json:"paginationOutput"`
}

type errorMessage struct {
	Error []struct {
		Message  []string `json:"message"`
		Severity []string `json:"severity"`
	} `json:"error"`
}

type findingItem struct {
	ItemID      []string `json:"itemId"`
	Title       []string `json:"title"`
	ViewItemURL []string `json:"viewItemURL"`
	Condition   []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
	SellingStatus []struct {
		CurrentPrice []amount `json:"currentPrice"`
		SellingState []string `json:"sellingState"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		EndTime []string `json:"endTime"`
	} `json:"listingInfo"`
}

type amount struct {
	Value      string `json:"__value__"`
	CurrencyID string `json:"@currencyId"`
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// normalizeItem flattens one Finding API item. ok is false when the item has
// no usable price.
func normalizeItem(item findingItem) (listing model.SoldListing, ok bool) {
	listing = model.SoldListing{
		ItemID: first(item.ItemID),
		Title:  first(item.Title),
		URL:    first(item.ViewItemURL),
	}

	if len(item.Condition) > 0 {
		listing.Condition = first(item.Condition[0].ConditionDisplayName)
	}

	if len(item.SellingStatus) == 0 || len(item.SellingStatus[0].CurrentPrice) == 0 {
		return listing, false
	}
	status := item.SellingStatus[0]
	price, err := strconv.ParseFloat(strings.TrimSpace(status.CurrentPrice[0].Value), 64)
	if err != nil || price < 0 {
		return listing, false
	}
	listing.SoldPrice = price
	listing.Currency = status.CurrentPrice[0].CurrencyID
	listing.SellingState = model.SellingState(first(status.SellingState))

	if len(item.ListingInfo) > 0 {
		if end, err := time.Parse(time.RFC3339, first(item.ListingInfo[0].EndTime)); err == nil {
			end = end.UTC()
			listing.SoldDate = &end
		}
	}

	return listing, true
}

func parseFindingResponse(body findingBody, max int) *model.SearchResult {
	ack := first(body.Ack)
	if ack != "Success" && ack != "Warning" {
		msg := firstErrorMessage(body.ErrorMessage)
		if msg == "" {
			msg = "eBay API acknowledged request as " + strings.ToLower(orDefault(ack, "unknown"))
		}
		return &model.SearchResult{Success: false, Error: msg, Items: []model.SoldListing{}}
	}

	result := &model.SearchResult{Success: true, Items: []model.SoldListing{}}
	if len(body.PaginationOutput) > 0 {
		result.TotalAvailable, _ = strconv.Atoi(first(body.PaginationOutput[0].TotalEntries))
	}

	if len(body.SearchResult) == 0 {
		return result
	}
	for _, item := range body.SearchResult[0].Item {
		listing, ok := normalizeItem(item)
		if !ok || !listing.SellingState.Sold() {
			continue
		}
		result.Items = append(result.Items, listing)
		if max > 0 && len(result.Items) == max {
			break
		}
	}
	return result
}

func firstErrorMessage(msgs []errorMessage) string {
	for _, m := range msgs {
		for _, e := range m.Error {
			if msg := first(e.Message); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// extractErrorMessage extracts the first error message from a non-2xx body, which may
// be either the operation response or a bare errorMessage envelope.
func extractErrorMessage(body []byte) string {
	var bare struct {
		ErrorMessage []errorMessage `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &bare); err == nil {
		if msg := firstErrorMessage(bare.ErrorMessage); msg != "" {
			return msg
		}
	}
	var fr findingResponse
	if err := json.Unmarshal(body, &fr); err == nil && len(fr.Response) > 0 {
		return firstErrorMessage(fr.Response[0].ErrorMessage)
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
