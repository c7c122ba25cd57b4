package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewTestDataFactory(t *testing.T) {
	factory1 := NewTestDataFactory(12345)
	factory2 := NewTestDataFactory(12345)

	if factory1.GenerateTestToken() != factory2.GenerateTestToken() {
		t.Error("factories with same seed should generate same values")
	}
}

func TestGenerateSoldListing(t *testing.T) {
	factory := NewTestDataFactory(7)

	a := factory.GenerateSoldListing("GBP")
	b := factory.GenerateSoldListing("GBP")

	if a.ItemID == b.ItemID {
		t.Errorf("item IDs should be unique, both were %s", a.ItemID)
	}
	if !a.SellingState.Sold() {
		t.Errorf("generated listing should be sold, got %s", a.SellingState)
	}
	if a.SoldPrice < 5 || a.SoldPrice > 120 {
		t.Errorf("price out of range: %.2f", a.SoldPrice)
	}
	if a.SoldDate == nil {
		t.Error("sold date should be set")
	}
}

func TestFindingResponseJSON(t *testing.T) {
	body := FindingResponseJSON("Success", 10, FindingItem{ID: "1", Title: "x", Price: "9.99", Currency: "GBP", State: "EndedWithSales"})

	var decoded map[string][]map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("fixture is not valid JSON: %v", err)
	}
	if len(decoded["findCompletedItemsResponse"]) != 1 {
		t.Fatalf("expected one response body, got %d", len(decoded["findCompletedItemsResponse"]))
	}
	if !strings.Contains(string(body), `"__value__":"9.99"`) {
		t.Errorf("price missing from fixture: %s", body)
	}
}

func TestSoldResultsPageHTML(t *testing.T) {
	page := SoldResultsPageHTML(3, PageItem{ID: "42", Title: "AirPods <Pro>", Price: "£10.00", SoldCaption: "Sold 1 Mar 2024"})

	if !strings.Contains(page, "AirPods &lt;Pro&gt;") {
		t.Error("title should be HTML escaped")
	}
	if !strings.Contains(page, "/itm/42") {
		t.Error("item link missing")
	}
}
