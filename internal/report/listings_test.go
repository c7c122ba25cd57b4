package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/testutil"
)

func TestWriteListingsCSV(t *testing.T) {
	listings := testutil.SoldListings("GBP", 10, 12.5)
	sold := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	listings[0].SoldDate = &sold
	listings[1].Title = "=cmd|' /C calc'!A0"

	result := &model.MarketPriceResult{
		Query:      "AirPods Pro left earbud",
		Success:    true,
		ItemsFound: 2,
		Listings:   listings,
		PriceStats: &model.PriceStats{AvgPrice: 11.25, MedianPrice: 11.25, MinPrice: 10, MaxPrice: 12.5, Currency: "GBP"},
	}

	var buf bytes.Buffer
	if err := WriteListingsCSV(&buf, result); err != nil {
		t.Fatalf("WriteListingsCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header, 2 rows and summary; got %d records", len(records))
	}
	if records[0][0] != "item_id" || len(records[0]) != 7 {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][2] != "10.00" || records[1][4] != "2024-03-01T10:00:00Z" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[2][1] != "'=cmd|' /C calc'!A0" {
		t.Errorf("formula title not escaped: %q", records[2][1])
	}
	if records[2][4] != "" {
		t.Errorf("missing sold date should be empty, got %q", records[2][4])
	}
	if records[3][0] != "summary" || records[3][2] != "avg=11.25" {
		t.Errorf("unexpected summary row: %v", records[3])
	}
}

func TestWriteListingsCSV_NoData(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteListingsCSV(&buf, &model.MarketPriceResult{Query: "AirPods 4 left earbud"}); err != nil {
		t.Fatalf("WriteListingsCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("expected header only, got %d records", len(records))
	}
}
