package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

var listingHeaders = []string{"item_id", "title", "sold_price", "currency", "sold_date", "condition", "url"}

// WriteListingsCSV writes the sold listings behind a market price result, one
// row per listing, with a summary row of the price statistics at the end.
func WriteListingsCSV(w io.Writer, result *model.MarketPriceResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(listingHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, l := range result.Listings {
		sold := ""
		if l.SoldDate != nil {
			sold = l.SoldDate.UTC().Format(time.RFC3339)
		}
		row := []string{
			l.ItemID,
			l.Title,
			strconv.FormatFloat(l.SoldPrice, 'f', 2, 64),
			l.Currency,
			sold,
			l.Condition,
			l.URL,
		}
		if err := cw.Write(EscapeCSVRow(row)); err != nil {
			return fmt.Errorf("write listing %s: %w", l.ItemID, err)
		}
	}

	if s := result.PriceStats; s != nil {
		summary := []string{
			"summary",
			result.Query,
			"avg=" + strconv.FormatFloat(s.AvgPrice, 'f', 2, 64),
			s.Currency,
			"median=" + strconv.FormatFloat(s.MedianPrice, 'f', 2, 64),
			"min=" + strconv.FormatFloat(s.MinPrice, 'f', 2, 64),
			"max=" + strconv.FormatFloat(s.MaxPrice, 'f', 2, 64),
		}
		if err := cw.Write(EscapeCSVRow(summary)); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
