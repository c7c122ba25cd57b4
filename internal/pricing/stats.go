package pricing

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

// Round2 rounds to cents, halves away from zero. The value is first trimmed
// to 8 decimals so binary noise (1.005*100 = 100.4999...) does not round down.
func Round2(v float64) float64 {
	shifted, err := strconv.ParseFloat(strconv.FormatFloat(v*100, 'f', 8, 64), 64)
	if err != nil {
		shifted = v * 100
	}
	return math.Round(shifted) / 100
}

// Median is the order-statistic median; it does not modify prices.
func Median(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func Mean(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// ComputeStats returns nil for an empty slice. Currency is taken from the
// first listing.
func ComputeStats(listings []model.SoldListing) *model.PriceStats {
	if len(listings) == 0 {
		return nil
	}

	prices := make([]float64, len(listings))
	lo, hi := listings[0].SoldPrice, listings[0].SoldPrice
	for i, l := range listings {
		prices[i] = l.SoldPrice
		if l.SoldPrice < lo {
			lo = l.SoldPrice
		}
		if l.SoldPrice > hi {
			hi = l.SoldPrice
		}
	}

	return &model.PriceStats{
		AvgPrice:    Round2(Mean(prices)),
		MedianPrice: Round2(Median(prices)),
		MinPrice:    Round2(lo),
		MaxPrice:    Round2(hi),
		Currency:    listings[0].Currency,
	}
}

// ComputeDateRange ignores listings without a sold date; both bounds are nil
// when none has one.
func ComputeDateRange(listings []model.SoldListing) model.DateRange {
	var newest, oldest *time.Time
	for _, l := range listings {
		if l.SoldDate == nil {
			continue
		}
		d := *l.SoldDate
		if newest == nil || d.After(*newest) {
			newest = &d
		}
		if oldest == nil || d.Before(*oldest) {
			oldest = &d
		}
	}
	return model.DateRange{Newest: newest, Oldest: oldest}
}
