package pricing

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/testutil"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{12.5, 12.5},
		{10.004, 10},
		{-1.005, -1.01},
		{0, 0},
		{33.333333, 33.33},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"odd", []float64{15, 10, 12.5}, 12.5},
		{"even", []float64{40, 10, 30, 20}, 25},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.prices); got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.prices, got, tt.want)
			}
		})
	}
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	prices := []float64{3, 1, 2}
	Median(prices)
	if prices[0] != 3 || prices[1] != 1 || prices[2] != 2 {
		t.Errorf("input modified: %v", prices)
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(testutil.SoldListings("GBP", 10.00, 12.50, 15.00))
	want := model.PriceStats{AvgPrice: 12.5, MedianPrice: 12.5, MinPrice: 10, MaxPrice: 15, Currency: "GBP"}
	if stats == nil || *stats != want {
		t.Errorf("ComputeStats = %+v, want %+v", stats, want)
	}

	if ComputeStats(nil) != nil {
		t.Error("ComputeStats(nil) should be nil")
	}
}

// Stats over random price sets must match a straightforward reference
// computation and never carry more than two decimals.
func TestComputeStats_RandomSets(t *testing.T) {
	factory := testutil.NewTestDataFactory(42)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := rng.Intn(20) + 1
		prices := make([]float64, n)
		listings := make([]model.SoldListing, n)
		for j := range prices {
			listings[j] = factory.GenerateSoldListing("GBP")
			prices[j] = listings[j].SoldPrice
		}

		sorted := append([]float64(nil), prices...)
		sort.Float64s(sorted)
		var wantMedian float64
		if n%2 == 1 {
			wantMedian = sorted[n/2]
		} else {
			wantMedian = (sorted[n/2-1] + sorted[n/2]) / 2
		}
		var sum float64
		for _, p := range prices {
			sum += p
		}

		stats := ComputeStats(listings)
		if stats.MinPrice != sorted[0] || stats.MaxPrice != sorted[n-1] {
			t.Fatalf("min/max = %v/%v, want %v/%v", stats.MinPrice, stats.MaxPrice, sorted[0], sorted[n-1])
		}
		if math.Abs(stats.MedianPrice-wantMedian) > 0.005 {
			t.Fatalf("median = %v, want %v", stats.MedianPrice, wantMedian)
		}
		if math.Abs(stats.AvgPrice-sum/float64(n)) > 0.005 {
			t.Fatalf("avg = %v, want %v", stats.AvgPrice, sum/float64(n))
		}
		for _, v := range []float64{stats.AvgPrice, stats.MedianPrice, stats.MinPrice, stats.MaxPrice} {
			s := strconv.FormatFloat(v, 'f', -1, 64)
			if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
				t.Fatalf("%s has more than two decimals", s)
			}
		}
	}
}

func TestComputeDateRange(t *testing.T) {
	listings := testutil.SoldListings("GBP", 10, 20, 30)
	mar1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mar9 := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	listings[0].SoldDate = &mar9
	listings[2].SoldDate = &mar1

	dr := ComputeDateRange(listings)
	if dr.Newest == nil || !dr.Newest.Equal(mar9) {
		t.Errorf("Newest = %v, want %v", dr.Newest, mar9)
	}
	if dr.Oldest == nil || !dr.Oldest.Equal(mar1) {
		t.Errorf("Oldest = %v, want %v", dr.Oldest, mar1)
	}

	empty := ComputeDateRange(testutil.SoldListings("GBP", 10))
	if empty.Newest != nil || empty.Oldest != nil {
		t.Errorf("expected nil bounds without dates, got %+v", empty)
	}
}
