package history

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

// Retention is how long snapshots are kept.
const Retention = 90 * 24 * time.Hour

// Point is one market price snapshot for a variant.
type Point struct {
	AvgPrice    float64   `json:"avg_price"`
	MedianPrice float64   `json:"median_price"`
	Currency    string    `json:"currency"`
	ItemsFound  int       `json:"items_found"`
	Timestamp   time.Time `json:"timestamp"`
}

// Series holds snapshots for one part variant, oldest first.
type Series struct {
	Key     string            `json:"key"`
	Variant model.PartVariant `json:"variant"`
	Points  []Point           `json:"points"`
}

// Tracker keeps market price snapshots in a JSON file. An empty file path
// keeps everything in memory.
type Tracker struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]*Series
	now      func() time.Time
}

func NewTracker(filePath string) *Tracker {
	t := &Tracker{
		filePath: filePath,
		data:     make(map[string]*Series),
		now:      time.Now,
	}
	t.load()
	return t
}

// Record appends a snapshot taken at `at` and persists the tracker.
func (t *Tracker) Record(v model.PartVariant, stats model.PriceStats, itemsFound int, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := v.Key()
	series, ok := t.data[key]
	if !ok {
		series = &Series{Key: key, Variant: v}
		t.data[key] = series
	}
	series.Points = append(series.Points, Point{
		AvgPrice:    stats.AvgPrice,
		MedianPrice: stats.MedianPrice,
		Currency:    stats.Currency,
		ItemsFound:  itemsFound,
		Timestamp:   at,
	})
	sort.SliceStable(series.Points, func(i, j int) bool {
		return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
	})
	t.pruneLocked(series, Retention)

	return t.saveLocked()
}

// Series returns a copy of the snapshots for v.
func (t *Tracker) Series(v model.PartVariant) (Series, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	series, ok := t.data[v.Key()]
	if !ok {
		return Series{Key: v.Key(), Variant: v}, false
	}
	out := *series
	out.Points = append([]Point(nil), series.Points...)
	return out, true
}

// Volatility30d is the coefficient of variation of average prices recorded
// in the last 30 days, or 0 with fewer than two snapshots.
func (t *Tracker) Volatility30d(v model.PartVariant) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	series, ok := t.data[v.Key()]
	if !ok {
		return 0
	}
	cutoff := t.now().Add(-30 * 24 * time.Hour)
	var prices []float64
	for _, p := range series.Points {
		if p.Timestamp.After(cutoff) {
			prices = append(prices, p.AvgPrice)
		}
	}
	return coefficientOfVariation(prices)
}

// Summary reports how many variants and snapshots are tracked.
func (t *Tracker) Summary() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	points := 0
	for _, s := range t.data {
		points += len(s.Points)
	}
	return map[string]int{
		"variants":     len(t.data),
		"price_points": points,
	}
}

// Prune drops snapshots older than maxAge and variants left empty.
func (t *Tracker) Prune(maxAge time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, series := range t.data {
		t.pruneLocked(series, maxAge)
		if len(series.Points) == 0 {
			delete(t.data, key)
		}
	}
	return t.saveLocked()
}

func (t *Tracker) pruneLocked(series *Series, maxAge time.Duration) {
	cutoff := t.now().Add(-maxAge)
	kept := series.Points[:0]
	for _, p := range series.Points {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	series.Points = kept
}

// coefficientOfVariation uses the sample standard deviation.
func coefficientOfVariation(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, p := range prices {
		d := p - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(prices)-1)) / mean
}

// load ignores a missing or corrupt file and starts empty.
func (t *Tracker) load() {
	if t.filePath == "" {
		return
	}
	data, err := os.ReadFile(t.filePath)
	if err != nil {
		return
	}
	var all []Series
	if err := json.Unmarshal(data, &all); err != nil {
		return
	}
	for i := range all {
		s := &all[i]
		if s.Key == "" {
			s.Key = s.Variant.Key()
		}
		t.data[s.Key] = s
	}
}

func (t *Tracker) saveLocked() error {
	if t.filePath == "" {
		return nil
	}
	if dir := filepath.Dir(t.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	all := make([]Series, 0, len(t.data))
	for _, s := range t.data {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp := t.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, t.filePath); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
