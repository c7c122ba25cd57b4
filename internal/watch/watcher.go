package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/podprice/internal/concurrent"
	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/pricing"
)

// lookupTimeout bounds a single variant's lookup, including rate limiter waits.
const lookupTimeout = 2 * time.Minute

type Aggregator interface {
	FetchMarketPrices(ctx context.Context, v model.PartVariant, opts pricing.FetchOptions) (*model.MarketPriceResult, error)
}

type Recorder interface {
	Record(v model.PartVariant, stats model.PriceStats, itemsFound int, at time.Time) error
}

// Summary counts the outcomes of one refresh pass.
type Summary struct {
	Updated int `json:"updated"`
	NoData  int `json:"no_data"`
	Failed  int `json:"failed"`
}

// Watcher refreshes market prices for every watched variant and records the
// resulting statistics.
type Watcher struct {
	agg        Aggregator
	history    Recorder
	variants   []model.PartVariant
	logger     *slog.Logger
	now        func() time.Time
	workers    int
	onProgress func(completed, total int)
	fetcher    *concurrent.Fetcher
}

func NewWatcher(agg Aggregator, history Recorder, variants []model.PartVariant, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		agg:      agg,
		history:  history,
		variants: variants,
		logger:   logger,
		now:      time.Now,
		workers:  1,
	}
	w.fetcher = w.newFetcher()
	return w
}

// WithWorkers sets how many lookups run at once.
func (w *Watcher) WithWorkers(n int) *Watcher {
	if n > 0 {
		w.workers = n
	}
	w.fetcher = w.newFetcher()
	return w
}

// WithProgress registers a callback invoked after each lookup.
func (w *Watcher) WithProgress(fn func(completed, total int)) *Watcher {
	w.onProgress = fn
	w.fetcher = w.newFetcher()
	return w
}

func (w *Watcher) newFetcher() *concurrent.Fetcher {
	return concurrent.NewFetcher(concurrent.Config{
		Workers:    w.workers,
		Timeout:    lookupTimeout,
		Abort:      notConfigured,
		OnProgress: w.onProgress,
	})
}

// Variants returns the watched variants.
func (w *Watcher) Variants() []model.PartVariant {
	return w.variants
}

// Metrics reports lookup counts and latency accumulated across passes.
func (w *Watcher) Metrics() concurrent.Metrics {
	return w.fetcher.Metrics()
}

// A missing credential stops the pass since every remaining call would fail
// the same way.
func notConfigured(err error) bool {
	return errors.Is(err, ebay.ErrNotConfigured)
}

// RefreshAll looks up every variant and records the ones with sales. Lookup
// failures other than a missing credential are logged and counted.
func (w *Watcher) RefreshAll(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	lookup := func(ctx context.Context, v model.PartVariant) (*model.MarketPriceResult, error) {
		return w.agg.FetchMarketPrices(ctx, v, pricing.FetchOptions{})
	}

	var abortErr error
	for _, r := range w.fetcher.FetchAll(ctx, w.variants, lookup) {
		v := r.Variant
		switch {
		case r.Skipped:
			continue
		case notConfigured(r.Err):
			if abortErr == nil {
				abortErr = r.Err
			}
			continue
		case r.Err != nil:
			sum.Failed++
			w.logger.Warn("market price refresh failed", "variant", v.String(), "error", r.Err)
			continue
		case !r.Price.Success || r.Price.PriceStats == nil:
			sum.NoData++
			w.logger.Info("no market data", "variant", v.String(), "query", r.Price.Query, "reason", r.Price.Error)
			continue
		}

		if err := w.history.Record(v, *r.Price.PriceStats, r.Price.ItemsFound, w.now()); err != nil {
			return sum, fmt.Errorf("record history for %s: %w", v, err)
		}
		sum.Updated++
		w.logger.Debug("market price updated",
			"variant", v.String(),
			"avg", r.Price.PriceStats.AvgPrice,
			"median", r.Price.PriceStats.MedianPrice,
			"currency", r.Price.PriceStats.Currency,
			"items", r.Price.ItemsFound,
			"latency", r.Latency.Round(time.Millisecond))
	}

	if abortErr != nil {
		return sum, abortErr
	}
	return sum, ctx.Err()
}
