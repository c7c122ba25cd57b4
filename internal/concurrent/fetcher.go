package concurrent

import (
	"context"
	"sync"
	"time"

	"github.com/guarzo/podprice/internal/model"
)

// LookupFunc fetches market prices for a single part variant.
type LookupFunc func(ctx context.Context, v model.PartVariant) (*model.MarketPriceResult, error)

// Result represents the outcome of one lookup
type Result struct {
	Variant model.PartVariant
	Price   *model.MarketPriceResult
	Err     error
	Latency time.Duration
	// Skipped is set when the lookup never ran because the pass was
	// cancelled or aborted first. Err then holds the context error.
	Skipped bool
}

// Config holds configuration for the fetcher
type Config struct {
	Workers int           // Number of concurrent lookups
	Timeout time.Duration // Timeout per lookup, zero for none
	// Abort reports whether an error should stop the remaining lookups.
	Abort func(err error) bool
	// OnProgress is called after each lookup completes. It may be called
	// from several goroutines at once.
	OnProgress func(completed, total int)
}

// Fetcher runs market price lookups for many variants over a fixed pool of
// workers. Rate limiting is left to the provider.
type Fetcher struct {
	cfg Config

	mu      sync.Mutex
	metrics Metrics
}

// Metrics tracks lookup counts and latency across passes
type Metrics struct {
	Total        int
	Succeeded    int
	Failed       int
	Skipped      int
	TotalLatency time.Duration
	StartTime    time.Time
	EndTime      time.Time
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Fetcher{cfg: cfg}
}

// FetchAll returns one Result per variant, in input order.
func (f *Fetcher) FetchAll(ctx context.Context, variants []model.PartVariant, lookup LookupFunc) []Result {
	results := make([]Result, len(variants))
	if len(variants) == 0 {
		return results
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.begin(len(variants))
	defer f.end()

	workers := f.cfg.Workers
	if workers > len(variants) {
		workers = len(variants)
	}

	jobs := make(chan int)
	var (
		wg        sync.WaitGroup
		progressM sync.Mutex
		completed int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := f.fetchOne(ctx, variants[i], lookup)
				if r.Err != nil && !r.Skipped && f.cfg.Abort != nil && f.cfg.Abort(r.Err) {
					cancel()
				}
				results[i] = r
				f.record(r)

				if f.cfg.OnProgress != nil {
					progressM.Lock()
					completed++
					f.cfg.OnProgress(completed, len(variants))
					progressM.Unlock()
				}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(variants); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(variants); i++ {
		results[i] = Result{Variant: variants[i], Err: ctx.Err(), Skipped: true}
		f.record(results[i])
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, v model.PartVariant, lookup LookupFunc) Result {
	if err := ctx.Err(); err != nil {
		return Result{Variant: v, Err: err, Skipped: true}
	}
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	price, err := lookup(ctx, v)
	return Result{Variant: v, Price: price, Err: err, Latency: time.Since(start)}
}

// Metrics returns a snapshot of the lookup metrics
func (f *Fetcher) Metrics() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics
}

// AverageLatency is the mean latency of lookups that ran.
func (m Metrics) AverageLatency() time.Duration {
	ran := m.Succeeded + m.Failed
	if ran == 0 {
		return 0
	}
	return m.TotalLatency / time.Duration(ran)
}

func (f *Fetcher) begin(total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.Total += total
	f.metrics.StartTime = time.Now()
	f.metrics.EndTime = time.Time{}
}

func (f *Fetcher) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.EndTime = time.Now()
}

func (f *Fetcher) record(r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Skipped:
		f.metrics.Skipped++
		return
	case r.Err != nil:
		f.metrics.Failed++
	default:
		f.metrics.Succeeded++
	}
	f.metrics.TotalLatency += r.Latency
}
