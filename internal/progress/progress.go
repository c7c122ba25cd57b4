package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Indicator draws a progress bar for a run of a known number of items. It is
// safe to update from several goroutines.
type Indicator struct {
	mu         sync.Mutex
	out        io.Writer
	enabled    bool
	message    string
	total      int
	current    int
	startTime  time.Time
	lastUpdate time.Time
}

// NewIndicator creates a new progress indicator
func NewIndicator(out io.Writer, message string, total int, enabled bool) *Indicator {
	return &Indicator{
		out:       out,
		enabled:   enabled && out != nil,
		message:   message,
		total:     total,
		startTime: time.Now(),
	}
}

// WithTotal creates an indicator that stays silent when quiet is set.
func WithTotal(out io.Writer, message string, total int, quiet bool) *Indicator {
	return NewIndicator(out, message, total, !quiet)
}

// Start begins the progress indication
func (p *Indicator) Start() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.lastUpdate = p.startTime
	fmt.Fprintf(p.out, "%s...\n", p.message)
}

// Update records that current items are done and redraws the bar.
func (p *Indicator) Update(current, total int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if total > 0 {
		p.total = total
	}
	now := time.Now()

	// Redraw at most every 100ms, except for the final item
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && current < p.total {
		return
	}
	p.lastUpdate = now

	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r%s (%d processed)", p.message, current)
		return
	}

	elapsed := now.Sub(p.startTime)
	percentage := float64(current) / float64(p.total) * 100

	var eta string
	if current > 0 && current < p.total {
		rate := float64(current) / elapsed.Seconds()
		remaining := float64(p.total-current) / rate
		eta = " ETA: " + formatDuration(time.Duration(remaining*float64(time.Second)))
	}

	fmt.Fprintf(p.out, "\r%s [%s] %d/%d (%.1f%%)%s",
		p.message, createProgressBar(percentage), current, p.total, percentage, eta)
}

// Finish completes the progress indication
func (p *Indicator) Finish() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s ✓ Completed %d items in %s\n",
		p.message, p.current, formatDuration(time.Since(p.startTime)))
}

// FinishWithError completes the progress indication with an error
func (p *Indicator) FinishWithError(err error) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s ✗ Failed after %s: %v\n",
		p.message, formatDuration(time.Since(p.startTime)), err)
}

func createProgressBar(percentage float64) string {
	const width = 30
	filled := int(percentage / 100.0 * width)

	var bar strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && percentage < 100:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return bar.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
