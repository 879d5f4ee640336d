package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar displays completed/total request counts on a single line.
// It is safe for concurrent use by load workers.
type ProgressBar struct {
	w       io.Writer
	title   string
	total   int64
	current int64
	failed  int64
	width   int
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar for total units of work.
func NewProgressBar(w io.Writer, title string, total int64) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		total: total,
		width: 30,
	}
}

// Increment records one finished unit, failed or not.
func (p *ProgressBar) Increment(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if failed {
		p.failed++
	}
	p.render()
}

// Current returns the finished and failed counts.
func (p *ProgressBar) Current() (done, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.failed
}

// Finish ends the progress line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d done", p.title, p.current)
		return
	}

	percent := float64(p.current) / float64(p.total)
	if percent > 1 {
		percent = 1
	}
	filled := int(float64(p.width) * percent)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%d/%d, %d failed)",
		p.title, bar, percent*100, p.current, p.total, p.failed)
}
