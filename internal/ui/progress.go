// Package ui renders terminal progress for a merge run.
package ui

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress is a single row-counting bar. A nil *Progress is a no-op, which
// is what NewProgress returns when progress output is disabled.
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

// NewProgress starts a bar of total rows on w. It returns nil when disabled
// or when there is nothing to count.
func NewProgress(w io.Writer, total int, enabled bool) *Progress {
	if !enabled || total <= 0 {
		return nil
	}
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(w))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Merging: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return &Progress{container: p, bar: bar}
}

// Increment advances the bar by one row.
func (p *Progress) Increment() {
	if p == nil {
		return
	}
	p.bar.Increment()
}

// Done completes the bar and waits for the final render.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()
}
