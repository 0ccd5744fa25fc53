package presenter

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

// Progress renders batch progress as an mpb bar
type Progress struct {
	progress *mpb.Progress
	bar      *mpb.Bar

	found    atomic.Int64
	notFound atomic.Int64
	done     atomic.Bool
}

// NewProgress creates a progress bar writing to w. A terminalWidth of 0
// keeps the mpb default width.
func NewProgress(w io.Writer, terminalWidth int) *Progress {
	opts := []mpb.ContainerOption{mpb.WithOutput(w)}
	if terminalWidth > 0 {
		opts = append(opts, mpb.WithWidth(terminalWidth/2))
	}

	p := &Progress{
		progress: mpb.New(opts...),
	}
	p.bar = p.progress.AddBar(0,
		mpb.PrependDecorators(
			decor.Name("ads.txt", decor.WCSyncWidth),
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf("found %d, missing %d", p.found.Load(), p.notFound.Load())
			}, decor.WCSyncSpace),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WCSyncSpace), "done",
			),
		),
	)
	return p
}

// OnMetricsUpdate implements application.MetricsObserver
func (p *Progress) OnMetricsUpdate(m *entity.Metrics) {
	if p.done.Load() {
		return
	}
	p.found.Store(m.Found)
	p.notFound.Store(m.NotFound)
	p.bar.SetTotal(m.TasksEnqueued, false)
	p.bar.SetCurrent(m.Found + m.NotFound)
}

// Wait completes the bar and waits for the last render
func (p *Progress) Wait() {
	if p.done.CompareAndSwap(false, true) {
		p.bar.SetTotal(-1, true)
	}
	p.progress.Wait()
}
