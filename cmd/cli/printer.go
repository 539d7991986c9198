package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nomis52/neongrid/engine"
)

// printer writes run events to a terminal.
// Each item line is printed once its progress is known.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	pending *engine.ItemResult
}

func newPrinter(w io.Writer, color bool) *printer {
	return &printer{w: w, color: color}
}

func (p *printer) paint(style, s string) string {
	if !p.color {
		return s
	}
	return style + s + colorReset
}

// ItemResult implements engine.Sink.
func (p *printer) ItemResult(r engine.ItemResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &r
}

// Progress implements engine.Sink.
func (p *printer) Progress(pr engine.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.pending
	p.pending = nil
	if r == nil {
		return
	}

	mark := p.paint(colorGreen, "✓")
	if r.Outcome == engine.OutcomeFailure {
		mark = p.paint(colorRed, "✗")
	}
	counter := p.paint(colorDim, fmt.Sprintf("[%*d/%d]", digits(pr.Limit), pr.Processed, pr.Limit))
	fmt.Fprintf(p.w, "%s %s %s\n", counter, mark, r.Label)
}

// Summary implements engine.Sink.
func (p *printer) Summary(s engine.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	style := colorBold + colorGreen
	if s.Cancelled {
		style = colorBold + colorYellow
	}
	fmt.Fprintln(p.w, p.paint(style, engine.Describe(s)))
	fmt.Fprintln(p.w, p.paint(colorDim, fmt.Sprintf("processed %d of %d in %s", s.Processed, s.Limit, s.Duration().Round(time.Millisecond))))
}

// Notify implements engine.Notifier.
func (p *printer) Notify(n engine.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	style := colorCyan
	switch n.Level {
	case engine.LevelWarning:
		style = colorYellow
	case engine.LevelError:
		style = colorRed
	case engine.LevelSuccess:
		style = colorGreen
	}
	fmt.Fprintln(p.w, p.paint(style, n.Message))
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
