// Package ui renders inline terminal progress for long-running
// pipeline stages.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const defaultWidth = 30

var (
	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
)

// ProgressBar writes a single-line, carriage-return updated progress
// bar. Safe for concurrent Update calls.
type ProgressBar struct {
	mu      sync.Mutex
	w       io.Writer
	width   int
	start   time.Time
	stage   string
	started bool
}

// NewProgressBar creates a progress bar writing to w
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{
		w:     w,
		width: defaultWidth,
		start: time.Now(),
	}
}

// Update redraws the bar. Matches the engine's progress callback
// signature so it can be installed directly.
func (p *ProgressBar) Update(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stage != p.stage {
		if p.started {
			fmt.Fprintln(p.w)
		}
		p.stage = stage
		p.start = time.Now()
	}
	p.started = true

	fmt.Fprintf(p.w, "\r%s", p.render(done, total))
}

// Finish terminates the progress line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		fmt.Fprintln(p.w)
		p.started = false
	}
}

func (p *ProgressBar) render(done, total int) string {
	if total <= 0 {
		return fmt.Sprintf("%s %s", labelStyle.Render(p.stage), "…")
	}

	fraction := float64(done) / float64(total)
	if fraction > 1 {
		fraction = 1
	}

	filledWidth := int(float64(p.width) * fraction)
	bar := filledStyle.Render(strings.Repeat("█", filledWidth)) +
		mutedStyle.Render(strings.Repeat("░", p.width-filledWidth))

	eta := ""
	if done > 0 && fraction > 0 && fraction < 1 {
		elapsed := time.Since(p.start)
		remaining := time.Duration(float64(elapsed)/fraction) - elapsed
		if remaining > 0 {
			eta = " ETA: " + formatDuration(remaining)
		}
	}

	return fmt.Sprintf("%s [%s] %d/%d %.1f%%%s",
		labelStyle.Render(p.stage), bar, done, total, fraction*100, eta)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
