package formatter

import (
	"fmt"
	"sort"

	"github.com/yildizm/go-termfmt"
)

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

// formatBytes renders a byte count in human-readable units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// riskSymbol returns the emoji for a risk band using go-termfmt
func riskSymbol(risk RiskLevel, opts *termfmt.TerminalOptions) string {
	switch risk {
	case RiskHigh:
		return termfmt.GetEmoji("error", opts)
	case RiskMedium:
		return termfmt.GetEmoji("warning", opts)
	case RiskLow:
		return termfmt.GetEmoji("info", opts)
	default:
		return termfmt.GetEmoji("success", opts)
	}
}

// breakdownEntry pairs a feature type with its score for ordered output
type breakdownEntry struct {
	name  string
	score float64
}

// sortedBreakdown orders a score breakdown by descending score, then
// name, so output is stable across runs.
func sortedBreakdown(breakdown map[string]float64) []breakdownEntry {
	entries := make([]breakdownEntry, 0, len(breakdown))
	for name, score := range breakdown {
		entries = append(entries, breakdownEntry{name: name, score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].name < entries[j].name
	})
	return entries
}
