package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/LogoMatch/internal/engine"
)

// maxListedMatches caps how many matches the terminal view prints in
// full; the remainder is summarized.
const maxListedMatches = 20

// terminalFormatter formats output as plain text for terminal display
// using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder
	switch {
	case report.Compare != nil:
		f.writeCompare(&b, report.Compare)
	case report.Match != nil:
		f.writeMatch(&b, report.Match)
	case report.Stats != nil:
		f.writeStats(&b, report.Stats)
	default:
		return nil, fmt.Errorf("empty report")
	}
	return []byte(b.String()), nil
}

func (f *terminalFormatter) writeCompare(b *strings.Builder, c *CompareReport) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Image Comparison\n")

	items := []termfmt.TreeItem{
		{Label: "Image A", Value: c.ImageA},
		{Label: "Image B", Value: c.ImageB},
		{Label: "Fused Score", Value: fmt.Sprintf("%.2f", c.Score.Fused)},
		{Label: "Risk", Value: string(RiskFor(c.Score.Fused)), Last: true},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")

	b.WriteString("Breakdown\n")
	breakdown := sortedBreakdown(c.Score.Breakdown)
	for i, entry := range breakdown {
		bar := termfmt.CreateConfidenceBar(entry.score/100, f.opts)
		prefix := "├─"
		if i == len(breakdown)-1 {
			prefix = "└─"
		}
		fmt.Fprintf(b, "%s %-10s %6.2f %s\n", prefix, entry.name, entry.score, bar)
	}
}

func (f *terminalFormatter) writeMatch(b *strings.Builder, m *MatchReport) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Cross-Collection Match\n")

	items := []termfmt.TreeItem{
		{Label: "Folder A", Value: m.FolderA},
		{Label: "Folder B", Value: m.FolderB},
		{Label: "Threshold", Value: fmt.Sprintf("%.1f", m.Threshold)},
		{Label: "Matches", Value: formatNumber(len(m.Results))},
		{Label: "Elapsed", Value: m.Elapsed.Truncate(time.Millisecond).String(), Last: true},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")

	if len(m.Results) == 0 {
		b.WriteString("No matches at this threshold.\n")
		return
	}

	listed := m.Results
	if len(listed) > maxListedMatches {
		listed = listed[:maxListedMatches]
	}
	for _, r := range listed {
		risk := RiskFor(r.Score.Fused)
		fmt.Fprintf(b, "%s %6.2f  %s  %s ↔ %s\n",
			riskSymbol(risk, f.opts), r.Score.Fused, risk, r.ImageA, r.ImageB)
	}
	if len(m.Results) > maxListedMatches {
		fmt.Fprintf(b, "… and %d more\n", len(m.Results)-maxListedMatches)
	}
}

func (f *terminalFormatter) writeStats(b *strings.Builder, s *StatsReport) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Engine Statistics\n")

	vocabValue := "mean encoder"
	if s.Engine.VocabClusters > 0 {
		vocabValue = fmt.Sprintf("%d clusters", s.Engine.VocabClusters)
	}
	items := []termfmt.TreeItem{
		{Label: "Prepared Folders", Value: formatNumber(len(s.Engine.Folders))},
		{Label: "Vocabulary", Value: vocabValue},
		{Label: "Rebuilds", Value: formatNumber(s.Engine.Rebuilds)},
		{Label: "Cache Dir", Value: s.Cache.Dir},
		{Label: "Cache Snapshots", Value: fmt.Sprintf("%d (%s)", s.Cache.Snapshots, formatBytes(s.Cache.TotalSize)), Last: true},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")

	folders := sortedFolders(s.Engine.Folders)
	if len(folders) == 0 {
		return
	}
	b.WriteString("\nFolders\n")
	for i, folder := range folders {
		fs := s.Engine.Folders[folder]
		prefix := "├─"
		if i == len(folders)-1 {
			prefix = "└─"
		}
		fmt.Fprintf(b, "%s %s: %d images, %d feature types, %d index rows\n",
			prefix, folder, fs.Images, fs.FeatureTypes, fs.IndexRows)
	}
}

func sortedFolders(folders map[string]engine.FolderStats) []string {
	out := make([]string, 0, len(folders))
	for folder := range folders {
		out = append(out, folder)
	}
	sort.Strings(out)
	return out
}
