package formatter

import (
	"fmt"
	"strings"
)

// markdownFormatter formats output as a Markdown document
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(report *Report) ([]byte, error) {
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

func (f *markdownFormatter) writeCompare(b *strings.Builder, c *CompareReport) {
	b.WriteString("# Image Comparison\n\n")
	fmt.Fprintf(b, "- **Image A**: `%s`\n", c.ImageA)
	fmt.Fprintf(b, "- **Image B**: `%s`\n", c.ImageB)
	fmt.Fprintf(b, "- **Fused Score**: %.2f\n", c.Score.Fused)
	fmt.Fprintf(b, "- **Risk**: %s\n\n", RiskFor(c.Score.Fused))

	b.WriteString("| Feature | Score |\n|---------|-------|\n")
	for _, entry := range sortedBreakdown(c.Score.Breakdown) {
		fmt.Fprintf(b, "| %s | %.2f |\n", entry.name, entry.score)
	}
}

func (f *markdownFormatter) writeMatch(b *strings.Builder, m *MatchReport) {
	b.WriteString("# Cross-Collection Match\n\n")
	fmt.Fprintf(b, "- **Folder A**: `%s`\n", m.FolderA)
	fmt.Fprintf(b, "- **Folder B**: `%s`\n", m.FolderB)
	fmt.Fprintf(b, "- **Threshold**: %.1f\n", m.Threshold)
	fmt.Fprintf(b, "- **Matches**: %d\n\n", len(m.Results))

	if len(m.Results) == 0 {
		b.WriteString("No matches at this threshold.\n")
		return
	}

	b.WriteString("| Score | Risk | Image A | Image B |\n|-------|------|---------|--------|\n")
	for _, r := range m.Results {
		fmt.Fprintf(b, "| %.2f | %s | `%s` | `%s` |\n",
			r.Score.Fused, RiskFor(r.Score.Fused), r.ImageA, r.ImageB)
	}
}

func (f *markdownFormatter) writeStats(b *strings.Builder, s *StatsReport) {
	b.WriteString("# Engine Statistics\n\n")
	if s.Engine.VocabClusters > 0 {
		fmt.Fprintf(b, "- **Vocabulary**: %d clusters\n", s.Engine.VocabClusters)
	} else {
		b.WriteString("- **Vocabulary**: mean encoder\n")
	}
	fmt.Fprintf(b, "- **Rebuilds**: %d\n", s.Engine.Rebuilds)
	fmt.Fprintf(b, "- **Cache**: %d snapshots (%s) in `%s`\n\n",
		s.Cache.Snapshots, formatBytes(s.Cache.TotalSize), s.Cache.Dir)

	if len(s.Engine.Folders) == 0 {
		return
	}
	b.WriteString("| Folder | Images | Feature Types | Index Rows |\n|--------|--------|---------------|------------|\n")
	for _, folder := range sortedFolders(s.Engine.Folders) {
		fs := s.Engine.Folders[folder]
		fmt.Fprintf(b, "| `%s` | %d | %d | %d |\n", folder, fs.Images, fs.FeatureTypes, fs.IndexRows)
	}
}
