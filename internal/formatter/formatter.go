package formatter

import (
	"fmt"
	"time"

	"github.com/yildizm/LogoMatch/internal/cachestore"
	"github.com/yildizm/LogoMatch/internal/engine"
)

// RiskLevel bands a fused similarity score for reporting
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
	RiskNone   RiskLevel = "No Risk"
)

// RiskFor maps a fused score onto its risk band
func RiskFor(score float64) RiskLevel {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 50:
		return RiskMedium
	case score >= 40:
		return RiskLow
	default:
		return RiskNone
	}
}

// CompareReport is the result of a single image-pair comparison
type CompareReport struct {
	ImageA string       `json:"image_a"`
	ImageB string       `json:"image_b"`
	Score  engine.Score `json:"score"`
}

// MatchReport is the result of a cross-collection match
type MatchReport struct {
	FolderA   string               `json:"folder_a"`
	FolderB   string               `json:"folder_b"`
	Threshold float64              `json:"threshold"`
	Results   []engine.MatchResult `json:"results"`
	Elapsed   time.Duration        `json:"elapsed"`
}

// StatsReport combines engine and cache observability counts
type StatsReport struct {
	Engine engine.StatsReport `json:"engine"`
	Cache  cachestore.Stats   `json:"cache"`
}

// Report is the single shape every formatter renders; exactly one
// section is populated per command.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Compare     *CompareReport `json:"compare,omitempty"`
	Match       *MatchReport   `json:"match,omitempty"`
	Stats       *StatsReport   `json:"stats,omitempty"`
}

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// New creates the formatter for a named output format
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "text", "":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	case "markdown":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
