package formatter

import (
	"encoding/json"

	"github.com/yildizm/LogoMatch/internal/engine"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// jsonMatch augments a match result with its risk band
type jsonMatch struct {
	engine.MatchResult
	Risk RiskLevel `json:"risk"`
}

// jsonOutput mirrors Report but annotates scores with risk bands
type jsonOutput struct {
	GeneratedAt string         `json:"generated_at"`
	Compare     *jsonCompare   `json:"compare,omitempty"`
	Match       *jsonMatchList `json:"match,omitempty"`
	Stats       *StatsReport   `json:"stats,omitempty"`
}

type jsonCompare struct {
	CompareReport
	Risk RiskLevel `json:"risk"`
}

type jsonMatchList struct {
	FolderA   string      `json:"folder_a"`
	FolderB   string      `json:"folder_b"`
	Threshold float64     `json:"threshold"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Results   []jsonMatch `json:"results"`
}

func (f *jsonFormatter) Format(report *Report) ([]byte, error) {
	out := &jsonOutput{
		GeneratedAt: report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Stats:       report.Stats,
	}
	if report.Compare != nil {
		out.Compare = &jsonCompare{
			CompareReport: *report.Compare,
			Risk:          RiskFor(report.Compare.Score.Fused),
		}
	}
	if report.Match != nil {
		list := &jsonMatchList{
			FolderA:   report.Match.FolderA,
			FolderB:   report.Match.FolderB,
			Threshold: report.Match.Threshold,
			ElapsedMS: report.Match.Elapsed.Milliseconds(),
			Results:   make([]jsonMatch, 0, len(report.Match.Results)),
		}
		for _, r := range report.Match.Results {
			list.Results = append(list.Results, jsonMatch{
				MatchResult: r,
				Risk:        RiskFor(r.Score.Fused),
			})
		}
		out.Match = list
	}
	return json.MarshalIndent(out, "", "  ")
}
