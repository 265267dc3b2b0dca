package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yildizm/LogoMatch/internal/cachestore"
	"github.com/yildizm/LogoMatch/internal/engine"
)

func sampleCompare() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Compare: &CompareReport{
			ImageA: "/logos/a.png",
			ImageB: "/logos/b.png",
			Score: engine.Score{
				Fused: 82.5,
				Breakdown: map[string]float64{
					"local": 90, "grid": 80, "gradient": 75, "pyramid": 70,
				},
			},
		},
	}
}

func sampleMatch() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Match: &MatchReport{
			FolderA:   "/logos/a",
			FolderB:   "/logos/b",
			Threshold: 50,
			Elapsed:   1500 * time.Millisecond,
			Results: []engine.MatchResult{
				{
					ID:     "id-1",
					ImageA: "/logos/a/one.png",
					ImageB: "/logos/b/two.png",
					Score: engine.Score{
						Fused:     61.2,
						Breakdown: map[string]float64{"local": 70, "grid": 60, "gradient": 55, "pyramid": 50},
					},
					Direction: engine.DirectionForward,
				},
			},
		},
	}
}

func sampleStats() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Stats: &StatsReport{
			Engine: engine.StatsReport{
				Folders: map[string]engine.FolderStats{
					"/logos/a": {Images: 10, FeatureTypes: 4, IndexRows: 40},
				},
				VocabClusters: 128,
				Rebuilds:      1,
			},
			Cache: cachestore.Stats{Dir: "/tmp/cache", Snapshots: 2, TotalSize: 4096},
		},
	}
}

func TestRiskFor(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{100, RiskHigh},
		{70, RiskHigh},
		{69.9, RiskMedium},
		{50, RiskMedium},
		{49.9, RiskLow},
		{40, RiskLow},
		{39.9, RiskNone},
		{0, RiskNone},
	}
	for _, tc := range cases {
		if got := RiskFor(tc.score); got != tc.want {
			t.Errorf("RiskFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestNewSelectsFormatter(t *testing.T) {
	for _, format := range []string{"text", "json", "csv", "markdown", ""} {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := New("xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestTerminalCompare(t *testing.T) {
	f := NewTerminal(false)
	out, err := f.Format(sampleCompare())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	text := string(out)
	for _, want := range []string{"/logos/a.png", "82.50", "High", "local", "pyramid"} {
		if !strings.Contains(text, want) {
			t.Errorf("terminal compare output missing %q:\n%s", want, text)
		}
	}
}

func TestTerminalMatchAndStats(t *testing.T) {
	f := NewTerminal(false)

	out, err := f.Format(sampleMatch())
	if err != nil {
		t.Fatalf("Format match: %v", err)
	}
	if !strings.Contains(string(out), "61.20") || !strings.Contains(string(out), "Medium") {
		t.Errorf("match output missing score or risk:\n%s", out)
	}

	out, err = f.Format(sampleStats())
	if err != nil {
		t.Fatalf("Format stats: %v", err)
	}
	if !strings.Contains(string(out), "128 clusters") {
		t.Errorf("stats output missing vocabulary info:\n%s", out)
	}
}

func TestTerminalEmptyReport(t *testing.T) {
	f := NewTerminal(false)
	if _, err := f.Format(&Report{}); err == nil {
		t.Error("expected error for empty report")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := NewJSON()
	out, err := f.Format(sampleMatch())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	match, ok := decoded["match"].(map[string]interface{})
	if !ok {
		t.Fatal("match section missing")
	}
	results, ok := match["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("expected 1 result, got %v", match["results"])
	}
	first := results[0].(map[string]interface{})
	if first["risk"] != "Medium" {
		t.Errorf("risk = %v, want Medium", first["risk"])
	}
}

func TestCSVMatch(t *testing.T) {
	f := NewCSV()
	out, err := f.Format(sampleMatch())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d CSV lines, want header + 1 record", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Image A,Image B,Fused Score,Risk,Direction") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "61.20") {
		t.Errorf("record missing fused score: %s", lines[1])
	}
}

func TestCSVRejectsStats(t *testing.T) {
	f := NewCSV()
	if _, err := f.Format(sampleStats()); err == nil {
		t.Error("expected error for stats report as CSV")
	}
}

func TestMarkdownMatch(t *testing.T) {
	f := NewMarkdown()
	out, err := f.Format(sampleMatch())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "# Cross-Collection Match") {
		t.Errorf("missing heading:\n%s", text)
	}
	if !strings.Contains(text, "| 61.20 | Medium |") {
		t.Errorf("missing table row:\n%s", text)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
