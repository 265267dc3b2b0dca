package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/yildizm/LogoMatch/internal/feature"
)

// csvFormatter formats match and compare results as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(report *Report) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	headers := []string{"Image A", "Image B", "Fused Score", "Risk", "Direction"}
	for _, ft := range feature.Types() {
		headers = append(headers, ft)
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	switch {
	case report.Compare != nil:
		c := report.Compare
		if err := writer.Write(csvRow(c.ImageA, c.ImageB, c.Score.Fused, "", c.Score.Breakdown)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	case report.Match != nil:
		for _, r := range report.Match.Results {
			if err := writer.Write(csvRow(r.ImageA, r.ImageB, r.Score.Fused, r.Direction, r.Score.Breakdown)); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("CSV output supports compare and match reports only")
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return b.Bytes(), nil
}

func csvRow(imageA, imageB string, fused float64, direction string, breakdown map[string]float64) []string {
	record := []string{
		imageA,
		imageB,
		fmt.Sprintf("%.2f", fused),
		string(RiskFor(fused)),
		direction,
	}
	for _, ft := range feature.Types() {
		record = append(record, fmt.Sprintf("%.2f", breakdown[ft]))
	}
	return record
}
