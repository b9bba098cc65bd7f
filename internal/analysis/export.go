package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Exporter renders analysis results as CSV for download endpoints and the
// CLI. Values are written with full float64 precision so re-imports round-trip.
type Exporter struct{}

// NewExporter creates a CSV exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteScenarios writes one row per maturity: the actual reconstructed curve
// followed by up/down stressed curves per component, in component order.
func (e *Exporter) WriteScenarios(w io.Writer, result *Result) error {
	if !result.StressAvailable {
		return fmt.Errorf("result has no stress scenarios to export")
	}

	components := make([]int, 0, len(result.Scenarios))
	for k := range result.Scenarios {
		components = append(components, k)
	}
	sort.Ints(components)

	cw := csv.NewWriter(w)

	header := []string{"maturity", "actual"}
	for _, k := range components {
		header = append(header,
			fmt.Sprintf("pc%d_up", k+1),
			fmt.Sprintf("pc%d_down", k+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write scenario header: %w", err)
	}

	for j, maturity := range result.Maturities {
		row := make([]string, 0, len(header))
		row = append(row, maturity)
		row = append(row, formatFloat(result.Scenarios[components[0]].Actual[j]))
		for _, k := range components {
			sc := result.Scenarios[k]
			row = append(row, formatFloat(sc.Up[j]), formatFloat(sc.Down[j]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write scenario row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteScores writes the component score time series, one row per date.
func (e *Exporter) WriteScores(w io.Writer, result *Result) error {
	cw := csv.NewWriter(w)

	header := []string{"date"}
	for k := range result.Scores {
		header = append(header, fmt.Sprintf("pc%d", k+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write score header: %w", err)
	}

	for t, date := range result.Dates {
		row := make([]string, 0, len(header))
		row = append(row, date.Format("2006-01-02"))
		for k := range result.Scores {
			row = append(row, formatFloat(result.Scores[k][t]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write score row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
