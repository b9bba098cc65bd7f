package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the PCA stress analysis",
	Long: `Run the full analysis pipeline over a period and print a summary.
With --out the stressed scenarios (or component scores) are written
to a CSV file.

Example:
  go run ./cmd/yieldstress analyze
  go run ./cmd/yieldstress analyze --from 2022-01-01 --to 2024-01-01
  go run ./cmd/yieldstress analyze --out scenarios.csv
  go run ./cmd/yieldstress analyze --out scores.csv --kind scores`,
	RunE: runAnalyze,
}

var (
	analyzeFrom string
	analyzeTo   string
	analyzeOut  string
	analyzeKind string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "start date YYYY-MM-DD (default: 2 years ago)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "end date YYYY-MM-DD (default: today)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write CSV output to this file")
	analyzeCmd.Flags().StringVar(&analyzeKind, "kind", "scenarios", "CSV kind: scenarios or scores")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeKind != "scenarios" && analyzeKind != "scores" {
		return fmt.Errorf("invalid --kind %q (valid: scenarios, scores)", analyzeKind)
	}

	deps, closeAll, err := buildComponents()
	if err != nil {
		return err
	}
	defer closeAll()

	from, to, err := resolveRange(analyzeFrom, analyzeTo, -730)
	if err != nil {
		return err
	}

	result, err := deps.service.Run(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Printf("Observations: %d (%s to %s)\n",
		result.Observations,
		result.Dates[0].Format("2006-01-02"),
		result.LatestDate.Format("2006-01-02"))

	fmt.Println("Explained variance:")
	for k := range result.ExplainedVariance {
		fmt.Printf("  PC%d: %6.2f%%  (cumulative %6.2f%%)\n",
			k+1,
			100*result.ExplainedVariance[k],
			100*result.CumulativeVariance[k])
	}

	if !result.StressAvailable {
		fmt.Println("Period too short for stress scenarios")
		return nil
	}

	fmt.Printf("Stress scenarios generated for %d components over %d shock dates\n",
		len(result.Scenarios), len(result.ShockDates))

	if analyzeOut == "" {
		return nil
	}

	f, err := os.Create(analyzeOut)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	switch analyzeKind {
	case "scenarios":
		err = deps.exporter.WriteScenarios(f, result)
	case "scores":
		err = deps.exporter.WriteScores(f, result)
	}
	if err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}

	fmt.Printf("Wrote %s to %s\n", analyzeKind, analyzeOut)
	return nil
}
