package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/curvelab/yieldstress/internal/curve"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch yield curves from the ECB Data Portal",
	Long: `Fetch euro-area yield curve history and print a summary. With the
database enabled the observations are archived for offline reuse.

Example:
  go run ./cmd/yieldstress fetch
  go run ./cmd/yieldstress fetch --from 2023-01-01 --to 2024-01-01`,
	RunE: runFetch,
}

var (
	fetchFrom string
	fetchTo   string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date YYYY-MM-DD (default: 90 days ago)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date YYYY-MM-DD (default: today)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	deps, closeAll, err := buildComponents()
	if err != nil {
		return err
	}
	defer closeAll()

	from, to, err := resolveRange(fetchFrom, fetchTo, -90)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	history, err := deps.ecb.FetchHistory(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch curves: %w", err)
	}
	if history.Len() == 0 {
		fmt.Println("No curve observations in the selected period")
		return nil
	}

	if deps.repo != nil {
		if err := deps.repo.Store(ctx, history); err != nil {
			return fmt.Errorf("archive curves: %w", err)
		}
		if err := deps.provider.Invalidate(ctx); err != nil {
			deps.logger.WithError(err).Warn("Failed to invalidate curve cache")
		}
	}

	latest, rates, err := history.Latest()
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d observations (%s to %s)\n",
		history.Len(),
		history.Dates[0].Format("2006-01-02"),
		latest.Format("2006-01-02"))
	fmt.Printf("Latest 10Y spot rate: %.4f%%\n", rates[curve.MaturityIndex["SR_10Y"]])
	if deps.repo != nil {
		fmt.Println("Observations archived to database")
	}

	return nil
}

// resolveRange parses optional date flags with a default trailing window.
func resolveRange(fromStr, toStr string, defaultFromDays int) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to date: %w", err)
		}
	} else {
		to = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from date: %w", err)
		}
	} else {
		from = to.AddDate(0, 0, defaultFromDays)
	}

	if !from.Before(to) {
		return from, to, fmt.Errorf("--from must be before --to")
	}

	return from, to, nil
}
