// Package commands implements the yieldstress CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yieldstress",
	Short: "Euro-area yield curve PCA stress analysis",
	Long: `yieldstress pulls euro-area government bond yield curves from the ECB
Data Portal, decomposes their history with PCA, and derives stressed
curve scenarios from rolling quantiles of component score changes.

Usage:
  go run ./cmd/yieldstress [command]

Examples:
  go run ./cmd/yieldstress api
  go run ./cmd/yieldstress fetch --from 2023-01-01
  go run ./cmd/yieldstress analyze --from 2022-01-01 --out scenarios.csv
  go run ./cmd/yieldstress scheduler start`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
