// Package cmd provides the CLI commands for medquote.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medquote/internal/logging"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "medquote",
	Short: "Medical transport quotation tools",
	Long: `medquote prices medical escort flights, repatriation of remains and
event medical support from a rate table.

Examples:
  medquote quote "ICU patient from Cho Ray Hospital to Seoul National University Hospital"
  medquote rates show AIR_TRANSPORT
  medquote rates validate ./rates.yaml
  medquote rates import --confirm ./rates.yaml`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(ratesCmd)
}

func initLogging() {
	cfg := logging.DefaultConfig()
	cfg.Output = "stderr"
	cfg.Level = "warn"
	if verbose {
		cfg.Level = "debug"
	}
	l, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		return
	}
	logger = l
}
