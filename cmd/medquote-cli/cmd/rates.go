// Package cmd - rate table management
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"medquote/internal/infra"
	"medquote/internal/modules/plan"
	"medquote/internal/modules/pricing"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Inspect, validate and import rate tables",
}

var ratesShowCmd = &cobra.Command{
	Use:   "show [category]",
	Short: "Print a rate table as YAML",
	Long: `Print the built-in rate table, or the one given with --file, as YAML.
With a category argument only that category is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRatesShow,
}

var ratesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a rate table file without loading it anywhere",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesValidate,
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the rate table stored in Postgres",
	Long: `Validate a rate table file and replace the rate_items table with it in a
single transaction. The server picks the new table up on its next start.`,
	Args: cobra.ExactArgs(1),
	RunE: runRatesImport,
}

var (
	ratesFile    string
	ratesDSN     string
	ratesConfirm bool
	ratesTimeout time.Duration
)

func init() {
	ratesCmd.AddCommand(ratesShowCmd)
	ratesCmd.AddCommand(ratesValidateCmd)
	ratesCmd.AddCommand(ratesImportCmd)

	ratesShowCmd.Flags().StringVarP(&ratesFile, "file", "f", "", "rate table file (default: built-in table)")

	ratesImportCmd.Flags().StringVar(&ratesDSN, "dsn", os.Getenv("MEDQUOTE_DB_DSN"), "Postgres DSN")
	ratesImportCmd.Flags().BoolVar(&ratesConfirm, "confirm", false, "confirm replacing the stored rate table")
	ratesImportCmd.Flags().DurationVar(&ratesTimeout, "timeout", time.Minute, "database timeout")
}

func runRatesShow(cmd *cobra.Command, args []string) error {
	table, err := loadTable(ratesFile)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cat := plan.Category(args[0])
		if !cat.Valid() {
			return fmt.Errorf("%w %q (use one of %v)", pricing.ErrUnknownCategory, cat, plan.Categories)
		}
		table, err = pricing.NewRateTable(table.Currency(), map[plan.Category][]pricing.RateItem{cat: table.Items(cat)})
		if err != nil {
			return err
		}
	}
	return table.EncodeYAML(cmd.OutOrStdout())
}

func runRatesValidate(cmd *cobra.Command, args []string) error {
	table, err := pricing.LoadFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid (currency %s)\n", args[0], table.Currency())
	for _, cat := range table.Categories() {
		fmt.Fprintf(out, "  %-20s %d items: %v\n", cat, len(table.Items(cat)), table.ItemNames(cat))
	}
	return nil
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	table, err := pricing.LoadFile(args[0])
	if err != nil {
		return err
	}
	if ratesDSN == "" {
		return fmt.Errorf("no database configured: set MEDQUOTE_DB_DSN or pass --dsn")
	}
	if !ratesConfirm {
		return fmt.Errorf("refusing to replace the stored rate table without --confirm")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ratesTimeout)
	defer cancel()

	db, err := infra.NewDB(ctx, ratesDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pricing.NewStore(db).ReplaceTable(ctx, table); err != nil {
		return err
	}
	logger.Info("rate table imported")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ imported %s\n", args[0])
	return nil
}

func loadTable(path string) (*pricing.RateTable, error) {
	if path == "" {
		return pricing.Default()
	}
	return pricing.LoadFile(path)
}
