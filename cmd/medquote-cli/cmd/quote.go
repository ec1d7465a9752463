// Package cmd - quote command
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medquote/internal/app"
	"medquote/internal/config"
	"medquote/internal/service"
	"medquote/internal/types"
)

var (
	quoteSession       string
	quoteDays          int
	quoteDiagnosis     string
	quoteConsciousness string
	quoteMobility      string
	quoteTimeout       time.Duration
)

var quoteCmd = &cobra.Command{
	Use:   "quote <message>",
	Short: "Send one message through the quotation pipeline",
	Long: `Run a single chat turn through the same pipeline as the API server and
print the reply. Configuration is read from the environment (OPENAI_API_KEY or
GEMINI_API_KEY, GOOGLE_MAPS_API_KEY, MEDQUOTE_*).

Examples:
  medquote quote "How much to fly a stroke patient from Hanoi to Busan?"
  medquote quote --diagnosis "ARDS" --days 4 "Compare civil and air ambulance from Manila to Seoul"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteSession, "session", "", "continue an existing session id")
	quoteCmd.Flags().IntVar(&quoteDays, "days", 0, "engagement length in days (default from MEDQUOTE_DEFAULT_DAYS)")
	quoteCmd.Flags().StringVar(&quoteDiagnosis, "diagnosis", "", "patient diagnosis")
	quoteCmd.Flags().StringVar(&quoteConsciousness, "consciousness", "", "patient level of consciousness")
	quoteCmd.Flags().StringVar(&quoteMobility, "mobility", "", "patient mobility")
	quoteCmd.Flags().DurationVar(&quoteTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), quoteTimeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Planner.Handle(ctx, service.Request{
		SessionID: quoteSession,
		Message:   strings.Join(args, " "),
		Days:      quoteDays,
		Patient: types.PatientProfile{
			Diagnosis:     types.StringPtr(quoteDiagnosis),
			Consciousness: types.StringPtr(quoteConsciousness),
			Mobility:      types.StringPtr(quoteMobility),
		},
	})
	fmt.Fprintln(cmd.OutOrStdout(), resp.Reply)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nsession: %s\n", resp.SessionID)
	return err
}
