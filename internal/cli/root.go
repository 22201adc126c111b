package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanskar-502/Bajaj-Cloud/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bajaj-cloud",
	Short: "Policy document question answering service",
	Long: `bajaj-cloud ingests insurance, legal and HR documents into a vector index
and answers natural-language questions with cited clauses.

Example usage:
  bajaj-cloud serve                               # Run the HTTP API
  bajaj-cloud ingest "policies/**/*.pdf"          # Index local documents
  bajaj-cloud ask -q "What is the grace period?"  # Ask against the index`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
				return fmt.Errorf("set CONFIG_FILE: %w", err)
			}
		}
		return nil
	},
}

// Execute runs the root command; SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config overlay (default $CONFIG_FILE)")
}

func buildApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}
