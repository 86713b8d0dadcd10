package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "oerbservatory",
		Short: "Aggregate, normalize and index open educational resources",
		Long: `OERbservatory collects open educational resources from DALIA, the Galaxy
Training Network, OERhub, OERSI and TeSS, normalizes them into one record
model and writes line-delimited JSON, Parquet, similarity and full-text
indexes for each source and for the merged corpus.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(ingestCommands()...)

	return cmd
}
