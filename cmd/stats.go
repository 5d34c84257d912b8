package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"faturas/internal/config"
	"faturas/internal/logger"
	"faturas/internal/stats"
	"faturas/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate stored invoices into chart data",
	Long: `Load every normalized invoice from the output directory and print
the same aggregation the dashboard endpoint serves: per-month labels,
consumption, totals and tax series, plus summary statistics.`,
	Example: `  # Print chart data for all stored invoices
  faturas stats

  # Save to a file
  faturas stats -o dados.json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runStats(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stats")

	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	invoices, err := st.ListNormalized()
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}

	data := stats.Aggregate(invoices)

	log.Info().
		Int("invoices", len(invoices)).
		Int("charted", data.Stats.TotalFaturas).
		Msg("Aggregation completed")

	return writeJSONOutput(data, outputPath, log)
}
