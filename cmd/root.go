package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faturas/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "faturas",
	Short: "Faturas CLI - OCR and normalization for Brazilian electricity invoices",
	Long: `Faturas CLI processes Brazilian electricity invoice PDFs: it runs
cloud OCR, normalizes the provider-specific output into a uniform
invoice record, and serves the upload/dashboard web API.

Invoices from different utilities share no layout, so normalization is
heuristic; every result carries warnings, audit snippets and an
overall confidence rating.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Faturas CLI executed")

		fmt.Println("Welcome to Faturas CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
