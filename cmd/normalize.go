package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"faturas/internal/logger"
	"faturas/internal/normalizer"
	"faturas/internal/ocr"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [ocr-json-file]",
	Short: "Normalize a saved OCR output into a uniform invoice record",
	Long: `Read a flattened OCR output file (as produced by the ocr command or
the upload endpoint) and run the normalization engine over it.

The result is a uniform invoice record: consumer unit, invoice
identifier, billing period, consumption, cost components and taxes,
plus warnings, audit snippets and an overall confidence rating.
Normalization is deterministic; running it twice over the same input
produces identical output.`,
	Example: `  # Normalize a saved OCR output to stdout
  faturas normalize fatura_ocr.json

  # Save the normalized record
  faturas normalize fatura_ocr.json -o fatura_normalized.json`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	normalizeCmd.Flags().String("arquivo-id", "", "Identifier to record on the result (default: input filename)")
	normalizeCmd.Flags().String("arquivo-nome", "", "Original filename to record on the result")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("normalize")

	outputPath, _ := cmd.Flags().GetString("output")
	arquivoID, _ := cmd.Flags().GetString("arquivo-id")
	arquivoNome, _ := cmd.Flags().GetString("arquivo-nome")

	inputPath := args[0]

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Failed to read OCR output")
		return fmt.Errorf("failed to read OCR output: %w", err)
	}

	var result ocr.Result
	if err := json.Unmarshal(data, &result); err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Failed to parse OCR output")
		return fmt.Errorf("failed to parse OCR output: %w", err)
	}

	if arquivoID == "" {
		arquivoID = strings.TrimSuffix(filepath.Base(inputPath), "_ocr.json")
	}
	if arquivoNome == "" {
		arquivoNome = arquivoID
	}

	normalized := normalizer.New().Normalize(normalizer.Input{
		ArquivoID:   arquivoID,
		ArquivoNome: arquivoNome,
		Document:    result.Document,
		RawText:     result.RawText,
	})

	log.Info().
		Str("arquivo_id", arquivoID).
		Str("confidence", normalized.ConfidenceOverall).
		Int("warnings", len(normalized.Warnings)).
		Msg("Normalization completed")

	return writeJSONOutput(normalized, outputPath, log)
}
