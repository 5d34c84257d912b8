package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"faturas/internal/config"
	"faturas/internal/logger"
	"faturas/internal/normalizer"
	"faturas/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process [pdf-file]",
	Short: "Run the full pipeline: OCR, normalize and persist one invoice",
	Long: `Process an invoice PDF end to end the same way the upload endpoint
does: copy it into the upload directory, run cloud OCR, normalize the
output and persist both the flattened OCR JSON and the normalized
record in the output directory.`,
	Example: `  # Process one fatura into uploads/ and normalized_output/
  faturas process fatura_edp.pdf

  # Custom directories
  UPLOAD_DIR=/data/uploads OUTPUT_DIR=/data/out faturas process fatura_edp.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	pdfPath := args[0]

	if _, err := validatePDFFile(pdfPath, log); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return err
	}

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer pdfFile.Close()

	arquivoID := store.NewArquivoID(pdfPath, time.Now())
	if _, err := st.SaveUpload(arquivoID, pdfFile); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	if _, err := pdfFile.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind PDF file: %w", err)
	}

	result, err := ocrService.ProcessPDF(ctx, pdfFile)
	if err != nil {
		return handleOCRError(err, log)
	}

	ocrFile, err := st.SaveOCR(arquivoID, result)
	if err != nil {
		return fmt.Errorf("failed to save OCR output: %w", err)
	}

	normalized := normalizer.New().Normalize(normalizer.Input{
		ArquivoID:   arquivoID,
		ArquivoNome: store.SanitizeFilename(pdfPath),
		Document:    result.Document,
		RawText:     result.RawText,
	})

	normalizedFile, err := st.SaveNormalized(arquivoID, normalized)
	if err != nil {
		return fmt.Errorf("failed to save normalized output: %w", err)
	}

	log.Info().
		Str("arquivo_id", arquivoID).
		Str("ocr_json", ocrFile).
		Str("normalized_json", normalizedFile).
		Str("confidence", normalized.ConfidenceOverall).
		Int("warnings", len(normalized.Warnings)).
		Msg("Invoice processed")

	fmt.Printf("Processed %s\n", arquivoID)
	fmt.Printf("  OCR output:        %s\n", ocrFile)
	fmt.Printf("  Normalized output: %s\n", normalizedFile)
	fmt.Printf("  Confidence:        %s\n", normalized.ConfidenceOverall)
	for _, w := range normalized.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	return nil
}
