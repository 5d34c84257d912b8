package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"faturas/internal/config"
	"faturas/internal/logger"
	"faturas/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Extract structured data from an invoice PDF using cloud OCR",
	Long: `Process a PDF file and print the flattened OCR output as JSON.

When DOCUMENT_AI_PROCESSOR_ID is configured the Google Document AI
form parser is used, which yields labeled summary fields, tables and
line items. Without it the command falls back to Google Cloud Vision,
which extracts raw text only.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  DOCUMENT_AI_PROCESSOR_ID - Document AI processor (optional, enables form parsing)`,
	Example: `  # Extract structured data from a fatura to stdout
  faturas ocr fatura_edp.pdf

  # Save the flattened OCR output to a file
  faturas ocr fatura_edp.pdf -o fatura_ocr.json

  # Process with custom timeout
  faturas ocr fatura_grande.pdf --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return err
	}

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to open PDF file")
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	log.Info().
		Str("file", pdfPath).
		Int64("size", fileInfo.Size()).
		Msg("Processing PDF")

	result, err := ocrService.ProcessPDF(ctx, pdfFile)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("page_count", result.PageCount).
		Int("summary_fields", len(result.Document.SummaryFields)).
		Int("tables", len(result.Document.Tables)).
		Float64("confidence", result.Confidence).
		Msg("OCR processing completed successfully")

	return writeJSONOutput(result, outputPath, log)
}

// validatePDFFile checks if the file exists, is readable, and appears to be a PDF
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > ocr.MaxDocumentSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxDocumentSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxDocumentSizeBytes)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling OCR processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// createOCRService builds the configured OCR backend: Document AI when
// a processor is configured, Cloud Vision otherwise.
func createOCRService(ctx context.Context, log zerolog.Logger) (ocr.Service, error) {
	hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""

	if !hasCredentials {
		log.Error().Msg("Google Cloud credentials not configured")
		return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
			"3. Check that your .env file contains the credentials variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.DocumentAIProcessorID != "" {
		if err := cfg.ValidateCloud(); err != nil {
			return nil, err
		}
		service, err := ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Document AI service")
			return nil, fmt.Errorf("failed to create Document AI service: %w", err)
		}
		log.Debug().Msg("Document AI service created successfully")
		return service, nil
	}

	log.Warn().Msg("DOCUMENT_AI_PROCESSOR_ID not set, falling back to Cloud Vision raw text")
	service, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials validation failed")
			return nil, fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n"+
				"1. Credentials file exists and is readable\n"+
				"2. JSON format is valid\n"+
				"3. Service account has proper permissions\n\n"+
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Msg("Failed to create OCR service")
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	log.Debug().Msg("Vision OCR service created successfully")
	return service, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. The PDF may contain only images or be corrupted")
	case errors.Is(err, ocr.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Check DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_LOCATION")
	case errors.Is(err, ocr.ErrQuotaExceeded):
		return fmt.Errorf("Document AI API quota exceeded. Check your project quotas in the Google Cloud Console")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON\n"+
			"3. Ensure the service account has the Document AI API User role\n\n"+
			"Original error: %v", err)
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// writeJSONOutput marshals v and writes it to outputPath or stdout.
func writeJSONOutput(v any, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON output")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
