package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"faturas/internal/logger"
	"faturas/pkg/models"
)

const (
	// MaxDocumentSizeBytes is the maximum document size for processing (20MB)
	MaxDocumentSizeBytes = 20 * 1024 * 1024

	// DefaultProcessTimeout bounds a single Document AI call.
	DefaultProcessTimeout = 60 * time.Second
)

// DocumentAIConfig holds the processor coordinates for Document AI.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIService implements Service using Google Document AI form
// parsing.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates the service with credentials from the
// environment (GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS).
func NewDocumentAIService(ctx context.Context, config DocumentAIConfig) (Service, error) {
	const op = "NewDocumentAIService"

	if config.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "project ID is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "processor ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultProcessTimeout
	}

	var clientOptions []option.ClientOption

	// Regional processors need the matching regional endpoint.
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIServiceWithClient creates the service with an explicit client (for testing).
func NewDocumentAIServiceWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) Service {
	if config.Timeout == 0 {
		config.Timeout = DefaultProcessTimeout
	}
	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// ProcessPDF sends the PDF through the configured processor and
// flattens the response.
func (s *DocumentAIService) ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error) {
	const op = "ProcessPDF"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}

	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: s.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := s.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, s.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	result := FlattenDocument(resp.Document)
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	s.log.Info().
		Int("pages", result.PageCount).
		Int("summary_fields", len(result.Document.SummaryFields)).
		Int("tables", len(result.Document.Tables)).
		Int("line_items", len(result.Document.LineItems)).
		Float64("confidence", result.Confidence).
		Msg("Document AI extraction completed")

	return result, nil
}

// processorName constructs the full processor name for the Document AI API.
func (s *DocumentAIService) processorName() string {
	if s.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			s.config.ProjectID, s.config.Location, s.config.ProcessorID, s.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		s.config.ProjectID, s.config.Location, s.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to the package's sentinel errors.
func (s *DocumentAIService) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return WrapOCRError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOCRError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", s.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (s *DocumentAIService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// FlattenDocument converts a Document AI response into the neutral
// document shape: form fields become labeled summary fields, page
// tables become rows of cell text, and line_item entities become
// key/value maps. Confidences are scaled to 0-100.
func FlattenDocument(doc *documentaipb.Document) *Result {
	result := &Result{
		Document: models.OcrDocument{
			SummaryFields: []models.SummaryField{},
			LineItems:     []map[string]string{},
			Tables:        []models.Table{},
		},
		RawText:   doc.Text,
		PageCount: len(doc.Pages),
	}
	result.Document.RawText = doc.Text

	var confidenceSum float64
	var confidenceCount int

	for _, page := range doc.Pages {
		for _, ff := range page.FormFields {
			field := models.SummaryField{
				Label:           anchorText(doc, ff.FieldName),
				Value:           anchorText(doc, ff.FieldValue),
				LabelConfidence: layoutConfidence(ff.FieldName),
				ValueConfidence: layoutConfidence(ff.FieldValue),
			}
			result.Document.SummaryFields = append(result.Document.SummaryFields, field)
			if field.ValueConfidence > 0 {
				confidenceSum += field.ValueConfidence
				confidenceCount++
			}
		}

		for _, table := range page.Tables {
			var rows models.Table
			for _, row := range table.HeaderRows {
				rows = append(rows, tableRowCells(doc, row))
			}
			for _, row := range table.BodyRows {
				rows = append(rows, tableRowCells(doc, row))
			}
			if len(rows) > 0 {
				result.Document.Tables = append(result.Document.Tables, rows)
			}
		}
	}

	for _, entity := range doc.Entities {
		if entity.Type != "line_item" {
			continue
		}
		item := make(map[string]string, len(entity.Properties))
		for _, prop := range entity.Properties {
			item[prop.Type] = strings.TrimSpace(prop.MentionText)
		}
		if len(item) == 0 && entity.MentionText != "" {
			item["line_item"] = strings.TrimSpace(entity.MentionText)
		}
		result.Document.LineItems = append(result.Document.LineItems, item)
	}

	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float64(confidenceCount)
	}

	return result
}

func tableRowCells(doc *documentaipb.Document, row *documentaipb.Document_Page_Table_TableRow) []string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		cells = append(cells, anchorText(doc, cell.Layout))
	}
	return cells
}

// anchorText resolves a layout's text anchor against the document's
// full text. Anchors reference byte offsets into doc.Text.
func anchorText(doc *documentaipb.Document, layout *documentaipb.Document_Page_Layout) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 || end > len(doc.Text) || start > end {
			continue
		}
		b.WriteString(doc.Text[start:end])
	}
	return strings.TrimSpace(b.String())
}

func layoutConfidence(layout *documentaipb.Document_Page_Layout) float64 {
	if layout == nil {
		return 0
	}
	return float64(layout.Confidence) * 100
}
