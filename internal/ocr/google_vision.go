package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"faturas/pkg/models"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

// GoogleVisionService implements Service using Cloud Vision document
// text detection. Vision has no form or table parsing, so the result
// carries raw text only; the normalization engine still runs, reading
// whatever it can from the text via its fallback paths. Used when no
// Document AI processor is configured.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates a new OCR service with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionService(ctx context.Context) (Service, error) {
	const op = "NewGoogleVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) Service {
	return &GoogleVisionService{client: client}
}

// ProcessPDF extracts the raw text of a PDF document.
func (g *GoogleVisionService) ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error) {
	const op = "ProcessPDF"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}

	if len(pdfBytes) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	result, err := g.processVisionResponse(fileResp)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	return result, nil
}

// processVisionResponse aggregates per-page text and confidence into a
// raw-text-only Result.
func (g *GoogleVisionService) processVisionResponse(fileResp *visionpb.AnnotateFileResponse) (*Result, error) {
	if len(fileResp.Responses) == 0 {
		return nil, ErrEmptyDocument
	}

	var allText strings.Builder
	var confidenceSum float64
	var confidenceCount int
	pageCount := len(fileResp.Responses)

	if pageCount > MaxPagesSync {
		return nil, WrapOCRError("processVisionResponse", ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		if page.FullTextAnnotation == nil {
			continue
		}

		if pageIdx > 0 {
			allText.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", pageIdx+1))
		}
		allText.WriteString(page.FullTextAnnotation.Text)

		for _, textAnnotation := range page.TextAnnotations {
			if textAnnotation.Confidence > 0 {
				confidenceSum += float64(textAnnotation.Confidence)
				confidenceCount++
			}
		}
	}

	extractedText := allText.String()
	if strings.TrimSpace(extractedText) == "" {
		return nil, ErrEmptyDocument
	}

	var avgConfidence float64
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float64(confidenceCount) * 100
	}

	return &Result{
		Document: models.OcrDocument{
			SummaryFields: []models.SummaryField{},
			LineItems:     []map[string]string{},
			Tables:        []models.Table{},
			RawText:       extractedText,
		},
		RawText:    extractedText,
		PageCount:  pageCount,
		Confidence: avgConfidence,
	}, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
