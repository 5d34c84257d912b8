// Package ocr extracts text and structure from electricity invoice
// PDFs using Google Cloud Document AI, with a Google Cloud Vision
// fallback for raw text only.
//
// The Document AI adapter flattens the provider response into the
// neutral document shape the normalization engine consumes: labeled
// summary fields with label/value confidences, tables as rows of cell
// text, and line items as key/value maps. Nothing downstream of this
// package depends on Google Cloud types.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Document AI Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Only application/pdf input is accepted here
//
// Confidence scores are reported on a 0-100 scale to match the rest
// of the pipeline; the Google APIs report 0.0-1.0 internally.
package ocr

import (
	"context"
	"io"
	"time"

	"faturas/pkg/models"
)

// Service defines the interface for OCR document extraction services.
type Service interface {
	// ProcessPDF extracts the flattened document from a PDF.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error)
}

// Result contains the flattened document plus processing metadata.
type Result struct {
	// Document is the structured extraction consumed by the
	// normalization engine.
	Document models.OcrDocument `json:"document"`

	// RawText is the full concatenated text of all pages.
	RawText string `json:"raw_text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average value confidence across all detected
	// fields (0-100).
	Confidence float64 `json:"confidence"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
