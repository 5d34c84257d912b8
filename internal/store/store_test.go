package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"faturas/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	s, err := New(filepath.Join(base, "uploads"), filepath.Join(base, "output"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewArquivoID(t *testing.T) {
	ts := time.Date(2024, 11, 5, 14, 30, 0, 0, time.UTC)

	got := NewArquivoID("fatura edp.pdf", ts)
	if got != "20241105_143000_fatura_edp.pdf" {
		t.Errorf("NewArquivoID = %q", got)
	}

	// Path components never survive into the id.
	got = NewArquivoID("../../etc/passwd", ts)
	if strings.Contains(got, "/") || strings.Contains(got, "..") {
		t.Errorf("id contains path components: %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"fatura.pdf", "fatura.pdf"},
		{"fatura edp nov.pdf", "fatura_edp_nov.pdf"},
		{"conta#luz$.pdf", "conta_luz_.pdf"},
		{"dir/fatura.pdf", "fatura.pdf"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.input); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSaveUploadAndClear(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveUpload("20241105_143000_fatura.pdf", bytes.NewReader([]byte("%PDF-1.4"))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveNormalized("20241105_143000_fatura.pdf", &models.NormalizedInvoice{ArquivoID: "x"}); err != nil {
		t.Fatal(err)
	}

	uploads, outputs, err := s.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if uploads != 1 || outputs != 1 {
		t.Errorf("Clear = (%d, %d), want (1, 1)", uploads, outputs)
	}

	// A second clear finds nothing.
	uploads, outputs, err = s.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if uploads != 0 || outputs != 0 {
		t.Errorf("second Clear = (%d, %d), want (0, 0)", uploads, outputs)
	}
}

func TestOutputFilenames(t *testing.T) {
	if got := OCRFilename("20241105_143000_fatura.pdf"); got != "20241105_143000_fatura_ocr.json" {
		t.Errorf("OCRFilename = %q", got)
	}
	if got := NormalizedFilename("20241105_143000_fatura.pdf"); got != "20241105_143000_fatura_normalized.json" {
		t.Errorf("NormalizedFilename = %q", got)
	}
}

func TestListNormalized(t *testing.T) {
	s := newTestStore(t)

	valor := 250.75
	if _, err := s.SaveNormalized("20241105_143000_b.pdf", &models.NormalizedInvoice{ArquivoID: "b", ValorTotal: &valor}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveNormalized("20241001_090000_a.pdf", &models.NormalizedInvoice{ArquivoID: "a"}); err != nil {
		t.Fatal(err)
	}
	// OCR outputs and junk are not picked up.
	if _, err := s.SaveOCR("20241105_143000_b.pdf", map[string]string{"raw_text": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.outputDir, "broken_normalized.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	invoices, err := s.ListNormalized()
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 2 {
		t.Fatalf("ListNormalized = %d invoices, want 2", len(invoices))
	}
	// Sorted by filename, so by upload timestamp.
	if invoices[0].ArquivoID != "a" || invoices[1].ArquivoID != "b" {
		t.Errorf("order = %q, %q", invoices[0].ArquivoID, invoices[1].ArquivoID)
	}
	if invoices[1].ValorTotal == nil || *invoices[1].ValorTotal != 250.75 {
		t.Errorf("valor_total round trip = %v", invoices[1].ValorTotal)
	}
}

func TestOutputPath(t *testing.T) {
	s := newTestStore(t)

	name, err := s.SaveNormalized("20241105_143000_fatura.pdf", &models.NormalizedInvoice{})
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.OutputPath(name)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != name {
		t.Errorf("OutputPath = %q", path)
	}

	if _, err := s.OutputPath("missing_normalized.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
	for _, bad := range []string{"../secret.json", "fatura.pdf", ""} {
		if _, err := s.OutputPath(bad); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("OutputPath(%q) error = %v, want ErrInvalidFilename", bad, err)
		}
	}
}
