// Package store persists uploads and extraction results on the local
// filesystem.
//
// Layout:
//   - uploadDir/<arquivo_id>             the uploaded PDF
//   - outputDir/<id>_ocr.json            the flattened OCR output
//   - outputDir/<id>_normalized.json     the normalized invoice
//
// The arquivo_id is the upload timestamp plus the sanitized original
// filename (e.g. "20241105_143000_fatura_edp.pdf"), which keeps
// repeated uploads of the same file distinguishable and sorts
// chronologically.
package store

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"faturas/internal/logger"
	"faturas/pkg/models"
)

// Store manages the upload and output directories.
type Store struct {
	uploadDir string
	outputDir string
	log       zerolog.Logger
}

// New creates the directories if needed and returns the store.
func New(uploadDir, outputDir string) (*Store, error) {
	const op = "New"
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, WrapStoreError(op, err, "creating upload directory")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, WrapStoreError(op, err, "creating output directory")
	}
	return &Store{
		uploadDir: uploadDir,
		outputDir: outputDir,
		log:       logger.WithComponent("store"),
	}, nil
}

// NewArquivoID builds the storage identifier for an upload.
func NewArquivoID(filename string, now time.Time) string {
	return now.Format("20060102_150405") + "_" + SanitizeFilename(filename)
}

// SanitizeFilename strips path components and characters unsafe for a
// filename, keeping letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SaveUpload writes the uploaded PDF under arquivoID.
func (s *Store) SaveUpload(arquivoID string, r io.Reader) (string, error) {
	const op = "SaveUpload"
	path := filepath.Join(s.uploadDir, arquivoID)
	f, err := os.Create(path)
	if err != nil {
		return "", WrapStoreError(op, err, arquivoID)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", WrapStoreError(op, err, arquivoID)
	}
	s.log.Debug().Str("arquivo_id", arquivoID).Msg("upload saved")
	return path, nil
}

// OCRFilename is the output name for the flattened OCR result.
func OCRFilename(arquivoID string) string {
	return strings.TrimSuffix(arquivoID, ".pdf") + "_ocr.json"
}

// NormalizedFilename is the output name for the normalized invoice.
func NormalizedFilename(arquivoID string) string {
	return strings.TrimSuffix(arquivoID, ".pdf") + "_normalized.json"
}

// SaveOCR persists the flattened OCR output for arquivoID.
func (s *Store) SaveOCR(arquivoID string, result any) (string, error) {
	return s.saveJSON("SaveOCR", OCRFilename(arquivoID), result)
}

// SaveNormalized persists the normalized invoice for arquivoID.
func (s *Store) SaveNormalized(arquivoID string, invoice *models.NormalizedInvoice) (string, error) {
	return s.saveJSON("SaveNormalized", NormalizedFilename(arquivoID), invoice)
}

func (s *Store) saveJSON(op, filename string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", WrapStoreError(op, err, filename)
	}
	path := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", WrapStoreError(op, err, filename)
	}
	return filename, nil
}

// ListNormalized loads every saved normalized invoice, sorted by
// filename (and so by upload time). Unreadable files are skipped.
func (s *Store) ListNormalized() ([]models.NormalizedInvoice, error) {
	const op = "ListNormalized"
	matches, err := filepath.Glob(filepath.Join(s.outputDir, "*_normalized.json"))
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	sort.Strings(matches)

	invoices := make([]models.NormalizedInvoice, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable normalized file")
			continue
		}
		var inv models.NormalizedInvoice
		if err := json.Unmarshal(data, &inv); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping malformed normalized file")
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// OutputPath resolves a download request against the output
// directory. Only plain JSON filenames are served; anything that
// resolves outside the directory is rejected.
func (s *Store) OutputPath(filename string) (string, error) {
	const op = "OutputPath"
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".json") {
		return "", WrapStoreError(op, ErrInvalidFilename, filename)
	}
	path := filepath.Join(s.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", WrapStoreError(op, ErrNotFound, filename)
		}
		return "", WrapStoreError(op, err, filename)
	}
	return path, nil
}

// Clear removes every file in both directories and reports how many
// were deleted from each.
func (s *Store) Clear() (uploads, outputs int, err error) {
	const op = "Clear"
	uploads, err = clearDir(s.uploadDir)
	if err != nil {
		return uploads, 0, WrapStoreError(op, err, "clearing uploads")
	}
	outputs, err = clearDir(s.outputDir)
	if err != nil {
		return uploads, outputs, WrapStoreError(op, err, "clearing outputs")
	}
	s.log.Info().Int("uploads", uploads).Int("outputs", outputs).Msg("data cleared")
	return uploads, outputs, nil
}

func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
