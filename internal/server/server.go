// Package server exposes the invoice pipeline over HTTP: PDF upload
// with OCR and normalization, result download, data reset and the
// chart aggregation endpoint consumed by the dashboard.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"faturas/internal/logger"
	"faturas/internal/normalizer"
	"faturas/internal/ocr"
	"faturas/internal/stats"
	"faturas/internal/store"
)

// MaxUploadBytes limits upload request bodies (16MB).
const MaxUploadBytes = 16 * 1024 * 1024

// Server wires the OCR service, normalization engine and store behind
// the HTTP API.
type Server struct {
	ocr        ocr.Service
	normalizer *normalizer.Normalizer
	store      *store.Store
	log        zerolog.Logger
	now        func() time.Time
}

// New builds a Server over the given collaborators.
func New(ocrService ocr.Service, n *normalizer.Normalizer, st *store.Store) *Server {
	return &Server{
		ocr:        ocrService,
		normalizer: n,
		store:      st,
		log:        logger.WithComponent("server"),
		now:        time.Now,
	}
}

// Handler returns the routed HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /download/{filename}", s.handleDownload)
	mux.HandleFunc("POST /clear-data", s.handleClearData)
	mux.HandleFunc("GET /api/dados-graficos", s.handleDadosGraficos)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type uploadResponse struct {
	Success        bool            `json:"success"`
	ArquivoID      string          `json:"arquivo_id"`
	OcrData        *ocr.Result     `json:"ocr_data"`
	NormalizedData json.RawMessage `json:"normalized_data"`
	Files          uploadFiles     `json:"files"`
}

type uploadFiles struct {
	Uploaded       string `json:"uploaded"`
	OCRJSON        string `json:"ocr_json"`
	NormalizedJSON string `json:"normalized_json"`
}

// handleUpload runs the full pipeline for one PDF: save, OCR,
// normalize, persist both artifacts, and return everything to the
// caller.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	filename := store.SanitizeFilename(header.Filename)
	arquivoID := store.NewArquivoID(header.Filename, s.now())

	path, err := s.store.SaveUpload(arquivoID, file)
	if err != nil {
		s.log.Error().Err(err).Str("arquivo_id", arquivoID).Msg("saving upload")
		s.writeError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	pdf, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	defer pdf.Close()

	ocrResult, err := s.ocr.ProcessPDF(r.Context(), pdf)
	if err != nil {
		s.log.Error().Err(err).Str("arquivo_id", arquivoID).Msg("OCR failed")
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing invoice: %v", err))
		return
	}

	ocrFile, err := s.store.SaveOCR(arquivoID, ocrResult)
	if err != nil {
		s.log.Error().Err(err).Str("arquivo_id", arquivoID).Msg("saving OCR output")
		s.writeError(w, http.StatusInternalServerError, "Failed to save OCR output")
		return
	}

	normalized := s.normalizer.Normalize(normalizer.Input{
		ArquivoID:   arquivoID,
		ArquivoNome: filename,
		Document:    ocrResult.Document,
		RawText:     ocrResult.RawText,
	})

	normalizedFile, err := s.store.SaveNormalized(arquivoID, normalized)
	if err != nil {
		s.log.Error().Err(err).Str("arquivo_id", arquivoID).Msg("saving normalized output")
		s.writeError(w, http.StatusInternalServerError, "Failed to save normalized output")
		return
	}

	normalizedJSON, err := json.Marshal(normalized)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to encode result")
		return
	}

	s.log.Info().
		Str("arquivo_id", arquivoID).
		Str("confidence", normalized.ConfidenceOverall).
		Msg("invoice processed")

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		ArquivoID:      arquivoID,
		OcrData:        ocrResult,
		NormalizedData: normalizedJSON,
		Files: uploadFiles{
			Uploaded:       arquivoID,
			OCRJSON:        ocrFile,
			NormalizedJSON: normalizedFile,
		},
	})
}

// handleDownload serves a stored JSON artifact as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	path, err := s.store.OutputPath(filename)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "File not found")
		case errors.Is(err, store.ErrInvalidFilename):
			s.writeError(w, http.StatusBadRequest, "Invalid filename")
		default:
			s.writeError(w, http.StatusInternalServerError, "Failed to resolve file")
		}
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

// handleClearData deletes all uploads and outputs.
func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	uploads, outputs, err := s.store.Clear()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Erro ao limpar dados: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Dados limpos com sucesso! %d uploads e %d arquivos de saída removidos.", uploads, outputs),
		"deleted_files": map[string]int{
			"uploads": uploads,
			"output":  outputs,
		},
	})
}

// handleDadosGraficos aggregates the stored invoices into chart data.
func (s *Server) handleDadosGraficos(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.store.ListNormalized()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load invoices")
		return
	}
	s.writeJSON(w, http.StatusOK, stats.Aggregate(invoices))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
