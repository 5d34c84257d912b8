package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"faturas/internal/normalizer"
	"faturas/internal/ocr"
	"faturas/internal/store"
	"faturas/pkg/models"
)

// stubOCR returns a canned result without touching Google Cloud.
type stubOCR struct {
	result *ocr.Result
	err    error
}

func (s *stubOCR) ProcessPDF(ctx context.Context, pdfData io.Reader) (*ocr.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := io.Copy(io.Discard, pdfData); err != nil {
		return nil, err
	}
	return s.result, nil
}

func sampleOCRResult() *ocr.Result {
	return &ocr.Result{
		Document: models.OcrDocument{
			SummaryFields: []models.SummaryField{
				{Label: "Matrícula", Value: "123456", ValueConfidence: 98},
				{Label: "Nota Fiscal", Value: "NF-2024-001", ValueConfidence: 96},
				{Label: "Total a Pagar", Value: "R$ 250,75", ValueConfidence: 97},
				{Label: "Vencimento", Value: "05/11/2024", ValueConfidence: 95},
			},
			Tables: []models.Table{
				{
					{"Descrição", "Unid.", "Consumo (kWh)"},
					{"Consumo Ativo", "kWh", "350"},
				},
			},
		},
		RawText:   "FATURA DE ENERGIA ELÉTRICA",
		PageCount: 1,
	}
}

func newTestServer(t *testing.T, svc ocr.Service) (*Server, *store.Store) {
	t.Helper()
	base := t.TempDir()
	st, err := store.New(filepath.Join(base, "uploads"), filepath.Join(base, "output"))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(svc, normalizer.New(), st)
	srv.now = func() time.Time {
		return time.Date(2024, 11, 5, 14, 30, 0, 0, time.UTC)
	}
	return srv, st
}

func multipartPDF(t *testing.T, fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadPipeline(t *testing.T) {
	srv, st := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, contentType := multipartPDF(t, "file", "fatura edp.pdf", []byte("%PDF-1.4 test"))
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Error("success = false")
	}
	if out.ArquivoID != "20241105_143000_fatura_edp.pdf" {
		t.Errorf("arquivo_id = %q", out.ArquivoID)
	}
	if out.Files.OCRJSON != "20241105_143000_fatura_edp_ocr.json" {
		t.Errorf("ocr_json = %q", out.Files.OCRJSON)
	}
	if out.Files.NormalizedJSON != "20241105_143000_fatura_edp_normalized.json" {
		t.Errorf("normalized_json = %q", out.Files.NormalizedJSON)
	}

	var normalized models.NormalizedInvoice
	if err := json.Unmarshal(out.NormalizedData, &normalized); err != nil {
		t.Fatal(err)
	}
	if normalized.ValorTotal == nil || *normalized.ValorTotal != 250.75 {
		t.Errorf("valor_total = %v", normalized.ValorTotal)
	}
	if normalized.ConsumoKWh == nil || *normalized.ConsumoKWh != 350 {
		t.Errorf("consumo_kwh = %v", normalized.ConsumoKWh)
	}

	// Both artifacts survive on disk for later download and charting.
	invoices, err := st.ListNormalized()
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 1 || invoices[0].ArquivoID != out.ArquivoID {
		t.Errorf("stored invoices = %+v", invoices)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	srv, _ := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, contentType := multipartPDF(t, "file", "planilha.xlsx", []byte("not a pdf"))
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "Only PDF files are allowed") {
		t.Errorf("body = %s", raw)
	}
}

func TestUploadMissingFile(t *testing.T) {
	srv, _ := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, contentType := multipartPDF(t, "documento", "fatura.pdf", []byte("%PDF-1.4"))
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadOCRFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubOCR{err: ocr.ErrOCRFailed})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, contentType := multipartPDF(t, "file", "fatura.pdf", []byte("%PDF-1.4"))
	resp, err := http.Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestDownload(t *testing.T) {
	srv, st := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	name, err := st.SaveNormalized("20241105_143000_fatura.pdf", &models.NormalizedInvoice{ArquivoID: "x"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/download/" + name)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, name) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	missing, err := http.Get(ts.URL + "/download/missing_normalized.json")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", missing.StatusCode)
	}

	bad, err := http.Get(ts.URL + "/download/fatura.pdf")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("non-json status = %d, want 400", bad.StatusCode)
	}
}

func TestClearData(t *testing.T) {
	srv, st := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	if _, err := st.SaveUpload("20241105_143000_a.pdf", bytes.NewReader([]byte("%PDF-1.4"))); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SaveNormalized("20241105_143000_a.pdf", &models.NormalizedInvoice{}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/clear-data", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Success      bool           `json:"success"`
		Message      string         `json:"message"`
		DeletedFiles map[string]int `json:"deleted_files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Error("success = false")
	}
	if out.DeletedFiles["uploads"] != 1 || out.DeletedFiles["output"] != 1 {
		t.Errorf("deleted_files = %v", out.DeletedFiles)
	}
	if !strings.Contains(out.Message, "Dados limpos com sucesso") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestDadosGraficos(t *testing.T) {
	srv, st := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	valor := 250.75
	consumo := 350.0
	dataFim := "2024-10-31"
	if _, err := st.SaveNormalized("20241105_143000_a.pdf", &models.NormalizedInvoice{
		ArquivoID:  "a",
		ValorTotal: &valor,
		ConsumoKWh: &consumo,
		DataFim:    &dataFim,
	}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/dados-graficos")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Success bool     `json:"success"`
		Labels  []string `json:"labels"`
		Stats   struct {
			TotalFaturas int `json:"total_faturas"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.Stats.TotalFaturas != 1 {
		t.Errorf("payload = %+v", out)
	}
	if len(out.Labels) != 1 || out.Labels[0] != "Oct/2024" {
		t.Errorf("labels = %v", out.Labels)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &stubOCR{result: sampleOCRResult()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/upload", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
