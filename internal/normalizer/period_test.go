package normalizer

import (
	"testing"

	"faturas/pkg/models"
)

func TestExtractPeriodoFromLabels(t *testing.T) {
	doc := &models.OcrDocument{
		SummaryFields: []models.SummaryField{
			{Label: "Leitura Anterior", Value: "01/10/2024", ValueConfidence: 95},
			{Label: "Leitura Atual", Value: "31/10/2024", ValueConfidence: 95},
		},
	}
	e := newExtraction(doc)

	inicio, fim := e.extractPeriodo()
	if inicio == nil || *inicio != "2024-10-01" {
		t.Fatalf("inicio = %v, want 2024-10-01", inicio)
	}
	if fim == nil || *fim != "2024-10-31" {
		t.Fatalf("fim = %v, want 2024-10-31", fim)
	}
	if len(e.warnings) != 0 {
		t.Errorf("unexpected warnings: %v", e.warnings)
	}
}

func TestExtractPeriodoCombinedInline(t *testing.T) {
	doc := &models.OcrDocument{
		SummaryFields: []models.SummaryField{
			{Label: "Datas de Leitura", Value: "Anterior: 01/11/2024 Atual: 01/12/2024", ValueConfidence: 90},
		},
	}
	e := newExtraction(doc)

	inicio, fim := e.extractPeriodo()
	if inicio == nil || *inicio != "2024-11-01" {
		t.Fatalf("inicio = %v, want 2024-11-01", inicio)
	}
	if fim == nil || *fim != "2024-12-01" {
		t.Fatalf("fim = %v, want 2024-12-01", fim)
	}
}

func TestExtractPeriodoCombinedTwoLineWithReferenceYear(t *testing.T) {
	doc := &models.OcrDocument{
		SummaryFields: []models.SummaryField{
			{Label: "Referente a", Value: "NOV/2024", ValueConfidence: 90},
			{Label: "Datas de Leitura", Value: "ANTERIOR  ATUAL\n01/11  01/12", ValueConfidence: 90},
		},
	}
	e := newExtraction(doc)

	inicio, fim := e.extractPeriodo()
	if inicio == nil || *inicio != "2024-11-01" {
		t.Fatalf("inicio = %v, want 2024-11-01", inicio)
	}
	if fim == nil || *fim != "2024-12-01" {
		t.Fatalf("fim = %v, want 2024-12-01", fim)
	}
}

func TestExtractPeriodoFromTables(t *testing.T) {
	doc := &models.OcrDocument{
		Tables: []models.Table{
			{
				{"Leitura Anterior", "01/10/2024"},
				{"Leitura Atual", "31/10/2024"},
			},
		},
	}
	e := newExtraction(doc)

	inicio, fim := e.extractPeriodo()
	if inicio == nil || *inicio != "2024-10-01" {
		t.Fatalf("inicio = %v", inicio)
	}
	if fim == nil || *fim != "2024-10-31" {
		t.Fatalf("fim = %v", fim)
	}

	campos := map[string]bool{}
	for _, sn := range e.snippets {
		campos[sn.Campo] = true
	}
	if !campos["data_inicio_tabela"] || !campos["data_fim_tabela"] {
		t.Errorf("expected table snippets, got %+v", e.snippets)
	}
}

func TestExtractPeriodoMissingWarns(t *testing.T) {
	e := newExtraction(&models.OcrDocument{})

	inicio, fim := e.extractPeriodo()
	if inicio != nil || fim != nil {
		t.Fatal("expected nil period")
	}
	if len(e.warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", e.warnings)
	}
}

func TestBillingDays(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name   string
		inicio *string
		fim    *string
		want   int
		isNil  bool
	}{
		{"inclusive count", str("2024-10-01"), str("2024-10-31"), 31, false},
		{"single day", str("2024-10-01"), str("2024-10-01"), 1, false},
		{"across months", str("2024-11-05"), str("2024-12-05"), 31, false},
		{"missing start", nil, str("2024-10-31"), 0, true},
		{"missing end", str("2024-10-01"), nil, 0, true},
		{"inverted period", str("2024-10-31"), str("2024-10-01"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billingDays(tt.inicio, tt.fim)
			if tt.isNil {
				if got != nil {
					t.Fatalf("billingDays = %d, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("billingDays = nil, want %d", tt.want)
			}
			if *got != tt.want {
				t.Errorf("billingDays = %d, want %d", *got, tt.want)
			}
		})
	}
}
