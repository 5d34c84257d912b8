package normalizer

import (
	"testing"

	"faturas/pkg/models"
)

func TestClassifyConfidence(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }

	full := func() *models.NormalizedInvoice {
		return &models.NormalizedInvoice{
			UnidadeConsumidoraID: str("123456"),
			IdentificadorFatura:  str("NF-001"),
			ValorTotal:           num(250.75),
			DataVencimento:       str("2024-11-05"),
		}
	}

	indexWithConfidence := func(conf float64) *fieldIndex {
		return buildFieldIndex([]models.SummaryField{
			{Label: "A", Value: "1", ValueConfidence: conf},
		})
	}

	tests := []struct {
		name   string
		result *models.NormalizedInvoice
		index  *fieldIndex
		want   string
	}{
		{"all critical and high ocr", full(), indexWithConfidence(95), models.ConfidenceHigh},
		{"all critical at threshold", full(), indexWithConfidence(80), models.ConfidenceHigh},
		{"all critical but weak ocr", full(), indexWithConfidence(70), models.ConfidenceMedium},
		{"all critical and poor ocr", full(), indexWithConfidence(50), models.ConfidenceLow},
		{"no fields", &models.NormalizedInvoice{}, buildFieldIndex(nil), models.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyConfidence(tt.result, tt.index); got != tt.want {
				t.Errorf("classifyConfidence = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyConfidenceThreeCritical(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }

	result := &models.NormalizedInvoice{
		UnidadeConsumidoraID: str("123456"),
		ValorTotal:           num(250.75),
		DataVencimento:       str("2024-11-05"),
		// identificador_fatura missing
	}
	ix := buildFieldIndex([]models.SummaryField{
		{Label: "A", Value: "1", ValueConfidence: 95},
	})

	// Three critical fields cap the rating at medium regardless of
	// OCR confidence.
	if got := classifyConfidence(result, ix); got != models.ConfidenceMedium {
		t.Errorf("classifyConfidence = %q, want medium", got)
	}
}
