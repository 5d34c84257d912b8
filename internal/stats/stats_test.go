package stats

import (
	"testing"

	"faturas/pkg/models"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func TestAggregateEmpty(t *testing.T) {
	data := Aggregate(nil)

	if !data.Success {
		t.Error("success = false")
	}
	if len(data.Labels) != 0 {
		t.Errorf("labels = %v", data.Labels)
	}
	if data.Message != "Nenhuma fatura encontrada. Faça upload de faturas primeiro." {
		t.Errorf("message = %q", data.Message)
	}
	// Empty slices, not nulls, so the JSON shape is stable.
	if data.Datasets.Consumo == nil || data.Datasets.Valor == nil {
		t.Error("datasets must be non-nil")
	}
}

func TestAggregateSeries(t *testing.T) {
	invoices := []models.NormalizedInvoice{
		{
			DataFim:    str("2024-11-30"),
			ConsumoKWh: num(400),
			ValorTotal: num(300),
			DetalheComponentes: models.DetalheComponentes{
				ICMS:   num(50),
				PIS:    num(3),
				COFINS: num(14),
			},
		},
		{
			DataFim:    str("2024-10-31"),
			ConsumoKWh: num(350),
			ValorTotal: num(250),
		},
	}

	data := Aggregate(invoices)

	if len(data.Labels) != 2 {
		t.Fatalf("labels = %v", data.Labels)
	}
	// Sorted chronologically by period end, formatted month/year.
	if data.Labels[0] != "Oct/2024" || data.Labels[1] != "Nov/2024" {
		t.Errorf("labels = %v", data.Labels)
	}
	if data.Datasets.Consumo[0] != 350 || data.Datasets.Consumo[1] != 400 {
		t.Errorf("consumo = %v", data.Datasets.Consumo)
	}
	if data.Datasets.ICMS[0] != 0 || data.Datasets.ICMS[1] != 50 {
		t.Errorf("icms = %v", data.Datasets.ICMS)
	}

	if data.Stats.TotalFaturas != 2 {
		t.Errorf("total_faturas = %d", data.Stats.TotalFaturas)
	}
	if data.Stats.ConsumoTotal != 750 || data.Stats.ConsumoMedio != 375 {
		t.Errorf("consumo stats = %v / %v", data.Stats.ConsumoTotal, data.Stats.ConsumoMedio)
	}
	if data.Stats.ValorTotal != 550 || data.Stats.ValorMedio != 275 {
		t.Errorf("valor stats = %v / %v", data.Stats.ValorTotal, data.Stats.ValorMedio)
	}
	want := 550.0 / 750.0
	if data.Stats.TarifaMedia != want {
		t.Errorf("tarifa_media = %v, want %v", data.Stats.TarifaMedia, want)
	}
}

func TestAggregateOutrosFallback(t *testing.T) {
	invoices := []models.NormalizedInvoice{
		{
			DataFim: str("2024-11-30"),
			DetalheComponentes: models.DetalheComponentes{
				Outros: []models.OutroComponente{
					{Nome: "NOV/2024", Valor: 198.40},
					{Nome: "OUT/2024", Valor: 187.20},
				},
			},
		},
	}

	data := Aggregate(invoices)

	if len(data.Labels) != 1 {
		t.Fatalf("labels = %v", data.Labels)
	}
	// The first unclassified component stands in for the missing total.
	if data.Datasets.Valor[0] != 198.40 {
		t.Errorf("valor = %v, want outros[0] fallback", data.Datasets.Valor)
	}
}

func TestAggregateNoValidDates(t *testing.T) {
	invoices := []models.NormalizedInvoice{
		{ConsumoKWh: num(350)},
		{ValorTotal: num(250)},
	}

	data := Aggregate(invoices)

	if len(data.Labels) != 0 {
		t.Fatalf("labels = %v", data.Labels)
	}
	if data.Message != "Encontradas 2 faturas, mas nenhuma possui data válida para exibição." {
		t.Errorf("message = %q", data.Message)
	}
}
