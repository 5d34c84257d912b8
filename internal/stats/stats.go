// Package stats aggregates normalized invoices into time-series chart
// data for the web dashboard.
package stats

import (
	"fmt"
	"sort"
	"time"

	"faturas/pkg/models"
)

// Datasets are the parallel per-invoice series, aligned with Labels.
type Datasets struct {
	Consumo []float64 `json:"consumo"`
	Valor   []float64 `json:"valor"`
	ICMS    []float64 `json:"icms"`
	PIS     []float64 `json:"pis"`
	COFINS  []float64 `json:"cofins"`
}

// Summary are the headline figures across all charted invoices.
type Summary struct {
	TotalFaturas int     `json:"total_faturas"`
	ConsumoTotal float64 `json:"consumo_total"`
	ConsumoMedio float64 `json:"consumo_medio"`
	ValorTotal   float64 `json:"valor_total"`
	ValorMedio   float64 `json:"valor_medio"`
	TarifaMedia  float64 `json:"tarifa_media"`
}

// ChartData is the dashboard payload: month labels, one dataset per
// metric and the summary block.
type ChartData struct {
	Success  bool     `json:"success"`
	Labels   []string `json:"labels"`
	Datasets Datasets `json:"datasets"`
	Stats    Summary  `json:"stats"`
	Message  string   `json:"message,omitempty"`
}

// Aggregate builds the chart payload from the stored invoices.
// Invoices without a usable total fall back to their first "outros"
// component; invoices without a period end date are counted but not
// charted.
func Aggregate(invoices []models.NormalizedInvoice) *ChartData {
	empty := &ChartData{
		Success: true,
		Labels:  []string{},
		Datasets: Datasets{
			Consumo: []float64{},
			Valor:   []float64{},
			ICMS:    []float64{},
			PIS:     []float64{},
			COFINS:  []float64{},
		},
	}

	faturas := make([]models.NormalizedInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.ValorTotal == nil || *inv.ValorTotal == 0 {
			if len(inv.DetalheComponentes.Outros) > 0 {
				v := inv.DetalheComponentes.Outros[0].Valor
				if v != 0 {
					inv.ValorTotal = &v
				}
			}
		}
		if inv.DataFim != nil || inv.ConsumoKWh != nil || inv.ValorTotal != nil {
			faturas = append(faturas, inv)
		}
	}

	if len(faturas) == 0 {
		empty.Message = "Nenhuma fatura encontrada. Faça upload de faturas primeiro."
		return empty
	}

	sort.SliceStable(faturas, func(i, j int) bool {
		return orEmpty(faturas[i].DataFim) < orEmpty(faturas[j].DataFim)
	})

	data := &ChartData{
		Success: true,
		Labels:  []string{},
		Datasets: Datasets{
			Consumo: []float64{},
			Valor:   []float64{},
			ICMS:    []float64{},
			PIS:     []float64{},
			COFINS:  []float64{},
		},
	}

	for _, f := range faturas {
		if f.DataFim == nil {
			continue
		}
		t, err := time.Parse("2006-01-02", *f.DataFim)
		if err != nil {
			continue
		}
		data.Labels = append(data.Labels, t.Format("Jan/2006"))
		data.Datasets.Consumo = append(data.Datasets.Consumo, orZero(f.ConsumoKWh))
		data.Datasets.Valor = append(data.Datasets.Valor, orZero(f.ValorTotal))
		data.Datasets.ICMS = append(data.Datasets.ICMS, orZero(f.DetalheComponentes.ICMS))
		data.Datasets.PIS = append(data.Datasets.PIS, orZero(f.DetalheComponentes.PIS))
		data.Datasets.COFINS = append(data.Datasets.COFINS, orZero(f.DetalheComponentes.COFINS))
	}

	if len(data.Labels) == 0 {
		empty.Message = fmt.Sprintf("Encontradas %d faturas, mas nenhuma possui data válida para exibição.", len(faturas))
		return empty
	}

	var consumoTotal, valorTotal float64
	for _, v := range data.Datasets.Consumo {
		consumoTotal += v
	}
	for _, v := range data.Datasets.Valor {
		valorTotal += v
	}
	n := float64(len(data.Labels))

	data.Stats = Summary{
		TotalFaturas: len(data.Labels),
		ConsumoTotal: consumoTotal,
		ConsumoMedio: consumoTotal / n,
		ValorTotal:   valorTotal,
		ValorMedio:   valorTotal / n,
	}
	if consumoTotal > 0 {
		data.Stats.TarifaMedia = valorTotal / consumoTotal
	}

	return data
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
