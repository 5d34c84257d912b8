// Package normalizer extracts and normalizes Brazilian electricity
// invoice fields from flattened OCR output.
//
// Source documents come from multiple utility providers with no shared
// layout, so the engine is a fixed pipeline of heuristics over one
// shared field index: locate labeled fields by synonym lists, parse
// locale-specific numbers and dates, recover consumption and tax
// components from variable-layout tables, and score the result.
//
// The engine never fails: every normalization call returns a complete
// (possibly mostly-null) record plus an ordered warnings list and an
// audit trail of raw snippets. Whether the invoice is usable is the
// caller's decision, informed by the overall confidence rating.
//
// A Normalizer holds no per-call state; all accumulation happens in an
// explicit per-call context, so one instance is safe to share across
// concurrent calls.
package normalizer

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"faturas/internal/logger"
	"faturas/pkg/models"
)

// Input wraps one OCR'd document with its pass-through identifiers.
type Input struct {
	ArquivoID   string
	ArquivoNome string
	Document    models.OcrDocument
	RawText     string
}

// Normalizer turns OCR documents into NormalizedInvoice records.
type Normalizer struct {
	log zerolog.Logger
}

func New() *Normalizer {
	return &Normalizer{log: logger.WithComponent("normalizer")}
}

// extraction is the per-call accumulator threaded through every
// extraction step: the shared field index plus the warnings and audit
// snippets collected along the way. It is created fresh for each
// Normalize call, which keeps the Normalizer itself stateless.
type extraction struct {
	doc      *models.OcrDocument
	index    *fieldIndex
	warnings []string
	snippets []models.RawSnippet
}

func (e *extraction) snippet(campo, trecho string, conf float64) {
	e.snippets = append(e.snippets, models.RawSnippet{
		Campo:         campo,
		Trecho:        trecho,
		ConfidenceOCR: conf,
	})
}

func (e *extraction) warn(msg string) {
	e.warnings = append(e.warnings, msg)
}

// Normalize runs the full extraction pipeline over one document. It
// is synchronous, performs no I/O, and always returns a record.
func (n *Normalizer) Normalize(input Input) *models.NormalizedInvoice {
	e := &extraction{
		doc:      &input.Document,
		index:    buildFieldIndex(input.Document.SummaryFields),
		warnings: []string{},
		snippets: []models.RawSnippet{},
	}

	result := &models.NormalizedInvoice{
		ArquivoID:   input.ArquivoID,
		ArquivoNome: input.ArquivoNome,
		DetalheComponentes: models.DetalheComponentes{
			Outros: []models.OutroComponente{},
		},
		ConfidenceOverall: models.ConfidenceMedium,
	}

	result.UnidadeConsumidoraID = e.stringField(fieldUnidadeConsumidora, "Unidade consumidora não encontrada")
	result.CodigoInstalacao = e.stringField(fieldCodigoInstalacao, "Código da instalação não encontrado")
	result.IdentificadorFatura = e.stringField(fieldIdentificador, "Identificador da fatura não encontrado")
	result.ValorTotal = e.extractValorTotal()
	result.TarifaClasse = e.extractTarifaClasse()
	result.DataVencimento = e.extractDataVencimento()

	result.DataInicio, result.DataFim = e.extractPeriodo()
	result.DiasFaturamento = billingDays(result.DataInicio, result.DataFim)

	leituraAnt, leituraAtu, consumo := e.extractConsumo()
	result.LeituraAnterior = leituraAnt
	result.LeituraAtual = leituraAtu
	result.ConsumoKWh = consumo

	// Readings vs informed consumption: warnings are advisory only,
	// the extracted value is returned unmodified.
	if leituraAnt != nil && leituraAtu != nil {
		calculated := *leituraAtu - *leituraAnt
		switch {
		case calculated < 0:
			e.warnf("Consumo calculado negativo: %g kWh", calculated)
		case consumo != nil && *consumo != 0 && math.Abs(calculated-*consumo) > 1:
			e.warnf("Divergência entre consumo informado (%g) e calculado (%g)", *consumo, calculated)
		}
	}

	result.DetalheComponentes = e.extractComponentes()
	result.DemandaContratada = e.numberField(fieldDemandaContratada)
	result.DemandaRegistrada = e.numberField(fieldDemandaRegistrada)

	result.ConfidenceOverall = classifyConfidence(result, e.index)
	result.Warnings = e.warnings
	result.RawSnippets = e.snippets

	n.log.Debug().
		Str("arquivo_id", input.ArquivoID).
		Str("confidence", result.ConfidenceOverall).
		Int("warnings", len(result.Warnings)).
		Int("snippets", len(result.RawSnippets)).
		Msg("invoice normalized")

	return result
}

// stringField locates a labeled field, warning when it is absent.
func (e *extraction) stringField(field, warning string) *string {
	v, _ := e.locateField(field)
	if v == "" {
		e.warn(warning)
		return nil
	}
	return &v
}

// numberField locates a labeled field and parses it as a number.
func (e *extraction) numberField(field string) *float64 {
	v, _ := e.locateField(field)
	if v == "" {
		return nil
	}
	return parseNumber(v)
}

func (e *extraction) extractValorTotal() *float64 {
	v, _ := e.locateField(fieldValorTotal)
	if v == "" {
		e.warn("Valor total não encontrado")
		return nil
	}
	return parseCurrency(v)
}

func (e *extraction) extractDataVencimento() *string {
	v, _ := e.locateField(fieldDataVencimento)
	if v == "" {
		return nil
	}
	return e.normalizeDate(v)
}

// extractTarifaClasse maps the raw classification text onto the known
// tariff classes, falling back to the raw OCR value.
func (e *extraction) extractTarifaClasse() *string {
	v, _ := e.locateField(fieldTarifaClasse)
	if v == "" {
		return nil
	}
	upper := strings.ToUpper(v)
	for _, c := range classePatterns {
		if c.Pattern.MatchString(upper) {
			name := c.Name
			return &name
		}
	}
	return &v
}

func matchBandeira(upper string) (string, bool) {
	for _, b := range bandeiraPatterns {
		if b.Pattern.MatchString(upper) {
			return b.Name, true
		}
	}
	return "", false
}
