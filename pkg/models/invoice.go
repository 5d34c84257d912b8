// Package models holds the records shared between the OCR collaborator,
// the normalization engine and its consumers.
//
// All monetary values are BRL as float64 (the upstream contract is the
// JSON produced by the OCR/expense-analysis pipeline); field names
// follow the Brazilian invoice vocabulary so the output JSON is stable
// across storage, aggregation and charting.
package models

// SummaryField is a labeled key/value detection from the OCR engine,
// with independent confidence for label and value (0-100 scale).
type SummaryField struct {
	Label           string  `json:"label"`
	LabelConfidence float64 `json:"label_confidence"`
	Value           string  `json:"value"`
	ValueConfidence float64 `json:"value_confidence"`
}

// Table is a row-major grid of cell text. Column count may vary row to
// row; no shape guarantee is made across tables.
type Table [][]string

// OcrDocument is the flattened OCR output consumed by the normalizer.
// It is produced by the OCR collaborator from the cloud service's
// nested block/relationship graph.
type OcrDocument struct {
	SummaryFields []SummaryField      `json:"summary_fields"`
	LineItems     []map[string]string `json:"line_items"`
	Tables        []Table             `json:"tables"`
	RawText       string              `json:"raw_text,omitempty"`
}

// RawSnippet maps an extracted field back to the OCR text and
// confidence it came from. The ordered snippet list is the audit trail
// of a normalization run.
type RawSnippet struct {
	Campo         string  `json:"campo"`
	Trecho        string  `json:"trecho"`
	ConfidenceOCR float64 `json:"confidence_ocr"`
}

// OutroComponente is a positive-valued invoice component the
// heuristics could not classify into a known category.
type OutroComponente struct {
	Nome  string  `json:"nome"`
	Valor float64 `json:"valor"`
}

// DetalheComponentes breaks the invoice total into its components.
// Nil means the component could not be determined.
type DetalheComponentes struct {
	Energia       *float64          `json:"energia"`
	TusdTust      *float64          `json:"tusd_tust"`
	Bandeira      *string           `json:"bandeira"`
	BandeiraValor *float64          `json:"bandeira_valor"`
	ICMS          *float64          `json:"icms"`
	PIS           *float64          `json:"pis"`
	COFINS        *float64          `json:"cofins"`
	Outros        []OutroComponente `json:"outros"`
}

// Overall confidence ratings for a normalized invoice.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Tariff flag levels (bandeira tarifária).
const (
	BandeiraVerde      = "VERDE"
	BandeiraAmarela    = "AMARELA"
	BandeiraVermelhaP1 = "VERMELHA_P1"
	BandeiraVermelhaP2 = "VERMELHA_P2"
)

// NormalizedInvoice is the schema-stable record produced by one
// normalization run. Pointer fields are null in JSON when the engine
// could not determine them; every missing field is accompanied by a
// warning rather than an error (the engine has no fatal path).
type NormalizedInvoice struct {
	ArquivoID   string `json:"arquivo_id"`
	ArquivoNome string `json:"arquivo_nome"`

	UnidadeConsumidoraID *string `json:"unidade_consumidora_id"`
	CodigoInstalacao     *string `json:"codigo_instalacao"`
	IdentificadorFatura  *string `json:"identificador_fatura"`

	// Billing period, ISO YYYY-MM-DD. DiasFaturamento is the inclusive
	// day count, null when either date is missing.
	DataInicio      *string `json:"data_inicio"`
	DataFim         *string `json:"data_fim"`
	DiasFaturamento *int    `json:"dias_faturamento"`

	LeituraAnterior *float64 `json:"leitura_anterior"`
	LeituraAtual    *float64 `json:"leitura_atual"`
	ConsumoKWh      *float64 `json:"consumo_kwh"`
	ConsumoEstimado bool     `json:"consumo_estimado"`

	ValorTotal         *float64           `json:"valor_total"`
	DetalheComponentes DetalheComponentes `json:"detalhe_componentes"`

	TarifaClasse      *string  `json:"tarifa_classe"`
	DemandaContratada *float64 `json:"demanda_contratada"`
	DemandaRegistrada *float64 `json:"demanda_registrada"`

	StatusPagamento *string `json:"status_pagamento"`
	DataVencimento  *string `json:"data_vencimento"`

	ConfidenceOverall string       `json:"confidence_overall"`
	Warnings          []string     `json:"warnings"`
	RawSnippets       []RawSnippet `json:"raw_snippets"`
}
