package normalizer

import "regexp"

// Canonical field names used to key the label synonym table. The
// first synonym of each list doubles as the audit snippet's campo.
const (
	fieldUnidadeConsumidora = "unidade_consumidora"
	fieldCodigoInstalacao   = "codigo_instalacao"
	fieldIdentificador      = "identificador_fatura"
	fieldDataVencimento     = "data_vencimento"
	fieldDataEmissao        = "data_emissao"
	fieldLeituraAnterior    = "leitura_anterior"
	fieldLeituraAtual       = "leitura_atual"
	fieldProximaLeitura     = "proxima_leitura"
	fieldConsumo            = "consumo"
	fieldValorTotal         = "valor_total"
	fieldTarifaClasse       = "tarifa_classe"
	fieldDemandaContratada  = "demanda_contratada"
	fieldDemandaRegistrada  = "demanda_registrada"
	fieldBandeira           = "bandeira"
	fieldICMS               = "icms"
	fieldPIS                = "pis"
	fieldCOFINS             = "cofins"
	fieldEnergia            = "energia"
	fieldTUSD               = "tusd"
)

// labelSynonyms maps each canonical field to an ordered list of label
// synonyms seen across Brazilian utility providers. New provider
// layouts are supported by extending these lists; the extraction logic
// never hard-codes labels.
var labelSynonyms = map[string][]string{
	fieldUnidadeConsumidora: {"MATRÍCULA", "MATRICULA", "UNIDADE CONSUMIDORA", "UC"},
	fieldCodigoInstalacao:   {"CÓDIGO DA INSTALAÇÃO", "CODIGO DA INSTALACAO", "INSTALAÇÃO", "INSTALACAO"},
	fieldIdentificador:      {"N° DOCUMENTO", "Nº DOCUMENTO", "NOSSO NÚMERO", "NOTA FISCAL", "NF"},
	fieldDataVencimento:     {"VENCIMENTO", "DATA DE VENCIMENTO", "DATA VENCIMENTO"},
	fieldDataEmissao:        {"DATA DE EMISSÃO", "DATA EMISSAO", "DATA DO DOCUMENTO"},
	fieldLeituraAnterior:    {"LEITURA ANTERIOR", "LEITURA\nANTERIOR"},
	fieldLeituraAtual:       {"LEITURA ATUAL", "LEITURA\nATUAL"},
	fieldProximaLeitura:     {"PRÓXIMA LEITURA", "PROXIMA LEITURA", "PRÓXIMA\nLEITURA"},
	fieldConsumo:            {"CONSUMO", "KWH", "kWh", "CONSUMO (KWH)", "CONSUMO KWH"},
	fieldValorTotal:         {"TOTAL A PAGAR", "VALOR TOTAL", "TOTAL", "VALOR DO DOCUMENTO"},
	fieldTarifaClasse:       {"CLASSIFICAÇÃO", "CLASSIFICACAO", "CLASSE", "TARIFA"},
	fieldDemandaContratada:  {"DEMANDA CONTRATADA", "DEM. CONTRATADA"},
	fieldDemandaRegistrada:  {"DEMANDA REGISTRADA", "DEM. REGISTRADA", "DEMANDA MEDIDA"},
	fieldBandeira:           {"BANDEIRA", "BAND."},
	fieldICMS:               {"ICMS"},
	fieldPIS:                {"PIS", "PASEP"},
	fieldCOFINS:             {"COFINS"},
	fieldEnergia:            {"ENERGIA", "CONSUMO DE ENERGIA", "ENERGIA ELÉTRICA"},
	fieldTUSD:               {"TUSD", "TUST"},
}

// bandeiraPatterns maps tariff-flag enum values to the pattern that
// recognizes them in OCR text. Order matters: the P1/P2 variants must
// be tried before a bare VERMELHA would match.
var bandeiraPatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"VERMELHA_P1", regexp.MustCompile(`VERMELHA\s*P1|VERMELHA\s*PATAMAR\s*1`)},
	{"VERMELHA_P2", regexp.MustCompile(`VERMELHA\s*P2|VERMELHA\s*PATAMAR\s*2`)},
	{"VERDE", regexp.MustCompile(`VERDE`)},
	{"AMARELA", regexp.MustCompile(`AMARELA`)},
}

// classePatterns maps tariff-class enum values to matching patterns.
// When none match the raw OCR value is passed through unchanged.
var classePatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"RESIDENCIAL", regexp.MustCompile(`RESIDENCIAL`)},
	{"COMERCIAL", regexp.MustCompile(`COMERCIAL`)},
	{"INDUSTRIAL", regexp.MustCompile(`INDUSTRIAL`)},
	{"GRUPO_A", regexp.MustCompile(`GRUPO\s*A|A4|A3`)},
	{"GRUPO_B", regexp.MustCompile(`GRUPO\s*B|B1|B2|B3`)},
}

// Keyword sets driving the consumption table heuristic. Descriptions
// must carry an energy keyword (or a kWh/kW unit cell) to count as
// active energy; exclusion keywords reject discounts, credits,
// adjustments, demand and reactive-energy rows.
var (
	energyKeywords    = []string{"CONSUMO", "ENERGIA", "COMPONENTE", "TUSD", "TUST", "ENCARGO", "ACL"}
	pontaKeywords     = []string{"PONTA", " HP", "HP ", "HORÁRIO PONTA", "HORARIO PONTA"}
	foraPontaKeywords = []string{"FORA PONTA", "FPONTA", "F PONTA", "F.PONTA", "HFP", "FORA DE PONTA"}
	excludeKeywords   = []string{"DESC", "DESCONTO", "CREDITO", "CREDIT", "AJUSTE", "DEMANDA", "REATIVA"}
)

// Header keyword sets for dynamic column detection.
var (
	descHeaderKeywords  = []string{"DESCRI", "PRODUTO", "ITEM", "GRANDEZA"}
	unitHeaderKeywords  = []string{"UNID", "UN.", "U.M."}
	valueHeaderKeywords = []string{"QUANT", "REGISTRADO", "FATURADO", "CONSUMO", "MEDIDO"}
	// Headers that identify meter/serial columns, never descriptions.
	meterHeaderKeywords = []string{"MEDIDOR", "N°", "Nº", "NUMERO", "NÚMERO", "LEITURA", "CONST"}
)

// Row markers identifying invoice-level total rows in tax tables.
var totalRowKeywords = []string{"TOTAL", "CONSOLIDADO", "SOMA"}
