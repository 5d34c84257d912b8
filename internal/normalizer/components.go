package normalizer

import (
	"math"
	"strings"

	"faturas/pkg/models"
)

// taxColumns is the set of tax-value column positions detected in one
// table header. Two layouts coexist: a combined "PIS/COFINS" column
// next to a currency-qualified ICMS column, and fully separate ICMS,
// PIS and COFINS columns. -1 means not present.
type taxColumns struct {
	icmsCombined int
	pisCofins    int
	icmsSep      int
	pisSep       int
	cofinsSep    int
}

func (tc taxColumns) any() bool {
	return tc.icmsCombined >= 0 || tc.pisCofins >= 0 ||
		tc.icmsSep >= 0 || tc.pisSep >= 0 || tc.cofinsSep >= 0
}

// extractComponentes recovers the invoice cost breakdown: energy and
// distribution charges, tariff-flag surcharge and the ICMS/PIS/COFINS
// taxes. Labeled summary fields are tried first; tables then fill in
// whatever is still missing, never overwriting a value already found.
func (e *extraction) extractComponentes() models.DetalheComponentes {
	c := models.DetalheComponentes{Outros: []models.OutroComponente{}}

	if v, _ := e.locateField(fieldICMS); v != "" {
		c.ICMS = parseCurrency(v)
	}
	if v, _ := e.locateField(fieldPIS); v != "" {
		c.PIS = parseCurrency(v)
	}
	if v, _ := e.locateField(fieldCOFINS); v != "" {
		c.COFINS = parseCurrency(v)
	}
	if v, _ := e.locateField(fieldEnergia); v != "" {
		c.Energia = parseCurrency(v)
	}
	if v, _ := e.locateField(fieldTUSD); v != "" {
		c.TusdTust = parseCurrency(v)
	}
	if v, _ := e.locateField(fieldBandeira); v != "" {
		if name, ok := matchBandeira(strings.ToUpper(v)); ok {
			c.Bandeira = &name
		}
	}

	for _, table := range e.doc.Tables {
		if len(table) > 1 {
			e.extractTaxTotals(table, &c)
		}
		e.extractComponentRows(table, &c)
	}

	return c
}

// extractTaxTotals applies the tax-column heuristic to one table: find
// tax columns in the header, pick the best invoice-level total row and
// read the still-missing tax values from it.
func (e *extraction) extractTaxTotals(table models.Table, c *models.DetalheComponentes) {
	// Some providers emit a blank spacer row above the real header.
	headerIdx := 0
	if len(table) > 2 && rowBlank(table[0]) {
		headerIdx = 1
	}
	cols := detectTaxColumns(upperCells(table[headerIdx]))
	if !cols.any() {
		return
	}

	row := bestTotalRow(table[headerIdx+1:], cols)
	if row == nil {
		return
	}

	if c.ICMS == nil {
		if v := positiveCurrencyAt(row, cols.icmsCombined); v != nil {
			c.ICMS = v
		}
	}
	if v := positiveCurrencyAt(row, cols.pisCofins); v != nil && c.PIS == nil && c.COFINS == nil {
		// Combined PIS/COFINS cell: split by the typical share of each
		// tax in the combined amount (0.65% PIS vs 3% COFINS rates).
		pis := math.Round(*v*0.178*100) / 100
		cofins := math.Round(*v*0.822*100) / 100
		c.PIS = &pis
		c.COFINS = &cofins
	}
	if c.ICMS == nil {
		if v := positiveCurrencyAt(row, cols.icmsSep); v != nil {
			c.ICMS = v
		}
	}
	if c.PIS == nil {
		if v := positiveCurrencyAt(row, cols.pisSep); v != nil {
			c.PIS = v
		}
	}
	if c.COFINS == nil {
		if v := positiveCurrencyAt(row, cols.cofinsSep); v != nil {
			c.COFINS = v
		}
	}
}

// detectTaxColumns scans an upper-cased header row for tax columns.
// Base-of-calculation and aliquot columns are never value columns and
// are excluded explicitly.
func detectTaxColumns(header []string) taxColumns {
	cols := taxColumns{icmsCombined: -1, pisCofins: -1, icmsSep: -1, pisSep: -1, cofinsSep: -1}
	for idx, col := range header {
		trimmed := strings.TrimSpace(col)

		if cols.pisCofins < 0 && (strings.Contains(col, "PIS/COFINS") || strings.Contains(col, "PIS / COFINS")) {
			cols.pisCofins = idx
		}
		if cols.icmsCombined < 0 && strings.Contains(col, "ICMS") &&
			strings.Contains(col, "(") && strings.Contains(col, "R$") {
			cols.icmsCombined = idx
		}
		if cols.icmsSep < 0 && strings.Contains(col, "ICMS") &&
			!strings.Contains(col, "BASE") && !strings.Contains(col, "ALIQ") && !strings.Contains(col, "CALC") {
			if trimmed == "ICMS" || strings.Contains(col, "R$") {
				cols.icmsSep = idx
			}
		}
		if cols.pisSep < 0 && strings.Contains(col, "PIS") &&
			!strings.Contains(col, "BASE") && !strings.Contains(col, "CALC") {
			if trimmed == "PIS" || strings.Contains(col, "%") || strings.Contains(col, "R$") {
				cols.pisSep = idx
			}
		}
		if cols.cofinsSep < 0 && strings.Contains(col, "COFINS") &&
			!strings.Contains(col, "BASE") && !strings.Contains(col, "CALC") {
			if trimmed == "COFINS" || strings.Contains(col, "%") || strings.Contains(col, "R$") {
				cols.cofinsSep = idx
			}
		}
	}
	return cols
}

// bestTotalRow picks the invoice-level summary row among the data
// rows: any row mentioning a total keyword that carries at least one
// positive tax value, with CONSOLIDADO rows beating plain TOTAL rows.
// Earlier rows win ties, keeping the choice deterministic.
func bestTotalRow(rows []([]string), cols taxColumns) []string {
	var best []string
	bestPriority := 0
	for _, row := range rows {
		text := strings.ToUpper(strings.Join(row, " "))
		if !containsAny(text, totalRowKeywords) {
			continue
		}
		hasValue := false
		for _, idx := range []int{cols.icmsCombined, cols.icmsSep, cols.pisCofins, cols.pisSep, cols.cofinsSep} {
			if positiveCurrencyAt(row, idx) != nil {
				hasValue = true
				break
			}
		}
		if !hasValue {
			continue
		}
		priority := 1
		if strings.Contains(text, "CONSOLIDADO") {
			priority = 2
		}
		if priority > bestPriority {
			bestPriority = priority
			best = row
		}
	}
	return best
}

// extractComponentRows is the generic description/value fallback: the
// first cell names the component, the last cell holds its value. Rows
// that match no known component but parse to a positive value land in
// outros.
func (e *extraction) extractComponentRows(table models.Table, c *models.DetalheComponentes) {
	for _, row := range table {
		if len(row) < 2 {
			continue
		}
		desc := strings.ToUpper(row[0])
		valorText := row[len(row)-1]

		switch {
		case strings.Contains(desc, "ENERGIA") && c.Energia == nil:
			c.Energia = parseCurrency(valorText)
		case strings.Contains(desc, "TUSD") || strings.Contains(desc, "TUST"):
			if c.TusdTust == nil {
				c.TusdTust = parseCurrency(valorText)
			}
		case strings.Contains(desc, "BANDEIRA"):
			if c.BandeiraValor == nil {
				c.BandeiraValor = parseCurrency(valorText)
			}
			if name, ok := matchBandeira(desc); ok && c.Bandeira == nil {
				c.Bandeira = &name
			}
		case strings.Contains(desc, "ICMS") && c.ICMS == nil:
			c.ICMS = parseCurrency(valorText)
		case (strings.Contains(desc, "PIS") || strings.Contains(desc, "PASEP")) && c.PIS == nil:
			c.PIS = parseCurrency(valorText)
		case strings.Contains(desc, "COFINS") && c.COFINS == nil:
			c.COFINS = parseCurrency(valorText)
		default:
			if v := parseCurrency(valorText); v != nil && *v > 0 {
				c.Outros = append(c.Outros, models.OutroComponente{Nome: row[0], Valor: *v})
			}
		}
	}
}

func positiveCurrencyAt(row []string, idx int) *float64 {
	if idx < 0 || len(row) <= idx {
		return nil
	}
	v := parseCurrency(row[idx])
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
