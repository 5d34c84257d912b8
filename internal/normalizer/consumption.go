package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"faturas/pkg/models"
)

// tableConsumption is what one table contributed: peak ("ponta"),
// off-peak ("fora ponta") and undifferentiated kWh totals, plus the
// audit snippets for every contributing row.
type tableConsumption struct {
	ponta     float64
	foraPonta float64
	total     float64
	snippets  []models.RawSnippet
}

// extractConsumo recovers meter readings and kWh consumption.
// Consumption usually lives in tabular line-item data whose column
// layout is issuer-specific, so each table is scanned with dynamic
// column detection; totals are additive across tables (one invoice
// may cover multiple meters). Falls back to line items, and leaves
// consumption null with a warning when nothing matches.
func (e *extraction) extractConsumo() (leituraAnterior, leituraAtual, consumoKWh *float64) {
	var ponta, foraPonta float64

	for _, table := range e.doc.Tables {
		if len(table) < 2 {
			continue
		}
		if leituraAnterior == nil && leituraAtual == nil {
			leituraAnterior, leituraAtual = e.extractReadings(table)
		}
		r := scanConsumptionTable(table)
		if r == nil {
			continue
		}
		ponta += r.ponta
		foraPonta += r.foraPonta
		if r.total > 0 {
			if consumoKWh == nil {
				consumoKWh = new(float64)
			}
			*consumoKWh += r.total
		}
		e.snippets = append(e.snippets, r.snippets...)
	}

	// Time-of-use invoices report peak and off-peak separately; their
	// sum supersedes any undifferentiated total.
	if ponta > 0 || foraPonta > 0 {
		total := ponta + foraPonta
		consumoKWh = &total
		e.snippet("consumo_total",
			fmt.Sprintf("Ponta: %g kWh + Fora Ponta: %g kWh = %g kWh", ponta, foraPonta, total), 0)
	}

	if consumoKWh == nil {
		consumoKWh = e.consumoFromLineItems()
	}
	if consumoKWh == nil {
		e.warn("Consumo em kWh não encontrado")
	}

	return leituraAnterior, leituraAtual, consumoKWh
}

// consumoFromLineItems scans the line items for any key mentioning
// consumption or kWh. Keys are visited in sorted order so repeated
// runs stay deterministic.
func (e *extraction) consumoFromLineItems() *float64 {
	for _, item := range e.doc.LineItems {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			upper := strings.ToUpper(key)
			if !strings.Contains(upper, "CONSUMO") && !strings.Contains(upper, "KWH") {
				continue
			}
			value := item[key]
			if v := parseNumber(value); v != nil && *v != 0 {
				e.snippet("consumo_kwh", key+": "+value, 0)
				return v
			}
		}
	}
	return nil
}

// scanConsumptionTable applies the dynamic-column heuristic to one
// table: find description, unit and value columns from the header,
// then accumulate kWh from rows that look like active energy items.
// Returns nil when the table has no usable columns or no energy rows.
func scanConsumptionTable(table models.Table) *tableConsumption {
	if len(table) < 2 {
		return nil
	}
	header := upperCells(table[0])

	descCol := -1
	unitCol := -1
	valueCol := -1
	valuePriority := -1

	for idx, col := range header {
		col = strings.TrimSpace(col)
		if descCol < 0 && containsAny(col, descHeaderKeywords) {
			descCol = idx
		}
		if unitCol < 0 && containsAny(col, unitHeaderKeywords) {
			unitCol = idx
		}
		if containsAny(col, valueHeaderKeywords) {
			// Prefer CONSUMO over FATURADO over REGISTRADO over any
			// other quantity-like header.
			p := 0
			switch {
			case strings.Contains(col, "CONSUMO"):
				p = 3
			case strings.Contains(col, "FATURADO"):
				p = 2
			case strings.Contains(col, "REGISTRADO"):
				p = 1
			}
			if p > valuePriority {
				valuePriority = p
				valueCol = idx
			}
		}
	}
	if valueCol < 0 {
		return nil
	}

	if descCol < 0 {
		descCol = sniffDescriptionColumn(table, header)
	}
	if descCol < 0 {
		return nil
	}

	r := &tableConsumption{}
	for _, row := range table[1:] {
		if len(row) <= descCol || len(row) <= valueCol {
			continue
		}
		desc := strings.ToUpper(row[descCol])
		unit := ""
		if unitCol >= 0 && len(row) > unitCol {
			unit = strings.ToUpper(row[unitCol])
		}

		// A purely numeric description is a meter serial, not an item.
		if isNumericText(desc) {
			continue
		}
		if containsAny(desc, excludeKeywords) {
			continue
		}
		hasEnergyKeyword := containsAny(desc, energyKeywords)
		hasKWhUnit := strings.Contains(unit, "KWH") || strings.Contains(unit, "KW")
		if !hasEnergyKeyword && !hasKWhUnit {
			continue
		}

		value := parseNumber(row[valueCol])
		if value == nil || *value <= 0 {
			continue
		}

		isForaPonta := containsAny(desc, foraPontaKeywords)
		isPonta := containsAny(desc, pontaKeywords) && !isForaPonta
		switch {
		case isPonta:
			r.ponta += *value
		case isForaPonta:
			r.foraPonta += *value
		default:
			r.total += *value
		}

		r.snippets = append(r.snippets, models.RawSnippet{
			Campo:  "consumo_generico",
			Trecho: fmt.Sprintf("%s: %g kWh", row[descCol], *value),
		})
	}

	if r.ponta > 0 || r.foraPonta > 0 || r.total > 0 {
		return r
	}
	return nil
}

// sniffDescriptionColumn finds a description column by content when no
// header keyword matched: the first column, excluding meter/serial
// headers, whose cells in the first two data rows hold non-numeric
// text.
func sniffDescriptionColumn(table models.Table, header []string) int {
	for idx := range header {
		if containsAny(strings.TrimSpace(header[idx]), meterHeaderKeywords) {
			continue
		}
		limit := len(table)
		if limit > 3 {
			limit = 3
		}
		for _, row := range table[1:limit] {
			if len(row) <= idx {
				continue
			}
			cell := strings.TrimSpace(row[idx])
			if cell != "" && !isNumericText(cell) {
				return idx
			}
		}
	}
	return -1
}

// extractReadings recovers previous/current meter readings from a
// table whose header carries both reading columns. Date-valued cells
// are skipped (some providers tabulate reading *dates* under the same
// labels).
func (e *extraction) extractReadings(table models.Table) (anterior, atual *float64) {
	header := upperCells(table[0])
	antCol, atuCol := -1, -1
	for idx, col := range header {
		if antCol < 0 && strings.Contains(col, "LEITURA ANTERIOR") {
			antCol = idx
		}
		if atuCol < 0 && strings.Contains(col, "LEITURA ATUAL") {
			atuCol = idx
		}
	}
	if antCol < 0 || atuCol < 0 {
		return nil, nil
	}
	for _, row := range table[1:] {
		if len(row) <= antCol || len(row) <= atuCol {
			continue
		}
		if reShortDate.MatchString(row[antCol]) || reShortDate.MatchString(row[atuCol]) {
			continue
		}
		a := parseNumber(row[antCol])
		b := parseNumber(row[atuCol])
		if a == nil || b == nil {
			continue
		}
		e.snippet("leitura_anterior", header[antCol]+": "+row[antCol], 0)
		e.snippet("leitura_atual", header[atuCol]+": "+row[atuCol], 0)
		return a, b
	}
	return nil, nil
}

func upperCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.ToUpper(c)
	}
	return out
}
