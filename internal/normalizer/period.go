package normalizer

import (
	"regexp"
	"strings"
	"time"
)

var (
	reAnteriorDate = regexp.MustCompile(`(?i)Anterior[:\s]+(\d{2}/\d{2}(?:/\d{4})?)`)
	reAtualDate    = regexp.MustCompile(`(?i)Atual[:\s]+(\d{2}/\d{2}(?:/\d{4})?)`)
	reShortDate    = regexp.MustCompile(`\d{2}/\d{2}(?:/\d{4})?`)
	reRefYear      = regexp.MustCompile(`/(\d{4})`)
)

// periodStrategy fills in whichever of inicio/fim it can recover.
// Strategies run in priority order until both dates are known.
type periodStrategy func(e *extraction, inicio, fim **string)

// extractPeriodo recovers the billing period (reading start and end
// dates), trying labeled fields first, then a combined
// "DATAS DE LEITURA" field, then two-column table rows.
func (e *extraction) extractPeriodo() (*string, *string) {
	var inicio, fim *string
	for _, strategy := range []periodStrategy{
		periodFromLabels,
		periodFromCombinedField,
		periodFromTables,
	} {
		strategy(e, &inicio, &fim)
		if inicio != nil && fim != nil {
			break
		}
	}
	if inicio == nil {
		e.warn("Data de início do período não encontrada")
	}
	if fim == nil {
		e.warn("Data de fim do período não encontrada")
	}
	return inicio, fim
}

// periodFromLabels reads the reading dates from the labeled
// "Leitura Anterior" / "Leitura Atual" summary fields.
func periodFromLabels(e *extraction, inicio, fim **string) {
	if v, _ := e.locateField(fieldLeituraAnterior); v != "" {
		*inicio = e.normalizeDate(v)
	}
	if v, _ := e.locateField(fieldLeituraAtual); v != "" {
		*fim = e.normalizeDate(v)
	}
}

// periodFromCombinedField handles providers that merge both reading
// dates into a single "DATAS DE LEITURA" field, either inline
// ("Anterior: 01/11/2024 Atual: 01/12/2024") or as a keyword line
// followed by a line of dates. Years missing from DD/MM dates are
// backfilled from the reference-month field.
func periodFromCombinedField(e *extraction, inicio, fim **string) {
	for _, entry := range e.index.entries {
		if !strings.Contains(entry.key, "DATAS DE LEITURA") && !strings.Contains(entry.key, "DATAS DE") {
			continue
		}
		value := entry.value

		var anterior, atual string
		if m := reAnteriorDate.FindStringSubmatch(value); m != nil {
			anterior = m[1]
		}
		if m := reAtualDate.FindStringSubmatch(value); m != nil {
			atual = m[1]
		}

		if anterior == "" || atual == "" {
			// Keyword header on one line, the dates on the next.
			lines := strings.Split(value, "\n")
			if len(lines) >= 2 {
				first := strings.ToUpper(lines[0])
				if strings.Contains(first, "ANTERIOR") && strings.Contains(first, "ATUAL") {
					dates := reShortDate.FindAllString(lines[1], -1)
					if len(dates) >= 2 {
						if anterior == "" {
							anterior = dates[0]
						}
						if atual == "" {
							atual = dates[1]
						}
					}
				}
			}
		}

		if anterior != "" && *inicio == nil {
			*inicio = e.normalizeDate(e.withReferenceYear(anterior))
		}
		if atual != "" && *fim == nil {
			*fim = e.normalizeDate(e.withReferenceYear(atual))
		}
		return
	}
}

// periodFromTables scans label/value table rows for the reading dates.
func periodFromTables(e *extraction, inicio, fim **string) {
	for _, table := range e.doc.Tables {
		if len(table) < 2 {
			continue
		}
		for _, row := range table {
			if len(row) < 2 {
				continue
			}
			label := strings.ToUpper(row[0])
			value := row[1]

			if strings.Contains(label, "LEITURA ANTERIOR") && *inicio == nil {
				if d := e.normalizeDate(value); d != nil {
					*inicio = d
					e.snippet("data_inicio_tabela", row[0]+": "+value, 0)
				}
			}
			if strings.Contains(label, "LEITURA ATUAL") && *fim == nil {
				if d := e.normalizeDate(value); d != nil {
					*fim = d
					e.snippet("data_fim_tabela", row[0]+": "+value, 0)
				}
			}
		}
		if *inicio != nil && *fim != nil {
			return
		}
	}
}

// withReferenceYear appends the year from a "Referente a" style field
// (e.g. "NOV/2024") to a DD/MM date that lacks one.
func (e *extraction) withReferenceYear(date string) string {
	if len(date) > 5 {
		return date
	}
	for _, entry := range e.index.entries {
		if !strings.Contains(entry.key, "REFERENTE") {
			continue
		}
		if m := reRefYear.FindStringSubmatch(entry.value); m != nil {
			return date + "/" + m[1]
		}
	}
	return date
}

// billingDays derives the inclusive day count of the billing period;
// nil when either date is missing or the period is unparseable.
func billingDays(inicio, fim *string) *int {
	if inicio == nil || fim == nil {
		return nil
	}
	d1, err1 := time.Parse("2006-01-02", *inicio)
	d2, err2 := time.Parse("2006-01-02", *fim)
	if err1 != nil || err2 != nil || d2.Before(d1) {
		return nil
	}
	days := int(d2.Sub(d1).Hours()/24) + 1
	return &days
}
