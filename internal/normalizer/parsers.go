package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	currencyMarkers = regexp.MustCompile(`[R$\s]`)
	numberChars     = regexp.MustCompile(`[^\d.,\-]`)
	datePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`), // DD/MM/YYYY
		regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), // DD-MM-YYYY
	}
)

// parseCurrency parses a Brazilian currency string ("R$ 1.234,56")
// into its decimal value. Returns nil on anything unparseable; parse
// failures never propagate to the caller.
func parseCurrency(s string) *float64 {
	if s == "" {
		return nil
	}
	cleaned := currencyMarkers.ReplaceAllString(s, "")
	// 1.234,56 -> 1234.56
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseNumber parses a generic locale-ambiguous number. When both dot
// and comma are present the dot is a thousands separator; a lone comma
// is the decimal separator.
func parseNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	cleaned := numberChars.ReplaceAllString(s, "")
	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// normalizeDate converts a DD/MM/YYYY or DD-MM-YYYY date found inside
// s to canonical YYYY-MM-DD. Impossible calendar dates (31/02/2024)
// and unrecognized formats yield nil plus a warning.
func (e *extraction) normalizeDate(s string) *string {
	if s == "" {
		return nil
	}
	for _, p := range datePatterns {
		m := p.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes overflow (Feb 31 -> Mar 2), so a
		// round-trip mismatch means the date never existed.
		if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
			continue
		}
		iso := t.Format("2006-01-02")
		return &iso
	}
	e.warnf("Formato de data não reconhecido: %s", s)
	return nil
}

// isNumericText reports whether a cell is purely numeric once
// separators are removed, which identifies meter serials posing as
// descriptions.
func isNumericText(s string) bool {
	cleaned := strings.NewReplacer(".", "", ",", "", "-", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func (e *extraction) warnf(format string, args ...any) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}
