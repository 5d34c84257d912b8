package normalizer

import (
	"strings"

	"faturas/pkg/models"
)

// unlabeledKeyPrefix marks index entries synthesized from detections
// whose label the OCR engine could not read.
const unlabeledKeyPrefix = "_UNLABELED_"

type indexEntry struct {
	key             string // normalized (upper-cased, trimmed) label
	label           string // original label text, kept for snippets
	value           string
	labelConfidence float64
	valueConfidence float64
}

// fieldIndex is a lookup over the OCR summary fields. Entries keep
// insertion order so the locator's first-match rule is deterministic;
// a duplicate normalized label overwrites the earlier entry in place.
// Last-write-wins on repeated labels (e.g. multiple meters each
// reporting "LEITURA ATUAL") is carried over from the source pipeline
// and is a known simplification, not a guarantee.
type fieldIndex struct {
	entries []indexEntry
	byKey   map[string]int
}

// buildFieldIndex turns the flat summary-field list into the lookup
// structure. Malformed or empty input yields an empty index; no
// errors are raised.
func buildFieldIndex(fields []models.SummaryField) *fieldIndex {
	ix := &fieldIndex{byKey: make(map[string]int)}
	for _, f := range fields {
		label := strings.TrimSpace(f.Label)
		value := strings.TrimSpace(f.Value)
		key := strings.ToUpper(label)

		if key == "" {
			if value == "" {
				continue
			}
			// Keep unlabeled detections discoverable under a synthetic
			// key derived from the value prefix, normalized like any
			// other key so the locator's substring pass can hit it.
			key = unlabeledKeyPrefix + strings.ToUpper(runePrefix(value, 20))
			ix.put(indexEntry{key: key, label: key, value: value, valueConfidence: f.ValueConfidence})
			continue
		}

		ix.put(indexEntry{
			key:             key,
			label:           label,
			value:           value,
			labelConfidence: f.LabelConfidence,
			valueConfidence: f.ValueConfidence,
		})
	}
	return ix
}

func (ix *fieldIndex) put(e indexEntry) {
	if pos, ok := ix.byKey[e.key]; ok {
		ix.entries[pos] = e
		return
	}
	ix.byKey[e.key] = len(ix.entries)
	ix.entries = append(ix.entries, e)
}

// meanValueConfidence is the average of all positive value-confidence
// scores in the index, used by the overall confidence rating.
func (ix *fieldIndex) meanValueConfidence() float64 {
	var sum float64
	var n int
	for _, e := range ix.entries {
		if e.valueConfidence > 0 {
			sum += e.valueConfidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// locate searches the index for the first entry matching any of the
// candidate label keywords. Exact label matches are tried over the
// whole index before any substring match, so a label exactly "ICMS"
// beats "ICMS BASE DE CÁLCULO" even when both would match. Substring
// matching remains necessary because OCR frequently merges or
// truncates multi-word labels.
//
// On a hit the entry's value and value confidence are returned and an
// audit snippet keyed by keywords[0] is recorded; on a miss the result
// is ("", 0) and no snippet is appended.
func (e *extraction) locate(keywords []string) (string, float64) {
	for _, entry := range e.index.entries {
		for _, kw := range keywords {
			if entry.key == strings.ToUpper(kw) {
				return e.found(keywords[0], entry)
			}
		}
	}
	for _, entry := range e.index.entries {
		for _, kw := range keywords {
			if strings.Contains(entry.key, strings.ToUpper(kw)) {
				return e.found(keywords[0], entry)
			}
		}
	}
	return "", 0
}

func (e *extraction) found(campo string, entry indexEntry) (string, float64) {
	e.snippet(campo, entry.label+": "+entry.value, entry.valueConfidence)
	return entry.value, entry.valueConfidence
}

// locateField is locate keyed by a canonical field name from the
// synonym table.
func (e *extraction) locateField(field string) (string, float64) {
	return e.locate(labelSynonyms[field])
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
