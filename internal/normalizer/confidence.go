package normalizer

import "faturas/pkg/models"

// classifyConfidence rates the extraction as a whole. The rating
// combines how many of the critical fields were recovered (consumer
// unit, invoice identifier, total amount, due date) with the average
// OCR value confidence across all indexed fields.
func classifyConfidence(result *models.NormalizedInvoice, ix *fieldIndex) string {
	found := 0
	if result.UnidadeConsumidoraID != nil {
		found++
	}
	if result.IdentificadorFatura != nil {
		found++
	}
	if result.ValorTotal != nil {
		found++
	}
	if result.DataVencimento != nil {
		found++
	}

	avg := ix.meanValueConfidence()

	switch {
	case found >= 4 && avg >= 80:
		return models.ConfidenceHigh
	case found >= 3 && avg >= 60:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
