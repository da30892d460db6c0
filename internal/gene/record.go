// Package gene provides the identifier record and gene-set table types shared
// by every curation stage.
package gene

// Record is one observation of a gene from a single upstream source.
// Symbol is the species-specific gene symbol and is mandatory; all
// cross-reference identifiers are optional.
type Record struct {
	Symbol         string // e.g. "Abl1" (mouse) or "ABL1" (human)
	EnsemblID      string // stable gene ID, e.g. "ENSMUSG00000026842"
	EntrezID       string // numeric gene ID, kept as string to preserve leading zeros
	UniprotID      string // protein accession
	NomenclatureID string // MGI or HGNC identifier, e.g. "MGI:87859"
	Description    string // free-text annotation; may embed an accession token
	Source         string // provenance tag set by the fetcher, not part of identity
}

// Completeness counts the populated cross-reference identifiers. Records with
// more populated IDs win reconciliation ties over records with fewer.
func (r *Record) Completeness() int {
	n := 0
	for _, id := range []string{r.EnsemblID, r.UniprotID, r.NomenclatureID, r.EntrezID} {
		if id != "" {
			n++
		}
	}
	return n
}

// FillNomenclatureID extracts a nomenclature accession from the description
// when the field itself is empty. Extraction failure leaves the record as is.
func (r *Record) FillNomenclatureID() {
	if r.NomenclatureID != "" {
		return
	}
	r.NomenclatureID = ExtractAccession(r.Description)
}
