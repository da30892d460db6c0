// Package enrich annotates gene-set table rows with classification flags
// (e.g. metabolic Y/N) by membership in an external reference set.
package enrich

import (
	"github.com/inodb/genesets/internal/gene"
)

// Flag values written into the table.
const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// Reference is a set of qualifying gene symbols, typically built from a
// numeric-ID registry table via LoadRegistry.
type Reference map[string]bool

// NewReference builds a reference set from symbols.
func NewReference(symbols ...string) Reference {
	ref := make(Reference, len(symbols))
	for _, s := range symbols {
		if s != "" {
			ref[s] = true
		}
	}
	return ref
}

// Contains reports membership of a single symbol.
func (ref Reference) Contains(symbol string) bool {
	return symbol != "" && ref[symbol]
}

// Classifier computes one Y/N flag column for a table.
type Classifier struct {
	Column    string
	Reference Reference
}

// Apply flags every row Y or N by testing the primary symbol or the alias
// symbol against the reference set; either match flags the row positive.
// Apply is idempotent: re-running with the same reference rewrites the same
// values. It never adds or removes rows. Returns the number of rows flagged Y.
func (c Classifier) Apply(t *gene.Table) int {
	flagged := 0
	for _, row := range t.Rows() {
		v := FlagNo
		if c.Reference.Contains(row.Symbol) || c.Reference.Contains(row.Alias) {
			v = FlagYes
			flagged++
		}
		t.SetFlag(row.Symbol, c.Column, v)
	}
	return flagged
}
