package gene

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Fixed identity columns written before any flag columns.
var baseColumns = []string{
	"symbol",
	"ensembl_gene_id",
	"entrez_id",
	"uniprot_id",
	"nomenclature_id",
	"alias_symbol",
	"description",
	"source",
}

// Row is one reconciled gene in a table: the winning identifier record, an
// optional alias symbol, and the classification flags added by enrichment.
type Row struct {
	Record
	Alias string
	flags map[string]string
}

// Flag returns the value of a classification flag column, or "" if unset.
func (r *Row) Flag(column string) string {
	return r.flags[column]
}

// Table is an in-memory gene-set table for one species+collection. Rows keep
// insertion order; flag columns keep the order in which they were first set.
type Table struct {
	Species    string
	Collection string

	rows     []*Row
	index    map[string]*Row
	flagCols []string
}

// NewTable creates an empty table for the given species and collection.
func NewTable(species, collection string) *Table {
	return &Table{
		Species:    species,
		Collection: collection,
		index:      make(map[string]*Row),
	}
}

// Add appends a row for a reconciled record. Adding a symbol that is already
// present replaces the row's record in place, preserving row order and flags.
func (t *Table) Add(rec Record) *Row {
	if row, ok := t.index[rec.Symbol]; ok {
		row.Record = rec
		return row
	}
	row := &Row{Record: rec, flags: make(map[string]string)}
	t.rows = append(t.rows, row)
	t.index[rec.Symbol] = row
	return row
}

// Get returns the row for a symbol, or nil.
func (t *Table) Get(symbol string) *Row {
	return t.index[symbol]
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() []*Row { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Symbols returns the symbols in row order.
func (t *Table) Symbols() []string {
	syms := make([]string, len(t.rows))
	for i, row := range t.rows {
		syms[i] = row.Symbol
	}
	return syms
}

// SetFlag sets a classification flag on one row. The column is appended to
// the flag-column order the first time it is seen.
func (t *Table) SetFlag(symbol, column, value string) {
	row := t.index[symbol]
	if row == nil {
		return
	}
	if _, known := t.flagColumn(column); !known {
		t.flagCols = append(t.flagCols, column)
	}
	row.flags[column] = value
}

// FlagColumns returns the flag columns in output order.
func (t *Table) FlagColumns() []string {
	return append([]string(nil), t.flagCols...)
}

// MoveColumnLast moves an existing flag column to the end of the column
// order. This is a cosmetic reorder only; no row data changes.
func (t *Table) MoveColumnLast(column string) {
	i, ok := t.flagColumn(column)
	if !ok {
		return
	}
	t.flagCols = append(append(t.flagCols[:i:i], t.flagCols[i+1:]...), column)
}

func (t *Table) flagColumn(column string) (int, bool) {
	for i, c := range t.flagCols {
		if c == column {
			return i, true
		}
	}
	return 0, false
}

// Header returns the full CSV header: identity columns then flag columns.
func (t *Table) Header() []string {
	return append(append([]string(nil), baseColumns...), t.flagCols...)
}

// WriteCSV writes the table as comma-delimited UTF-8 with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.rows {
		values := []string{
			row.Symbol,
			row.EnsemblID,
			row.EntrezID,
			row.UniprotID,
			row.NomenclatureID,
			row.Alias,
			row.Description,
			row.Source,
		}
		for _, col := range t.flagCols {
			values = append(values, row.flags[col])
		}
		if err := cw.Write(values); err != nil {
			return fmt.Errorf("write row %s: %w", row.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadCSV reads a table previously written by WriteCSV. Columns are addressed
// by header name; unknown header columns are loaded as flag columns so that
// enrichment output survives a round trip.
func LoadCSV(r io.Reader, species, collection string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["symbol"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "symbol")
	}

	base := make(map[string]bool, len(baseColumns))
	for _, c := range baseColumns {
		base[c] = true
	}
	var flagCols []string
	for _, name := range header {
		if !base[name] {
			flagCols = append(flagCols, name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	t := NewTable(species, collection)
	t.flagCols = flagCols
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		symbol := field(rec, "symbol")
		if symbol == "" {
			continue
		}
		row := t.Add(Record{
			Symbol:         symbol,
			EnsemblID:      field(rec, "ensembl_gene_id"),
			EntrezID:       field(rec, "entrez_id"),
			UniprotID:      field(rec, "uniprot_id"),
			NomenclatureID: field(rec, "nomenclature_id"),
			Description:    field(rec, "description"),
			Source:         field(rec, "source"),
		})
		row.Alias = field(rec, "alias_symbol")
		for _, fc := range flagCols {
			if v := field(rec, fc); v != "" {
				row.flags[fc] = v
			}
		}
	}
	return t, nil
}
