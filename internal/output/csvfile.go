// Package output writes the curated tables and their checksum sidecars.
package output

import (
	"fmt"
	"os"

	"github.com/inodb/genesets/internal/gene"
)

// WriteTable writes a gene-set table as CSV and its checksum sidecar. Any
// filesystem failure is fatal to the caller's stage; the sidecar is written
// immediately after the table so the pair never drifts apart.
func WriteTable(t *gene.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return WriteChecksum(path)
}

// LoadTable reads back a previously written table.
func LoadTable(path, species, collection string) (*gene.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := gene.LoadCSV(f, species, collection)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}
