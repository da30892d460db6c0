// Package store persists reconciled gene-set tables in DuckDB so that
// enrichment and report stages can reload them without re-fetching.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/genesets/internal/gene"
)

// Store manages a DuckDB connection for the gene-set catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an empty
// string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the catalog table if it doesn't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gene_sets (
		collection VARCHAR,
		species VARCHAR,
		symbol VARCHAR,
		ensembl_gene_id VARCHAR,
		entrez_id VARCHAR,
		uniprot_id VARCHAR,
		nomenclature_id VARCHAR,
		alias_symbol VARCHAR,
		description VARCHAR,
		source VARCHAR,
		PRIMARY KEY (collection, species, symbol)
	)`)
	return err
}

// SaveTable replaces the stored rows for the table's collection and species.
func (s *Store) SaveTable(t *gene.Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM gene_sets WHERE collection = ? AND species = ?`,
		t.Collection, t.Species); err != nil {
		return fmt.Errorf("clear previous rows: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO gene_sets VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows() {
		if _, err := stmt.Exec(t.Collection, t.Species, row.Symbol,
			row.EnsemblID, row.EntrezID, row.UniprotID, row.NomenclatureID,
			row.Alias, row.Description, row.Source); err != nil {
			return fmt.Errorf("insert %s: %w", row.Symbol, err)
		}
	}
	return tx.Commit()
}

// LoadTable reads one collection back, in stored row order.
func (s *Store) LoadTable(collection, species string) (*gene.Table, error) {
	rows, err := s.db.Query(`SELECT symbol, ensembl_gene_id, entrez_id, uniprot_id,
		nomenclature_id, alias_symbol, description, source
		FROM gene_sets WHERE collection = ? AND species = ? ORDER BY rowid`,
		collection, species)
	if err != nil {
		return nil, fmt.Errorf("query gene_sets: %w", err)
	}
	defer rows.Close()

	t := gene.NewTable(species, collection)
	for rows.Next() {
		var rec gene.Record
		var alias string
		if err := rows.Scan(&rec.Symbol, &rec.EnsemblID, &rec.EntrezID, &rec.UniprotID,
			&rec.NomenclatureID, &alias, &rec.Description, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t.Add(rec).Alias = alias
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}

// CollectionSummary is one line of the report stage.
type CollectionSummary struct {
	Collection string
	Species    string
	Genes      int
	WithStable int // rows carrying a stable gene ID
}

// Collections summarizes every stored collection.
func (s *Store) Collections() ([]CollectionSummary, error) {
	rows, err := s.db.Query(`SELECT collection, species, COUNT(*),
		COUNT(*) FILTER (WHERE ensembl_gene_id <> '')
		FROM gene_sets GROUP BY collection, species ORDER BY collection, species`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []CollectionSummary
	for rows.Next() {
		var cs CollectionSummary
		if err := rows.Scan(&cs.Collection, &cs.Species, &cs.Genes, &cs.WithStable); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
