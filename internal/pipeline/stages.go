package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/genesets/internal/enrich"
	"github.com/inodb/genesets/internal/fetch"
	"github.com/inodb/genesets/internal/gene"
	"github.com/inodb/genesets/internal/gmt"
	"github.com/inodb/genesets/internal/output"
	"github.com/inodb/genesets/internal/reconcile"
)

// seedEntry is one row of the curated seed list.
type seedEntry struct {
	Symbol string
	Alias  string
}

func seedListPath(e *Env, c Collection) string {
	return filepath.Join(e.OutputDir, fmt.Sprintf("seed_%s_%s.tsv", c.Name, e.Species))
}

func seedOutputs(e *Env) []string {
	var out []string
	for _, c := range Collections {
		out = append(out, seedListPath(e, c))
	}
	return out
}

// runSeed validates the curated seed CSV and splits it into per-collection
// symbol lists. The seed list is essential input, so any failure here is
// fatal to the whole run.
func runSeed(_ context.Context, e *Env) (Summary, error) {
	f, err := os.Open(e.SeedPath)
	if err != nil {
		return Summary{}, fmt.Errorf("open seed list: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read seed header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"collection", "symbol"} {
		if _, ok := col[required]; !ok {
			return Summary{}, fmt.Errorf("seed list: missing %q column", required)
		}
	}

	bycoll := make(map[string][]seedEntry)
	sum := Summary{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("read seed row: %w", err)
		}
		sum.Fetched++
		symbol := strings.TrimSpace(rec[col["symbol"]])
		if symbol == "" {
			continue
		}
		entry := seedEntry{Symbol: symbol}
		if i, ok := col["alias"]; ok && i < len(rec) {
			entry.Alias = strings.TrimSpace(rec[i])
		}
		name := strings.TrimSpace(rec[col["collection"]])
		bycoll[name] = append(bycoll[name], entry)
		sum.Retained++
	}

	for _, c := range Collections {
		entries := bycoll[c.Name]
		if len(entries) == 0 {
			return Summary{}, fmt.Errorf("seed list: no entries for collection %q", c.Name)
		}
		if err := writeSeedList(seedListPath(e, c), entries); err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}

func writeSeedList(path string, entries []seedEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\n", entry.Symbol, entry.Alias)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func loadSeedList(path string) ([]seedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var entries []seedEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbol, alias, _ := strings.Cut(scanner.Text(), "\t")
		if symbol == "" {
			continue
		}
		entries = append(entries, seedEntry{Symbol: symbol, Alias: alias})
	}
	return entries, scanner.Err()
}

func annotateOutputs(e *Env) []string {
	var out []string
	for _, c := range Collections {
		out = append(out, e.TablePath(c))
	}
	return out
}

// runAnnotate cross-references every seed symbol through two BioMart passes
// and reconciles the results into one table per collection. BioMart is
// essential here: a failed fetch aborts the stage.
func runAnnotate(ctx context.Context, e *Env) (Summary, error) {
	sum := Summary{}
	for _, c := range Collections {
		entries, err := loadSeedList(seedListPath(e, c))
		if err != nil {
			return sum, err
		}
		symbols := make([]string, len(entries))
		for i, entry := range entries {
			symbols[i] = entry.Symbol
		}

		// Pass 1: lookup by symbol.
		bySymbol, err := e.BioMart.Fetch(ctx, fetch.Query{Species: e.Species, Symbols: symbols})
		if err != nil {
			return sum, fmt.Errorf("collection %s: symbol lookup: %w", c.Name, err)
		}
		sum.Fetched += len(bySymbol)

		// Pass 2: re-lookup by the stable gene IDs pass 1 found.
		var ids []string
		for _, rec := range bySymbol {
			if rec.EnsemblID != "" {
				ids = append(ids, rec.EnsemblID)
			}
		}
		var byID []gene.Record
		if len(ids) > 0 {
			byID, err = e.BioMart.Fetch(ctx, fetch.Query{Species: e.Species, IDs: ids})
			if err != nil {
				return sum, fmt.Errorf("collection %s: stable-ID lookup: %w", c.Name, err)
			}
			sum.Fetched += len(byID)
		}

		merged := mergePasses(byID, bySymbol)

		r := reconcile.New()
		r.SetLogger(e.Logger)
		for _, entry := range entries {
			r.Add(gene.Record{Symbol: entry.Symbol, Source: "seed"})
		}
		r.Add(merged...)
		res := r.Resolve()

		t := gene.NewTable(e.Species, c.Name)
		aliases := aliasMap(entries)
		for _, rec := range res.Records {
			t.Add(rec).Alias = aliases[rec.Symbol]
		}
		sum.Retained += t.Len()

		if err := writeTable(e, t, c); err != nil {
			return sum, err
		}
		e.Logger.Info("annotated collection",
			zap.String("collection", c.Name),
			zap.Int("genes", t.Len()),
			zap.Int("ambiguous", res.Ambiguous),
			zap.Int("malformed", res.Malformed))
	}
	return sum, nil
}

// mergePasses combines the stable-ID-keyed and symbol-keyed lookup passes
// field by field, preferring the stable-ID-keyed value.
func mergePasses(byID, bySymbol []gene.Record) []gene.Record {
	idPass := make(map[string]gene.Record, len(byID))
	for _, rec := range byID {
		if _, ok := idPass[rec.Symbol]; !ok {
			idPass[rec.Symbol] = rec
		}
	}

	var out []gene.Record
	seen := make(map[string]bool)
	for _, sym := range append(recordSymbols(byID), recordSymbols(bySymbol)...) {
		if seen[sym] {
			continue
		}
		seen[sym] = true

		a := idPass[sym]
		var b gene.Record
		for _, rec := range bySymbol {
			if rec.Symbol == sym {
				b = rec
				break
			}
		}
		out = append(out, gene.Record{
			Symbol:         sym,
			EnsemblID:      reconcile.PreferStable(a.EnsemblID, b.EnsemblID),
			EntrezID:       reconcile.PreferStable(a.EntrezID, b.EntrezID),
			UniprotID:      reconcile.PreferStable(a.UniprotID, b.UniprotID),
			NomenclatureID: reconcile.PreferStable(a.NomenclatureID, b.NomenclatureID),
			Description:    reconcile.PreferStable(a.Description, b.Description),
			Source:         "biomart",
		})
	}
	return out
}

func recordSymbols(recs []gene.Record) []string {
	syms := make([]string, 0, len(recs))
	for _, rec := range recs {
		if rec.Symbol != "" {
			syms = append(syms, rec.Symbol)
		}
	}
	return syms
}

func aliasMap(entries []seedEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Alias != "" {
			m[entry.Symbol] = entry.Alias
		}
	}
	return m
}

// runPathway merges the KEGG BRITE category members into each collection's
// table. KEGG is non-essential: an unavailable source logs a warning and the
// stage proceeds with what it has.
func runPathway(ctx context.Context, e *Env) (Summary, error) {
	sum := Summary{}
	for _, c := range Collections {
		if c.KEGGCategory == "" {
			continue
		}
		recs, err := e.KEGG.Fetch(ctx, fetch.Query{Species: e.Species, Category: c.KEGGCategory})
		if err != nil {
			if errors.Is(err, fetch.ErrSourceUnavailable) {
				e.Logger.Warn("pathway source unavailable, keeping existing table",
					zap.String("collection", c.Name), zap.Error(err))
				continue
			}
			return sum, fmt.Errorf("collection %s: %w", c.Name, err)
		}
		sum.Fetched += len(recs)

		n, err := mergeIntoTable(e, c, recs)
		if err != nil {
			return sum, err
		}
		sum.Retained += n
	}
	return sum, nil
}

// runGroups merges nomenclature-registry gene groups into each table. The
// registry covers human only; for other species this stage is a no-op. Like
// the pathway stage it degrades gracefully when the source is down.
func runGroups(ctx context.Context, e *Env) (Summary, error) {
	sum := Summary{}
	if e.Species != "human" {
		e.Logger.Info("nomenclature groups only cover human, skipping",
			zap.String("species", e.Species))
		return sum, nil
	}
	for _, c := range Collections {
		for _, group := range c.HGNCGroups {
			recs, err := e.HGNC.Fetch(ctx, fetch.Query{Species: e.Species, Group: group})
			if err != nil {
				if errors.Is(err, fetch.ErrSourceUnavailable) {
					e.Logger.Warn("group source unavailable, keeping existing table",
						zap.String("collection", c.Name),
						zap.String("group", group), zap.Error(err))
					continue
				}
				return sum, fmt.Errorf("collection %s group %q: %w", c.Name, group, err)
			}
			sum.Fetched += len(recs)

			n, err := mergeIntoTable(e, c, recs)
			if err != nil {
				return sum, err
			}
			sum.Retained += n
		}
	}
	return sum, nil
}

// mergeIntoTable folds new source records into a collection's existing table.
// Existing rows are offered to the reconciler first so that priority order
// favors what earlier stages established.
func mergeIntoTable(e *Env, c Collection, recs []gene.Record) (int, error) {
	t, err := output.LoadTable(e.TablePath(c), e.Species, c.Name)
	if err != nil {
		return 0, err
	}

	r := reconcile.New()
	r.SetLogger(e.Logger)
	for _, row := range t.Rows() {
		r.Add(row.Record)
	}
	r.Add(recs...)
	res := r.Resolve()

	merged := gene.NewTable(e.Species, c.Name)
	for _, rec := range res.Records {
		row := merged.Add(rec)
		if old := t.Get(rec.Symbol); old != nil {
			row.Alias = old.Alias
		}
	}
	if res.Ambiguous > 0 {
		e.Logger.Warn("ambiguous mappings resolved by source priority",
			zap.String("collection", c.Name), zap.Int("count", res.Ambiguous))
	}
	if err := writeTable(e, merged, c); err != nil {
		return 0, err
	}
	return merged.Len(), nil
}

// Registry files consumed by the enrichment stage. Registries are numeric-ID
// to symbol tables exported from the gene-indexing database.
const (
	metabolicRegistry = "metabolic_genes.tsv"
	lipidRegistry     = "lipid_phosphatases.tsv"
)

// runEnrich recomputes the classification flag columns on every table from
// the registry TSVs. Re-running yields identical flags; rows are never added
// or removed. Flag columns are then moved to the end of the column order so
// the output layout stays stable across versions.
func runEnrich(_ context.Context, e *Env) (Summary, error) {
	sum := Summary{}

	metabolic, err := enrich.LoadRegistry(
		filepath.Join(e.RegistryDir, metabolicRegistry), "entrez_id", "symbol")
	if err != nil {
		return sum, fmt.Errorf("metabolic registry: %w", err)
	}
	lipid, err := enrich.LoadRegistry(
		filepath.Join(e.RegistryDir, lipidRegistry), "entrez_id", "symbol")
	if err != nil {
		return sum, fmt.Errorf("lipid registry: %w", err)
	}

	for _, c := range Collections {
		t, err := output.LoadTable(e.TablePath(c), e.Species, c.Name)
		if err != nil {
			return sum, err
		}

		sum.Flagged += enrich.Classifier{Column: "metabolic", Reference: metabolic}.Apply(t)
		t.MoveColumnLast("metabolic")
		if c.Name == "phosphatases" {
			sum.Flagged += enrich.Classifier{Column: "lipid", Reference: lipid}.Apply(t)
			t.MoveColumnLast("lipid")
		}
		sum.Retained += t.Len()

		if err := writeTable(e, t, c); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func exportOutputs(e *Env) []string {
	out := []string{e.CombinedMatrixPath()}
	for _, c := range Collections {
		out = append(out, e.MatrixPath(c))
	}
	return out
}

// runExport writes one gene-set matrix per collection plus the combined
// matrix merging every collection with the published hallmark sets (when the
// bulk download is reachable).
func runExport(ctx context.Context, e *Env) (Summary, error) {
	sum := Summary{}
	var all []gmt.Set
	for _, c := range Collections {
		t, err := output.LoadTable(e.TablePath(c), e.Species, c.Name)
		if err != nil {
			return sum, err
		}
		set := gmt.Set{
			Name:        c.SetName,
			Description: fmt.Sprintf("curated %s (%s)", c.Name, e.Species),
			Members:     t.Symbols(),
		}
		sum.Retained += len(set.Members)

		if err := writeMatrix(e.MatrixPath(c), []gmt.Set{set}); err != nil {
			return sum, err
		}
		all = append(all, set)
	}

	hallmark := e.MSigDB.Sets(ctx, "h.all", e.Species)
	sum.Fetched += len(hallmark)

	combined, err := gmt.Merge(all, hallmark)
	if err != nil {
		return sum, err
	}
	return sum, writeMatrix(e.CombinedMatrixPath(), combined)
}

func writeMatrix(path string, sets []gmt.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := gmt.Write(f, sets); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return output.WriteChecksum(path)
}

// writeTable writes a table's CSV plus checksum and mirrors it into the
// catalog store when one is attached.
func writeTable(e *Env, t *gene.Table, c Collection) error {
	if err := output.WriteTable(t, e.TablePath(c)); err != nil {
		return err
	}
	if e.Store != nil {
		if err := e.Store.SaveTable(t); err != nil {
			return fmt.Errorf("store %s: %w", c.Name, err)
		}
	}
	return nil
}
