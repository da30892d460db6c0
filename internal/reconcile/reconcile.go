// Package reconcile collapses per-source gene observations into one record
// per symbol, using a deterministic completeness-first priority rule.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/inodb/genesets/internal/gene"
)

// Result holds the reconciled records plus bookkeeping counts for the
// per-stage summary line.
type Result struct {
	Records   []gene.Record
	Seen      int // raw records offered
	Malformed int // dropped for missing symbol
	Ambiguous int // symbols with conflicting stable gene IDs
}

// Reconciler merges records referring to the same symbol across any number
// of source passes. Records must be added in a fixed, documented source
// order; the first-seen tie-break makes the output deterministic only under
// that condition.
type Reconciler struct {
	order  []string
	groups map[string][]gene.Record
	seen   int
	bad    int
	logger *zap.Logger
}

// New creates an empty Reconciler.
func New() *Reconciler {
	return &Reconciler{
		groups: make(map[string][]gene.Record),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for ambiguous-mapping warnings.
func (r *Reconciler) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Add offers raw records to the reconciler. Records without a symbol are
// dropped and counted; everything else is grouped for resolution.
func (r *Reconciler) Add(records ...gene.Record) {
	for _, rec := range records {
		r.seen++
		if rec.Symbol == "" {
			r.bad++
			continue
		}
		rec.FillNomenclatureID()
		if _, ok := r.groups[rec.Symbol]; !ok {
			r.order = append(r.order, rec.Symbol)
		}
		r.groups[rec.Symbol] = append(r.groups[rec.Symbol], rec)
	}
}

// Resolve picks one record per symbol. Within a symbol group the candidate
// with the most populated cross-reference IDs wins; equally complete
// candidates fall back to first-seen order. Conflicting stable gene IDs keep
// the winner's value; the losing value is discarded, never merged.
func (r *Reconciler) Resolve() Result {
	res := Result{Seen: r.seen, Malformed: r.bad}
	for _, symbol := range r.order {
		group := r.groups[symbol]
		winner := group[0]
		for _, cand := range group[1:] {
			if cand.Completeness() > winner.Completeness() {
				winner = cand
			}
		}
		for _, cand := range group {
			if cand.EnsemblID != "" && winner.EnsemblID != "" && cand.EnsemblID != winner.EnsemblID {
				res.Ambiguous++
				r.logger.Warn("conflicting stable gene IDs for symbol",
					zap.String("symbol", symbol),
					zap.String("kept", winner.EnsemblID),
					zap.String("discarded", cand.EnsemblID),
					zap.String("source", cand.Source))
				break
			}
		}
		res.Records = append(res.Records, winner)
	}
	return res
}

// PreferStable merges the results of two independent lookup passes for the
// same field: the stable-ID-keyed value wins when non-empty, else the
// symbol-keyed value, else empty. Downstream consumers assume this exact
// precedence.
func PreferStable(byStableID, bySymbol string) string {
	if byStableID != "" {
		return byStableID
	}
	return bySymbol
}
