// Package pipeline defines the numbered curation stages and the runner that
// sequences them.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/genesets/internal/fetch"
	"github.com/inodb/genesets/internal/gmt"
	"github.com/inodb/genesets/internal/store"
)

// Collection is one curated gene family and its upstream query handles.
type Collection struct {
	Name         string   // table/file name, e.g. "kinases"
	SetName      string   // exported gene-set name, e.g. "KINASES_ALL"
	KEGGCategory string   // BRITE hierarchy number, "" when KEGG has none
	HGNCGroups   []string // nomenclature-registry group names (human only)
}

// Collections lists the gene families the pipeline curates, in build order.
var Collections = []Collection{
	{
		Name:         "kinases",
		SetName:      "KINASES_ALL",
		KEGGCategory: "01001",
		HGNCGroups:   []string{"Protein kinases"},
	},
	{
		Name:         "phosphatases",
		SetName:      "PHOSPHATASES_ALL",
		KEGGCategory: "01009",
		HGNCGroups:   []string{"Protein phosphatases"},
	},
	{
		Name:       "tf",
		SetName:    "TF_ALL",
		HGNCGroups: []string{"Transcription factors"},
	},
}

// MatrixSource yields published gene-set matrices, degrading to empty on
// failure.
type MatrixSource interface {
	Sets(ctx context.Context, collection, species string) []gmt.Set
}

// Env carries everything a stage needs. Clients are interfaces so tests can
// substitute stubs.
type Env struct {
	Species     string
	OutputDir   string
	SeedPath    string // curated seed symbol list, essential input
	RegistryDir string // classification registry TSVs

	BioMart fetch.Source
	KEGG    fetch.Source
	HGNC    fetch.Source
	MSigDB  MatrixSource

	Store  *store.Store
	Logger *zap.Logger
}

// TablePath returns the CSV path for one collection's table.
func (e *Env) TablePath(c Collection) string {
	return filepath.Join(e.OutputDir, fmt.Sprintf("%s_%s.csv", c.Name, e.Species))
}

// MatrixPath returns the GMT path for one collection.
func (e *Env) MatrixPath(c Collection) string {
	return filepath.Join(e.OutputDir, fmt.Sprintf("%s_%s.gmt", c.Name, e.Species))
}

// CombinedMatrixPath returns the path of the merged all-collections GMT.
func (e *Env) CombinedMatrixPath() string {
	return filepath.Join(e.OutputDir, fmt.Sprintf("combined_%s.gmt", e.Species))
}

// Summary is the one-line accounting a stage reports when it finishes.
type Summary struct {
	Fetched  int
	Retained int
	Flagged  int
}

// Stage is one numbered pipeline step.
type Stage struct {
	Num  int
	Name string
	// Outputs lists the files the stage writes; the runner skips the stage
	// when all of them already exist, unless forced.
	Outputs func(e *Env) []string
	Run     func(ctx context.Context, e *Env) (Summary, error)
}

// Stages returns the pipeline in numeric order.
func Stages() []Stage {
	return []Stage{
		{Num: 1, Name: "seed", Outputs: seedOutputs, Run: runSeed},
		{Num: 2, Name: "annotate", Outputs: annotateOutputs, Run: runAnnotate},
		{Num: 3, Name: "pathway", Outputs: noOutputs, Run: runPathway},
		{Num: 4, Name: "groups", Outputs: noOutputs, Run: runGroups},
		{Num: 5, Name: "enrich", Outputs: noOutputs, Run: runEnrich},
		{Num: 6, Name: "export", Outputs: exportOutputs, Run: runExport},
	}
}

// StageByName finds a stage by its name.
func StageByName(name string) (Stage, bool) {
	for _, s := range Stages() {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// noOutputs marks stages that rewrite existing tables in place; they always
// run (idempotence makes that safe).
func noOutputs(*Env) []string { return nil }
