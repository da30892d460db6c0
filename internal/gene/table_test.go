package gene

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := NewTable("mouse", "kinases")
	row := t.Add(Record{
		Symbol:         "Abl1",
		EnsemblID:      "ENSMUSG00000026842",
		EntrezID:       "11350",
		UniprotID:      "P00520",
		NomenclatureID: "MGI:87859",
		Description:    "ABL proto-oncogene 1",
		Source:         "biomart",
	})
	row.Alias = "ABL1"
	t.Add(Record{Symbol: "Src", Source: "seed"})
	return t
}

func TestTableAddReplacesInPlace(t *testing.T) {
	tbl := sampleTable()
	tbl.SetFlag("Abl1", "metabolic", "N")

	tbl.Add(Record{Symbol: "Abl1", EnsemblID: "ENSMUSG00000026842", Source: "kegg"})

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"Abl1", "Src"}, tbl.Symbols())
	assert.Equal(t, "kegg", tbl.Get("Abl1").Source)
	// Flags survive a record replacement.
	assert.Equal(t, "N", tbl.Get("Abl1").Flag("metabolic"))
}

func TestTableFlagColumnOrder(t *testing.T) {
	tbl := sampleTable()
	tbl.SetFlag("Abl1", "metabolic", "Y")
	tbl.SetFlag("Src", "metabolic", "N")
	tbl.SetFlag("Abl1", "lipid", "N")

	assert.Equal(t, []string{"metabolic", "lipid"}, tbl.FlagColumns())

	tbl.MoveColumnLast("metabolic")
	assert.Equal(t, []string{"lipid", "metabolic"}, tbl.FlagColumns())

	// Moving is cosmetic only.
	assert.Equal(t, "Y", tbl.Get("Abl1").Flag("metabolic"))
	assert.Equal(t, "N", tbl.Get("Abl1").Flag("lipid"))

	// Unknown column is a no-op.
	tbl.MoveColumnLast("nope")
	assert.Equal(t, []string{"lipid", "metabolic"}, tbl.FlagColumns())
}

func TestTableCSVRoundTrip(t *testing.T) {
	tbl := sampleTable()
	tbl.SetFlag("Abl1", "metabolic", "Y")
	tbl.SetFlag("Src", "metabolic", "N")

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	loaded, err := LoadCSV(bytes.NewReader(buf.Bytes()), "mouse", "kinases")
	require.NoError(t, err)

	require.Equal(t, tbl.Len(), loaded.Len())
	assert.Equal(t, tbl.Symbols(), loaded.Symbols())
	assert.Equal(t, []string{"metabolic"}, loaded.FlagColumns())

	abl := loaded.Get("Abl1")
	require.NotNil(t, abl)
	assert.Equal(t, "ENSMUSG00000026842", abl.EnsemblID)
	assert.Equal(t, "MGI:87859", abl.NomenclatureID)
	assert.Equal(t, "ABL1", abl.Alias)
	assert.Equal(t, "Y", abl.Flag("metabolic"))
	assert.Equal(t, "N", loaded.Get("Src").Flag("metabolic"))
}

func TestLoadCSVMissingSymbolColumn(t *testing.T) {
	_, err := LoadCSV(bytes.NewReader([]byte("a,b\n1,2\n")), "human", "tf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")
}

func TestLoadCSVSkipsBlankSymbols(t *testing.T) {
	csv := "symbol,ensembl_gene_id\nSrc,ENSG1\n,ENSG2\n"
	tbl, err := LoadCSV(bytes.NewReader([]byte(csv)), "human", "kinases")
	require.NoError(t, err)
	assert.Equal(t, []string{"Src"}, tbl.Symbols())
}
