package gene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAccession(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "mgi accession",
			description: "ABL proto-oncogene 1 [Source:MGI Symbol;Acc:MGI:87859]",
			want:        "MGI:87859",
		},
		{
			name:        "hgnc accession",
			description: "bromodomain containing 4 [Source:HGNC Symbol;Acc:HGNC:13575]",
			want:        "HGNC:13575",
		},
		{
			name:        "no bracket token",
			description: "uncharacterized protein",
			want:        "",
		},
		{
			name:        "empty description",
			description: "",
			want:        "",
		},
		{
			name:        "bracket without accession",
			description: "some gene [pseudogene]",
			want:        "",
		},
		{
			name:        "unterminated bracket",
			description: "some gene [Source:MGI Symbol;Acc:MGI:12345",
			want:        "",
		},
		{
			name:        "token mid-description",
			description: "kinase [Source:MGI Symbol;Acc:MGI:99999] see also other names",
			want:        "MGI:99999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAccession(tt.description))
		})
	}
}

func TestFillNomenclatureID(t *testing.T) {
	r := Record{
		Symbol:      "Abl1",
		Description: "ABL proto-oncogene 1 [Source:MGI Symbol;Acc:MGI:87859]",
	}
	r.FillNomenclatureID()
	assert.Equal(t, "MGI:87859", r.NomenclatureID)

	// An already-populated field is never overwritten.
	r2 := Record{
		Symbol:         "Abl1",
		NomenclatureID: "MGI:1",
		Description:    "[Source:MGI Symbol;Acc:MGI:2]",
	}
	r2.FillNomenclatureID()
	assert.Equal(t, "MGI:1", r2.NomenclatureID)
}

func TestCompleteness(t *testing.T) {
	assert.Equal(t, 0, (&Record{Symbol: "Src"}).Completeness())
	assert.Equal(t, 2, (&Record{Symbol: "Src", EnsemblID: "ENSG1", EntrezID: "6714"}).Completeness())
	assert.Equal(t, 4, (&Record{
		Symbol:         "Src",
		EnsemblID:      "ENSG1",
		EntrezID:       "6714",
		UniprotID:      "P12931",
		NomenclatureID: "HGNC:11283",
	}).Completeness())

	// Description and source do not count toward completeness.
	assert.Equal(t, 0, (&Record{Symbol: "Src", Description: "x", Source: "y"}).Completeness())
}
