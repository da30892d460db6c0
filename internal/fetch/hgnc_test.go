package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hgncBody = `{
  "response": {
    "numFound": 2,
    "docs": [
      {
        "symbol": "ABL1",
        "name": "ABL proto-oncogene 1, non-receptor tyrosine kinase",
        "hgnc_id": "HGNC:76",
        "ensembl_gene_id": "ENSG00000097007",
        "entrez_id": "25",
        "uniprot_ids": ["P00519"],
        "alias_symbol": ["JTK7"]
      },
      {
        "symbol": "SRC",
        "name": "SRC proto-oncogene",
        "hgnc_id": "HGNC:11283",
        "ensembl_gene_id": "ENSG00000197122",
        "entrez_id": "6714"
      }
    ]
  }
}`

func TestHGNCFetchGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/fetch/gene_group/Protein%20kinases", r.URL.EscapedPath())
		fmt.Fprint(w, hgncBody)
	}))
	defer srv.Close()

	c := NewHGNCClient(nil)
	c.SetBaseURL(srv.URL)

	recs, err := c.Fetch(context.Background(), Query{Species: "human", Group: "Protein kinases"})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	abl := recs[0]
	assert.Equal(t, "ABL1", abl.Symbol)
	assert.Equal(t, "HGNC:76", abl.NomenclatureID)
	assert.Equal(t, "ENSG00000097007", abl.EnsemblID)
	assert.Equal(t, "25", abl.EntrezID)
	assert.Equal(t, "P00519", abl.UniprotID)
	assert.Equal(t, "hgnc", abl.Source)

	src := recs[1]
	assert.Equal(t, "SRC", src.Symbol)
	assert.Empty(t, src.UniprotID)
}

func TestHGNCFetchUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, hgncBody)
	}))
	defer srv.Close()

	c := NewHGNCClient(MemCache{})
	c.SetBaseURL(srv.URL)

	q := Query{Species: "human", Group: "Protein kinases"}
	first, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestHGNCFetchHumanOnly(t *testing.T) {
	c := NewHGNCClient(nil)
	_, err := c.Fetch(context.Background(), Query{Species: "mouse", Group: "Protein kinases"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
}

func TestHGNCFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHGNCClient(nil)
	c.SetBaseURL(srv.URL)
	_, err := c.Fetch(context.Background(), Query{Species: "human", Group: "Protein kinases"})
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestHGNCFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	c := NewHGNCClient(nil)
	c.SetBaseURL(srv.URL)
	_, err := c.Fetch(context.Background(), Query{Species: "human", Group: "Protein kinases"})
	require.ErrorIs(t, err, ErrSourceUnavailable)
}
