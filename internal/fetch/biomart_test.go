package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const martBody = "ENSMUSG00000026842\tAbl1\t11350\tP00520\t" +
	"ABL proto-oncogene 1 [Source:MGI Symbol;Acc:MGI:87859]\tMGI:87859\n" +
	"ENSMUSG00000027646\tSrc\t20779\t\tSRC kinase\t\n"

func TestBioMartFetchBySymbol(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.Form.Get("query")
		w.Write([]byte(martBody))
	}))
	defer srv.Close()

	c := NewBioMartClient(nil)
	c.SetBaseURL(srv.URL)

	recs, err := c.Fetch(context.Background(), Query{
		Species: "mouse",
		Symbols: []string{"Abl1", "Src"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Contains(t, gotQuery, `name="mmusculus_gene_ensembl"`)
	assert.Contains(t, gotQuery, `name="external_gene_name" value="Abl1,Src"`)
	assert.Contains(t, gotQuery, `name="mgi_id"`)

	abl := recs[0]
	assert.Equal(t, "Abl1", abl.Symbol)
	assert.Equal(t, "ENSMUSG00000026842", abl.EnsemblID)
	assert.Equal(t, "11350", abl.EntrezID)
	assert.Equal(t, "P00520", abl.UniprotID)
	assert.Equal(t, "MGI:87859", abl.NomenclatureID)
	assert.Equal(t, "biomart", abl.Source)

	src := recs[1]
	assert.Equal(t, "Src", src.Symbol)
	assert.Empty(t, src.UniprotID)
	assert.Empty(t, src.NomenclatureID)
}

func TestBioMartFetchByStableID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("query"), `name="ensembl_gene_id" value="ENSG1"`)
		assert.Contains(t, r.Form.Get("query"), `name="hgnc_id"`)
		w.Write([]byte("ENSG1\tABL1\t25\tP00519\tdesc\tHGNC:76\n"))
	}))
	defer srv.Close()

	c := NewBioMartClient(nil)
	c.SetBaseURL(srv.URL)

	recs, err := c.Fetch(context.Background(), Query{Species: "human", IDs: []string{"ENSG1"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "HGNC:76", recs[0].NomenclatureID)
}

func TestBioMartFetchUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(martBody))
	}))
	defer srv.Close()

	c := NewBioMartClient(MemCache{})
	c.SetBaseURL(srv.URL)

	q := Query{Species: "mouse", Symbols: []string{"Abl1", "Src"}}
	_, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestBioMartFetchErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := NewBioMartClient(nil)
		c.SetBaseURL(srv.URL)
		_, err := c.Fetch(context.Background(), Query{Species: "human", Symbols: []string{"ABL1"}})
		require.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("mart error body", func(t *testing.T) {
		// Mart reports query errors with a 200 status.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Query ERROR: caught BioMart::Exception\n"))
		}))
		defer srv.Close()

		c := NewBioMartClient(nil)
		c.SetBaseURL(srv.URL)
		_, err := c.Fetch(context.Background(), Query{Species: "human", Symbols: []string{"ABL1"}})
		require.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("unreachable host", func(t *testing.T) {
		c := NewBioMartClient(nil)
		c.SetBaseURL("http://127.0.0.1:1")
		_, err := c.Fetch(context.Background(), Query{Species: "human", Symbols: []string{"ABL1"}})
		require.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("bad species", func(t *testing.T) {
		c := NewBioMartClient(nil)
		_, err := c.Fetch(context.Background(), Query{Species: "rat", Symbols: []string{"Abl1"}})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("empty query", func(t *testing.T) {
		c := NewBioMartClient(nil)
		_, err := c.Fetch(context.Background(), Query{Species: "human"})
		require.Error(t, err)
	})
}
