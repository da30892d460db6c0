package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inodb/genesets/internal/gene"
)

// BioMartClient queries the Ensembl BioMart service for gene cross-references.
// Queries are XML documents posted to the mart endpoint; results come back as
// tab-separated rows with one column per requested attribute.
type BioMartClient struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

const biomartBaseURL = "https://www.ensembl.org/biomart/martservice"

// Attribute order in the result rows. The response has no header, so the
// query and the parser must agree on this order.
var biomartAttributes = []string{
	"ensembl_gene_id",
	"external_gene_name",
	"entrezgene_id",
	"uniprotswissprot",
	"description",
}

// NewBioMartClient creates a client with the default endpoint and timeout.
// cache may be nil to disable caching.
func NewBioMartClient(cache Cache) *BioMartClient {
	return &BioMartClient{
		baseURL:    biomartBaseURL,
		httpClient: newHTTPClient(),
		cache:      cache,
	}
}

// SetBaseURL overrides the mart endpoint, for tests.
func (c *BioMartClient) SetBaseURL(u string) { c.baseURL = u }

// Name implements Source.
func (c *BioMartClient) Name() string { return "biomart" }

// dataset returns the BioMart dataset name for a species.
func dataset(species string) (string, error) {
	switch species {
	case "human":
		return "hsapiens_gene_ensembl", nil
	case "mouse":
		return "mmusculus_gene_ensembl", nil
	default:
		return "", fmt.Errorf("unsupported species %q", species)
	}
}

// nomenclatureAttribute returns the naming-authority ID attribute: MGI for
// mouse, HGNC for human.
func nomenclatureAttribute(species string) string {
	if species == "mouse" {
		return "mgi_id"
	}
	return "hgnc_id"
}

// Fetch runs one identifier-list lookup. Query.IDs selects the
// lookup-by-stable-gene-ID pass, Query.Symbols the lookup-by-symbol pass.
func (c *BioMartClient) Fetch(ctx context.Context, q Query) ([]gene.Record, error) {
	ds, err := dataset(q.Species)
	if err != nil {
		return nil, err
	}

	var filter string
	var values []string
	switch {
	case len(q.IDs) > 0:
		filter = "ensembl_gene_id"
		values = q.IDs
	case len(q.Symbols) > 0:
		filter = "external_gene_name"
		values = q.Symbols
	default:
		return nil, fmt.Errorf("biomart: query needs IDs or Symbols")
	}

	xml := buildMartQuery(ds, filter, values, nomenclatureAttribute(q.Species))
	key := fmt.Sprintf("biomart_%s_%s_%s.tsv", q.Species, filter, shortHash(values))

	data, err := c.post(ctx, key, xml)
	if err != nil {
		return nil, err
	}
	return parseMartResult(string(data)), nil
}

// post sends the mart query, serving from cache when possible.
func (c *BioMartClient) post(ctx context.Context, key, query string) ([]byte, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return data, nil
		}
	}

	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from biomart", ErrSourceUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}
	body := string(raw)
	// Mart reports query errors in the body with a 200 status.
	if strings.HasPrefix(body, "Query ERROR") {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, strings.SplitN(body, "\n", 2)[0])
	}

	data := []byte(body)
	if c.cache != nil {
		if err := c.cache.Put(key, data); err != nil {
			return nil, fmt.Errorf("cache %s: %w", key, err)
		}
	}
	return data, nil
}

// buildMartQuery renders the BioMart query XML for one filter pass.
func buildMartQuery(dataset, filter string, values []string, nomenclatureAttr string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE Query>`)
	b.WriteString(`<Query virtualSchemaName="default" formatter="TSV" header="0" uniqueRows="1">`)
	fmt.Fprintf(&b, `<Dataset name="%s" interface="default">`, dataset)
	fmt.Fprintf(&b, `<Filter name="%s" value="%s"/>`, filter, strings.Join(values, ","))
	for _, attr := range biomartAttributes {
		fmt.Fprintf(&b, `<Attribute name="%s"/>`, attr)
	}
	fmt.Fprintf(&b, `<Attribute name="%s"/>`, nomenclatureAttr)
	b.WriteString(`</Dataset></Query>`)
	return b.String()
}

// parseMartResult converts the headerless TSV rows into records. Columns are
// positional per biomartAttributes plus the trailing nomenclature ID.
func parseMartResult(body string) []gene.Record {
	var records []gene.Record
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		rec := gene.Record{Source: "biomart"}
		for i, v := range fields {
			v = strings.TrimSpace(v)
			switch i {
			case 0:
				rec.EnsemblID = v
			case 1:
				rec.Symbol = v
			case 2:
				rec.EntrezID = v
			case 3:
				rec.UniprotID = v
			case 4:
				rec.Description = v
			case 5:
				rec.NomenclatureID = v
			}
		}
		records = append(records, rec)
	}
	return records
}

// shortHash derives a stable cache-key fragment from a value list.
func shortHash(values []string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, ",")))
	return hex.EncodeToString(sum[:4])
}
