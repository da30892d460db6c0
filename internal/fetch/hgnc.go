package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/inodb/genesets/internal/gene"
)

// HGNCClient queries the HUGO Gene Nomenclature Committee REST service for
// the members of a named gene group. HGNC covers human genes only.
type HGNCClient struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	limiter    *rate.Limiter
}

const hgncBaseURL = "https://rest.genenames.org"

// NewHGNCClient creates a client with the default endpoint, timeout and the
// HGNC-recommended rate limit of three requests per second. cache may be nil
// to disable caching.
func NewHGNCClient(cache Cache) *HGNCClient {
	return &HGNCClient{
		baseURL:    hgncBaseURL,
		httpClient: newHTTPClient(),
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(3), 1),
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (c *HGNCClient) SetBaseURL(u string) { c.baseURL = u }

// Name implements Source.
func (c *HGNCClient) Name() string { return "hgnc" }

// hgncResponse mirrors the service's Solr-style JSON document.
type hgncResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Symbol        string   `json:"symbol"`
			Name          string   `json:"name"`
			HGNCID        string   `json:"hgnc_id"`
			EnsemblGeneID string   `json:"ensembl_gene_id"`
			EntrezID      string   `json:"entrez_id"`
			UniprotIDs    []string `json:"uniprot_ids"`
			AliasSymbols  []string `json:"alias_symbol"`
		} `json:"docs"`
	} `json:"response"`
}

// Fetch returns one record per member of the gene group named in
// Query.Group. Only human is supported; other species are a caller error,
// not a source failure.
func (c *HGNCClient) Fetch(ctx context.Context, q Query) ([]gene.Record, error) {
	if q.Group == "" {
		return nil, fmt.Errorf("hgnc: query needs a Group")
	}
	if q.Species != "human" {
		return nil, fmt.Errorf("hgnc: no records for species %q", q.Species)
	}

	key := fmt.Sprintf("hgnc_group_%s.json", strings.ReplaceAll(q.Group, " ", "_"))
	var data []byte
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			data = cached
		}
	}

	if data == nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		fetchURL := fmt.Sprintf("%s/fetch/gene_group/%s", c.baseURL, url.PathEscape(q.Group))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: HTTP %d from hgnc", ErrSourceUnavailable, resp.StatusCode)
		}
		dec := json.NewDecoder(resp.Body)
		var parsed hgncResponse
		if err := dec.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
		}
		return c.toRecords(parsed, key)
	}

	var parsed hgncResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode cached response: %v", ErrSourceUnavailable, err)
	}
	return docsToRecords(parsed), nil
}

// toRecords converts a live response and writes it back to the cache.
func (c *HGNCClient) toRecords(parsed hgncResponse, key string) ([]gene.Record, error) {
	if c.cache != nil {
		raw, err := json.Marshal(parsed)
		if err == nil {
			if err := c.cache.Put(key, raw); err != nil {
				return nil, fmt.Errorf("cache %s: %w", key, err)
			}
		}
	}
	return docsToRecords(parsed), nil
}

func docsToRecords(parsed hgncResponse) []gene.Record {
	var records []gene.Record
	for _, doc := range parsed.Response.Docs {
		rec := gene.Record{
			Symbol:         doc.Symbol,
			EnsemblID:      doc.EnsemblGeneID,
			EntrezID:       doc.EntrezID,
			NomenclatureID: doc.HGNCID,
			Description:    doc.Name,
			Source:         "hgnc",
		}
		if len(doc.UniprotIDs) > 0 {
			rec.UniprotID = doc.UniprotIDs[0]
		}
		records = append(records, rec)
	}
	return records
}
