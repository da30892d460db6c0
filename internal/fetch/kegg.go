package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/inodb/genesets/internal/gene"
)

// KEGGClient fetches the member genes of a KEGG BRITE category (e.g. the
// protein kinase hierarchy) through the plain-text REST endpoints.
type KEGGClient struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

const keggBaseURL = "https://rest.kegg.jp"

// NewKEGGClient creates a client with the default endpoint and timeout.
// cache may be nil to disable caching.
func NewKEGGClient(cache Cache) *KEGGClient {
	return &KEGGClient{
		baseURL:    keggBaseURL,
		httpClient: newHTTPClient(),
		cache:      cache,
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (c *KEGGClient) SetBaseURL(u string) { c.baseURL = u }

// Name implements Source.
func (c *KEGGClient) Name() string { return "kegg" }

// organism returns the KEGG organism code for a species.
func organism(species string) (string, error) {
	switch species {
	case "human":
		return "hsa", nil
	case "mouse":
		return "mmu", nil
	default:
		return "", fmt.Errorf("unsupported species %q", species)
	}
}

// Fetch returns one record per member gene of the BRITE category in
// Query.Category (a bare hierarchy number such as "01001"). The category
// link pass yields numeric gene IDs; a second list pass resolves symbols and
// descriptions.
func (c *KEGGClient) Fetch(ctx context.Context, q Query) ([]gene.Record, error) {
	if q.Category == "" {
		return nil, fmt.Errorf("kegg: query needs a Category")
	}
	org, err := organism(q.Species)
	if err != nil {
		return nil, err
	}

	brite := fmt.Sprintf("br:%s%s", org, q.Category)
	linkKey := fmt.Sprintf("kegg_link_%s_%s.tsv", org, q.Category)
	linkURL := fmt.Sprintf("%s/link/%s/%s", c.baseURL, org, brite)

	data, err := cachedGet(ctx, c.httpClient, c.cache, linkKey, linkURL)
	if err != nil {
		return nil, err
	}

	ids := parseKEGGLink(string(data), org)
	if len(ids) == 0 {
		return nil, nil
	}

	var records []gene.Record
	// The list endpoint caps the number of entries per call.
	const batchSize = 100
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		batch := ids[start:end]

		listKey := fmt.Sprintf("kegg_list_%s_%s_%s.tsv", org, q.Category, shortHash(batch))
		listURL := fmt.Sprintf("%s/list/%s", c.baseURL, strings.Join(batch, "+"))
		data, err := cachedGet(ctx, c.httpClient, c.cache, listKey, listURL)
		if err != nil {
			return nil, err
		}
		records = append(records, parseKEGGList(string(data))...)
	}
	return records, nil
}

// parseKEGGLink extracts the org-prefixed gene entries from a link result
// (lines of "br:hsa01001<TAB>hsa:25").
func parseKEGGLink(body, org string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		id := strings.TrimSpace(fields[1])
		if !strings.HasPrefix(id, org+":") || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// parseKEGGList converts list-endpoint rows into records. The last column is
// "SYM1, SYM2; description"; the first symbol is the primary one and the
// numeric part of the entry ID is the Entrez ID.
func parseKEGGList(body string) []gene.Record {
	var records []gene.Record
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		entry := strings.TrimSpace(fields[0])
		nameField := strings.TrimSpace(fields[len(fields)-1])

		_, entrez, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}

		symbols, desc, _ := strings.Cut(nameField, ";")
		primary, _, _ := strings.Cut(symbols, ",")
		rec := gene.Record{
			Symbol:      strings.TrimSpace(primary),
			EntrezID:    entrez,
			Description: strings.TrimSpace(desc),
			Source:      "kegg",
		}
		records = append(records, rec)
	}
	return records
}
