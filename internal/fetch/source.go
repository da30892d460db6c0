// Package fetch provides clients for the upstream genomics services the
// curation stages pull from, plus the local payload cache they share.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inodb/genesets/internal/gene"
)

// ErrSourceUnavailable wraps network, HTTP-status and payload failures from
// any upstream service. Stages decide per source whether it is fatal.
var ErrSourceUnavailable = errors.New("source unavailable")

// Query describes one fetch: a list of identifiers (cross-reference lookup),
// a category (pathway membership), or a named group (nomenclature registry).
// Exactly one of the selector fields is set per call.
type Query struct {
	Species  string   // "human" or "mouse"
	Symbols  []string // lookup-by-identifier-list
	IDs      []string // lookup-by-stable-gene-ID list
	Category string   // lookup-by-category
	Group    string   // lookup-by-group-name
}

// Source is one upstream provider yielding raw identifier records.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]gene.Record, error)
}

// defaultTimeout bounds every upstream request; expiry surfaces as
// ErrSourceUnavailable.
const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// getBody issues a GET and returns the body bytes, translating transport and
// status failures into ErrSourceUnavailable.
func getBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrSourceUnavailable, resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}
	return data, nil
}

// cachedGet serves url from the cache under key when possible, fetching and
// filling the cache otherwise. A nil cache always fetches.
func cachedGet(ctx context.Context, client *http.Client, cache Cache, key, url string) ([]byte, error) {
	if cache != nil {
		if data, ok := cache.Get(key); ok {
			return data, nil
		}
	}
	data, err := getBody(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Put(key, data); err != nil {
			return nil, fmt.Errorf("cache %s: %w", key, err)
		}
	}
	return data, nil
}
