package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/inodb/genesets/internal/gmt"
)

// MSigDBClient downloads published gene-set-matrix collections. Files are
// addressed purely by a naming convention built from collection, species
// token and release version, so the client never has to scrape an index.
type MSigDBClient struct {
	baseURL    string
	version    string
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
}

const (
	msigdbBaseURL = "https://data.broadinstitute.org/gsea-msigdb/msigdb/release"
	msigdbVersion = "2023.2"
)

// NewMSigDBClient creates a client for the pinned release version. cache may
// be nil to disable caching.
func NewMSigDBClient(cache Cache) *MSigDBClient {
	return &MSigDBClient{
		baseURL:    msigdbBaseURL,
		version:    msigdbVersion,
		httpClient: newHTTPClient(),
		cache:      cache,
		logger:     zap.NewNop(),
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (c *MSigDBClient) SetBaseURL(u string) { c.baseURL = u }

// SetLogger sets the logger used for degraded-download warnings.
func (c *MSigDBClient) SetLogger(l *zap.Logger) { c.logger = l }

// speciesToken returns the filename species token.
func speciesToken(species string) string {
	if species == "mouse" {
		return "Mm"
	}
	return "Hs"
}

// FileName returns the conventional file name for a collection and species,
// e.g. "h.all.v2023.2.Hs.symbols.gmt".
func (c *MSigDBClient) FileName(collection, species string) string {
	return fmt.Sprintf("%s.v%s.%s.symbols.gmt", collection, c.version, speciesToken(species))
}

// Sets downloads and parses one collection. A failed download or unparsable
// payload degrades to an empty collection with a logged warning: published
// matrices are never essential to table correctness, so downstream stages
// proceed with zero entries from this source.
func (c *MSigDBClient) Sets(ctx context.Context, collection, species string) []gmt.Set {
	name := c.FileName(collection, species)
	fileURL := fmt.Sprintf("%s/%s.%s/%s", c.baseURL, c.version, speciesToken(species), url.PathEscape(name))

	data, err := cachedGet(ctx, c.httpClient, c.cache, name, fileURL)
	if err != nil {
		c.logFailure(collection, species, err)
		return nil
	}

	sets, err := gmt.Parse(bytes.NewReader(data))
	if err != nil {
		c.logFailure(collection, species, fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
		return nil
	}
	return sets
}

func (c *MSigDBClient) logFailure(collection, species string, err error) {
	if errors.Is(err, ErrSourceUnavailable) {
		c.logger.Warn("gene-set matrix download failed, continuing without it",
			zap.String("collection", collection),
			zap.String("species", species),
			zap.Error(err))
		return
	}
	c.logger.Warn("gene-set matrix unavailable",
		zap.String("collection", collection),
		zap.String("species", species),
		zap.Error(err))
}
