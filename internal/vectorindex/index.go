// Package vectorindex owns the OpenSearch index holding page records: schema
// creation, inserts, filtered ANN search, delete-by-file and listings.
// The ANN algorithm itself is delegated to OpenSearch; this package only
// builds and executes the queries.
package vectorindex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"

	"pdf-rag-service/internal/ai"
	"pdf-rag-service/internal/config"
	"pdf-rag-service/internal/logger"
)

var (
	// ErrMissingGenerated reports an insert attempted on a record without the
	// llm_generated text. This is a contract violation by the caller, not a
	// backend fault; nothing is written.
	ErrMissingGenerated = errors.New("record is missing llm_generated text")

	// ErrIndexNotFound distinguishes "index does not exist" from an empty
	// result set.
	ErrIndexNotFound = errors.New("index does not exist")

	// ErrDimensionMismatch reports an embedding whose length differs from the
	// dimension the index was created with. Inserting it would silently
	// corrupt the ANN geometry, so it is rejected.
	ErrDimensionMismatch = errors.New("embedding dimension does not match index")
)

// probeText is embedded once per bootstrap purely to discover the backend's
// vector dimension.
const probeText = "Just a test sentence to test the embedding length"

// DefaultK is the candidate count for similarity searches.
const DefaultK = 100

// Index manages one named OpenSearch index of page records.
type Index struct {
	client   *opensearch.Client
	embedder ai.Embedder
	name     string

	// discovered from the probe embedding during Ensure; zero until then
	dimension int
}

// NewClient builds the OpenSearch client for the configured mode: plain HTTP
// with optional basic auth locally, SigV4-signed requests against a managed
// domain otherwise.
func NewClient(ctx context.Context, cfg *config.Config) (*opensearch.Client, error) {
	osCfg := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.PoolSize,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.Local},
		},
	}

	if cfg.Local {
		osCfg.Username = cfg.OpenSearchUser
		osCfg.Password = cfg.OpenSearchPass
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
		if err != nil {
			return nil, fmt.Errorf("creating request signer: %w", err)
		}
		osCfg.Signer = signer
	}

	return opensearch.NewClient(osCfg)
}

// NewIndex wires an Index against an existing client. The embedder is used
// for the dimension probe and for embedding inserted records.
func NewIndex(client *opensearch.Client, embedder ai.Embedder, name string) *Index {
	return &Index{client: client, embedder: embedder, name: name}
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Ensure creates the index if it does not exist. The embedding dimension is
// discovered by embedding a fixed probe string; it is cached so later inserts
// can be validated against it. Safe to call repeatedly.
func (i *Index) Ensure(ctx context.Context) error {
	probe, err := i.embedder.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	i.dimension = len(probe)

	res, err := opensearchapi.IndicesExistsRequest{Index: []string{i.name}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", i.name, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return responseError("index exists check", res)
	}

	body, err := json.Marshal(createIndexBody(i.dimension))
	if err != nil {
		return err
	}
	createRes, err := opensearchapi.IndicesCreateRequest{
		Index: i.name,
		Body:  bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", i.name, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return responseError("index create", createRes)
	}

	logger.Info("Created vector index", "index", i.name, "dimension", i.dimension)
	return nil
}

// Insert embeds rec.Generated and writes the record as one index entry. The
// write is refreshed so it is visible to an immediately following search.
func (i *Index) Insert(ctx context.Context, rec PageRecord) error {
	if rec.Generated == "" {
		return ErrMissingGenerated
	}

	vec, err := i.embedder.Embed(ctx, rec.Generated)
	if err != nil {
		return fmt.Errorf("embedding record: %w", err)
	}
	if i.dimension != 0 && len(vec) != i.dimension {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), i.dimension)
	}
	rec.Embedding = vec

	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	res, err := opensearchapi.IndexRequest{
		Index:   i.name,
		Body:    bytes.NewReader(body),
		Refresh: "true",
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("indexing record: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index record", res)
	}
	return nil
}

// Hit is one search result. The record never carries an embedding; the
// _source filter strips it server-side.
type Hit struct {
	Score  float64
	Record PageRecord
}

// Search returns the top-k records nearest to vector by inner product,
// restricted to records whose unique_id is one of uniqueIDs.
func (i *Index) Search(ctx context.Context, vector []float32, uniqueIDs []string, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultK
	}
	raw, err := i.search(ctx, searchBody(vector, uniqueIDs, k))
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(raw.Hits.Hits))
	for _, h := range raw.Hits.Hits {
		var rec PageRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return nil, fmt.Errorf("decoding hit %s: %w", h.ID, err)
		}
		hits = append(hits, Hit{Score: h.Score, Record: rec})
	}
	return hits, nil
}

// DocListing summarizes the indexed pages for a set of identifiers.
type DocListing struct {
	Count int      `json:"num_pages"`
	Paths []string `json:"docs_list"`
}

// ListByIDs returns the page count and distinct source paths for the given
// identifiers, over at most 1000 matching pages. Identifiers with no pages
// simply contribute nothing. Returns ErrIndexNotFound when the index itself
// is absent.
func (i *Index) ListByIDs(ctx context.Context, uniqueIDs []string) (DocListing, error) {
	raw, err := i.search(ctx, listByIDsBody(uniqueIDs))
	if err != nil {
		return DocListing{}, err
	}

	seen := make(map[string]struct{})
	for _, h := range raw.Hits.Hits {
		var rec PageRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return DocListing{}, fmt.Errorf("decoding hit %s: %w", h.ID, err)
		}
		seen[rec.FilePath] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return DocListing{Count: len(raw.Hits.Hits), Paths: paths}, nil
}

// DeleteByFile removes every record whose file_path matches, server-side, and
// returns how many were deleted. Deleting a path with no records is not an
// error; the count is simply zero.
func (i *Index) DeleteByFile(ctx context.Context, filePath string) (int64, error) {
	body, err := json.Marshal(deleteByFileBody(filePath))
	if err != nil {
		return 0, err
	}
	res, err := opensearchapi.DeleteByQueryRequest{
		Index:   []string{i.name},
		Body:    bytes.NewReader(body),
		Refresh: opensearchapi.BoolPtr(true),
	}.Do(ctx, i.client)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, ErrIndexNotFound
	}
	if res.IsError() {
		return 0, responseError("delete by query", res)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding delete response: %w", err)
	}
	return parsed.Deleted, nil
}

// IndexedIDs enumerates every distinct unique_id present in the index via a
// composite aggregation.
func (i *Index) IndexedIDs(ctx context.Context) ([]string, error) {
	raw, err := i.search(ctx, indexedIDsBody())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw.Aggregations.IDs.Buckets))
	for _, b := range raw.Aggregations.IDs.Buckets {
		ids = append(ids, b.Key.IDs)
	}
	return ids, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		IDs struct {
			Buckets []struct {
				Key struct {
					IDs string `json:"ids"`
				} `json:"key"`
			} `json:"buckets"`
		} `json:"ids"`
	} `json:"aggregations"`
}

func (i *Index) search(ctx context.Context, queryBody map[string]any) (*searchResponse, error) {
	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, err
	}
	res, err := opensearchapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrIndexNotFound
	}
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &parsed, nil
}

func responseError(op string, res *opensearchapi.Response) error {
	msg, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s failed: %s: %s", op, res.Status(), msg)
}
