package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
)

// stubEmbedder returns constant vectors, one dimension per call (the last
// dimension repeats). Lets tests simulate a backend swap after the probe.
type stubEmbedder struct {
	dims  []int
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := s.dims[s.calls]
	if s.calls < len(s.dims)-1 {
		s.calls++
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 0.5
	}
	return vec, nil
}

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

func newTestIndex(t *testing.T, handler http.HandlerFunc, dims ...int) (*Index, *[]capturedRequest) {
	t.Helper()

	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewIndex(client, &stubEmbedder{dims: dims}, "pages-test"), &captured
}

func TestEnsureCreatesIndexWithProbeDimension(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"acknowledged":true}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}, 768)

	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if len(*captured) != 2 {
		t.Fatalf("got %d requests, want exists check + create", len(*captured))
	}
	create := (*captured)[1]
	if create.Method != http.MethodPut || create.Path != "/pages-test" {
		t.Fatalf("create request went to %s %s", create.Method, create.Path)
	}

	var body map[string]any
	if err := json.Unmarshal(create.Body, &body); err != nil {
		t.Fatalf("create body: %v", err)
	}
	emb := body["mappings"].(map[string]any)["properties"].(map[string]any)["embedding"].(map[string]any)
	if emb["dimension"] != float64(768) {
		t.Fatalf("dimension = %v, want probe dimension 768", emb["dimension"])
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}, 8)

	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	for _, req := range *captured {
		if req.Method == http.MethodPut {
			t.Fatalf("existing index was re-created")
		}
	}
}

func TestInsertMissingGeneratedWritesNothing(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 8)

	err := idx.Insert(context.Background(), PageRecord{UniqueID: "doc1", FilePath: "doc1.pdf"})
	if !errors.Is(err, ErrMissingGenerated) {
		t.Fatalf("err = %v, want ErrMissingGenerated", err)
	}
	if len(*captured) != 0 {
		t.Fatalf("insert without llm_generated still hit the store")
	}
}

func TestInsertEmbedsAndRefreshes(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":"created"}`))
		}
	}, 8)

	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	err := idx.Insert(context.Background(), PageRecord{
		UniqueID:   "doc1",
		FilePath:   "doc1.pdf",
		PageNumber: "page_1",
		Generated:  "a page about widgets",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	last := (*captured)[len(*captured)-1]
	if !strings.HasPrefix(last.Path, "/pages-test/_doc") {
		t.Fatalf("insert went to %s", last.Path)
	}
	if !strings.Contains(last.Query, "refresh=true") {
		t.Fatalf("insert not refreshed: query %q", last.Query)
	}

	var doc map[string]any
	if err := json.Unmarshal(last.Body, &doc); err != nil {
		t.Fatalf("insert body: %v", err)
	}
	vec, ok := doc["embedding"].([]any)
	if !ok || len(vec) != 8 {
		t.Fatalf("embedding = %v, want 8-dim vector", doc["embedding"])
	}
	if doc["llm_generated"] != "a page about widgets" {
		t.Fatalf("llm_generated = %v", doc["llm_generated"])
	}
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	// Probe sees 8 dims, the next embedding comes back 4-dim — as if the
	// embedding backend changed after index creation.
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 8, 4)

	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	before := len(*captured)

	err := idx.Insert(context.Background(), PageRecord{
		UniqueID: "doc1", FilePath: "doc1.pdf", Generated: "text",
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if len(*captured) != before {
		t.Fatalf("mismatched record was still written")
	}
}

func TestSearchParsesHits(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[
			{"_id":"1","_score":1.5,"_source":{"unique_id":"doc1","file_path":"doc1.pdf","page_number":"page_2","llm_generated":"widgets"}},
			{"_id":"2","_score":0.9,"_source":{"unique_id":"doc1","file_path":"doc1.pdf","page_number":"page_1","llm_generated":"intro"}}
		]}}`))
	}, 8)

	hits, err := idx.Search(context.Background(), []float32{1, 2}, []string{"doc1"}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Score != 1.5 || hits[0].Record.PageNumber != "page_2" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[0].Record.Embedding != nil {
		t.Fatalf("search result carries an embedding")
	}

	var body map[string]any
	json.Unmarshal((*captured)[0].Body, &body)
	knn := body["query"].(map[string]any)["knn"].(map[string]any)["embedding"].(map[string]any)
	if knn["k"] != float64(DefaultK) {
		t.Fatalf("k = %v, want default %d", knn["k"], DefaultK)
	}
}

func TestListByIDsDistinctPaths(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[
			{"_id":"1","_source":{"unique_id":"doc1","file_path":"b.pdf","llm_generated":"x"}},
			{"_id":"2","_source":{"unique_id":"doc1","file_path":"a.pdf","llm_generated":"y"}},
			{"_id":"3","_source":{"unique_id":"doc2","file_path":"b.pdf","llm_generated":"z"}}
		]}}`))
	}, 8)

	listing, err := idx.ListByIDs(context.Background(), []string{"doc1", "doc2"})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if listing.Count != 3 {
		t.Fatalf("count = %d, want 3", listing.Count)
	}
	if len(listing.Paths) != 2 || listing.Paths[0] != "a.pdf" || listing.Paths[1] != "b.pdf" {
		t.Fatalf("paths = %v, want distinct sorted [a.pdf b.pdf]", listing.Paths)
	}
}

func TestListByIDsIndexAbsent(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	}, 8)

	_, err := idx.ListByIDs(context.Background(), []string{"doc1"})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestDeleteByFileReturnsCount(t *testing.T) {
	idx, captured := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deleted":3}`))
	}, 8)

	deleted, err := idx.DeleteByFile(context.Background(), "doc1.pdf")
	if err != nil {
		t.Fatalf("DeleteByFile: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	req := (*captured)[0]
	if !strings.HasSuffix(req.Path, "/_delete_by_query") {
		t.Fatalf("delete went to %s", req.Path)
	}
}

func TestDeleteByFileZeroMatchesIsNotAnError(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deleted":0}`))
	}, 8)

	deleted, err := idx.DeleteByFile(context.Background(), "never-ingested.pdf")
	if err != nil {
		t.Fatalf("DeleteByFile: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("deleted = %d, want 0", deleted)
	}
}

func TestIndexedIDs(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[]},"aggregations":{"ids":{"buckets":[
			{"key":{"ids":"doc1"}},{"key":{"ids":"doc2"}}
		]}}}`))
	}, 8)

	ids, err := idx.IndexedIDs(context.Background())
	if err != nil {
		t.Fatalf("IndexedIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "doc1" || ids[1] != "doc2" {
		t.Fatalf("ids = %v", ids)
	}
}
