package vectorindex

import (
	"testing"
)

func TestCreateIndexBody(t *testing.T) {
	body := createIndexBody(768)

	settings := body["settings"].(map[string]any)["index"].(map[string]any)
	if settings["knn"] != true {
		t.Fatalf("index.knn not enabled")
	}

	props := body["mappings"].(map[string]any)["properties"].(map[string]any)
	if props["unique_id"].(map[string]any)["type"] != "keyword" {
		t.Fatalf("unique_id must be a keyword field")
	}

	emb := props["embedding"].(map[string]any)
	if emb["type"] != "knn_vector" {
		t.Fatalf("embedding type = %v", emb["type"])
	}
	if emb["dimension"] != 768 {
		t.Fatalf("dimension = %v, want 768", emb["dimension"])
	}

	method := emb["method"].(map[string]any)
	if method["name"] != "hnsw" || method["space_type"] != "innerproduct" || method["engine"] != "faiss" {
		t.Fatalf("unexpected method config: %v", method)
	}
	params := method["parameters"].(map[string]any)
	if params["ef_construction"] != 256 || params["ef_search"] != 256 || params["m"] != 32 {
		t.Fatalf("unexpected hnsw parameters: %v", params)
	}
}

func TestAnyOfFilter(t *testing.T) {
	filter := anyOfFilter([]string{"a", "b"})

	boolQ := filter["bool"].(map[string]any)
	if boolQ["minimum_should_match"] != 1 {
		t.Fatalf("minimum_should_match = %v, want 1", boolQ["minimum_should_match"])
	}
	shoulds := boolQ["should"].([]map[string]any)
	if len(shoulds) != 2 {
		t.Fatalf("got %d should clauses, want 2", len(shoulds))
	}
	if shoulds[0]["term"].(map[string]any)["unique_id"] != "a" {
		t.Fatalf("first term clause = %v", shoulds[0])
	}
}

func TestSearchBodyShape(t *testing.T) {
	body := searchBody([]float32{0.1, 0.2}, []string{"doc1"}, 100)

	knn := body["query"].(map[string]any)["knn"].(map[string]any)["embedding"].(map[string]any)
	if knn["k"] != 100 {
		t.Fatalf("k = %v, want 100", knn["k"])
	}
	if _, ok := knn["filter"].(map[string]any)["bool"]; !ok {
		t.Fatalf("knn query has no identifier filter")
	}

	exclude := body["_source"].(map[string]any)["exclude"].([]string)
	if len(exclude) != 1 || exclude[0] != "embedding" {
		t.Fatalf("search must exclude the embedding field, got %v", exclude)
	}
}

func TestListByIDsBodyCeiling(t *testing.T) {
	body := listByIDsBody([]string{"x"})
	if body["size"] != 1000 {
		t.Fatalf("size = %v, want 1000", body["size"])
	}
}

func TestDeleteByFileBody(t *testing.T) {
	body := deleteByFileBody("doc1.pdf")
	match := body["query"].(map[string]any)["match"].(map[string]any)
	if match["file_path"] != "doc1.pdf" {
		t.Fatalf("match clause = %v", match)
	}
}
