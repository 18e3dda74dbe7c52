package vectorindex

import (
	"encoding/json"
	"testing"
)

func TestPageRecordFlattensExtra(t *testing.T) {
	rec := PageRecord{
		UniqueID:   "doc1",
		FilePath:   "doc1.pdf",
		PageNumber: "page_1",
		Generated:  "a description",
		Embedding:  []float32{0.1, 0.2},
		Extra:      map[string]string{"title": "Report", "author": "Smith"},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc["unique_id"] != "doc1" || doc["file_path"] != "doc1.pdf" {
		t.Fatalf("reserved fields wrong: %v", doc)
	}
	if doc["llm_generated"] != "a description" {
		t.Fatalf("llm_generated = %v", doc["llm_generated"])
	}
	// Extras sit at the top level, not nested
	if doc["title"] != "Report" || doc["author"] != "Smith" {
		t.Fatalf("extra metadata not flattened: %v", doc)
	}
	if _, ok := doc["embedding"]; !ok {
		t.Fatalf("embedding missing from indexed document")
	}
}

func TestPageRecordReservedFieldsWin(t *testing.T) {
	rec := PageRecord{
		UniqueID:  "real-id",
		FilePath:  "f.pdf",
		Generated: "text",
		Extra:     map[string]string{"unique_id": "spoofed"},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	json.Unmarshal(data, &doc)
	if doc["unique_id"] != "real-id" {
		t.Fatalf("extra metadata overrode a reserved field: %v", doc["unique_id"])
	}
}

func TestPageRecordRoundTripWithoutEmbedding(t *testing.T) {
	// Search results arrive with the embedding stripped server-side.
	src := []byte(`{"unique_id":"doc1","file_path":"doc1.pdf","page_number":"page_2","llm_generated":"desc","title":"Report"}`)

	var rec PageRecord
	if err := json.Unmarshal(src, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.UniqueID != "doc1" || rec.PageNumber != "page_2" || rec.Generated != "desc" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Embedding != nil {
		t.Fatalf("embedding should be absent")
	}
	if rec.Extra["title"] != "Report" {
		t.Fatalf("extra metadata lost: %+v", rec.Extra)
	}
}
