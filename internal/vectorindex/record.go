package vectorindex

import (
	"encoding/json"
	"fmt"
)

// Reserved field names in the index mapping. Everything else on a record is
// caller-supplied metadata carried verbatim.
const (
	fieldUniqueID   = "unique_id"
	fieldFilePath   = "file_path"
	fieldPageNumber = "page_number"
	fieldGenerated  = "llm_generated"
	fieldEmbedding  = "embedding"
)

// PageRecord is the unit stored in the index: one page of one source
// document. UniqueID groups all pages of a logical document; FilePath is the
// deletion filter key. Generated holds the vision-model description the
// embedding is computed from, and must be treated as opaque text. Extra holds
// arbitrary caller metadata, flattened to top-level fields on the wire.
type PageRecord struct {
	UniqueID   string
	FilePath   string
	PageNumber string
	Generated  string
	Embedding  []float32
	Extra      map[string]string
}

// MarshalJSON flattens Extra alongside the reserved fields. Reserved fields
// win on key collision. Embedding is omitted when unset so search results
// (which exclude it) round-trip cleanly.
func (r PageRecord) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		doc[k] = v
	}
	doc[fieldUniqueID] = r.UniqueID
	doc[fieldFilePath] = r.FilePath
	if r.PageNumber != "" {
		doc[fieldPageNumber] = r.PageNumber
	}
	doc[fieldGenerated] = r.Generated
	if r.Embedding != nil {
		doc[fieldEmbedding] = r.Embedding
	}
	return json.Marshal(doc)
}

func (r *PageRecord) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := doc[key]
		if !ok {
			return nil
		}
		delete(doc, key)
		return json.Unmarshal(raw, dst)
	}

	if err := take(fieldUniqueID, &r.UniqueID); err != nil {
		return err
	}
	if err := take(fieldFilePath, &r.FilePath); err != nil {
		return err
	}
	if err := take(fieldPageNumber, &r.PageNumber); err != nil {
		return err
	}
	if err := take(fieldGenerated, &r.Generated); err != nil {
		return err
	}
	if err := take(fieldEmbedding, &r.Embedding); err != nil {
		return err
	}

	if len(doc) > 0 {
		r.Extra = make(map[string]string, len(doc))
		for k, raw := range doc {
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("metadata field %q is not a string: %w", k, err)
			}
			r.Extra[k] = v
		}
	}
	return nil
}
