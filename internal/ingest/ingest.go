// Package ingest converts a source document into per-page index records:
// rasterize, describe each page with a vision model, embed, insert.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"pdf-rag-service/internal/ai"
	"pdf-rag-service/internal/logger"
	"pdf-rag-service/internal/rasterize"
	"pdf-rag-service/internal/storage"
	"pdf-rag-service/internal/vectorindex"
)

// GeneratedKey is the reserved metadata key holding the vision model's page
// description. Its value is free text; it is not guaranteed to be JSON even
// though the model is asked for it.
const GeneratedKey = "llm_generated"

const augmentInstruction = "Add to the metadata of a PDF file based on this page of the file." +
	" The metadata you generate will be indexed into a search index. Put all descriptive data" +
	" into the values section of the metadata. The existing metadata is %s.\n" +
	"Only return a JSON object with the additional keys and values."

// PageIndex is the slice of the vector index the ingestion pipeline needs.
type PageIndex interface {
	Ensure(ctx context.Context) error
	Insert(ctx context.Context, rec vectorindex.PageRecord) error
}

// AugmentMetadata sends one page image plus the current metadata to the
// vision model and returns a copy of base with the model's response under
// GeneratedKey. base itself is never mutated.
func AugmentMetadata(ctx context.Context, llm ai.ChatModel, pageImage []byte, base map[string]string) (map[string]string, error) {
	existing, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	response, err := llm.Complete(ctx, ai.Message{
		Text:   fmt.Sprintf(augmentInstruction, existing),
		Images: [][]byte{pageImage},
	})
	if err != nil {
		return nil, fmt.Errorf("augmenting metadata: %w", err)
	}

	result := make(map[string]string, len(base)+1)
	for k, v := range base {
		result[k] = v
	}
	result[GeneratedKey] = response
	return result, nil
}

// Service orchestrates ingestion of one document at a time. Pages are
// processed strictly in order; a failure on any page aborts the ingestion and
// already-inserted pages stay in the index. Re-running an ingestion is
// additive, never idempotent.
type Service struct {
	index  PageIndex
	llm    ai.ChatModel
	store  storage.ObjectStore
	raster rasterize.Rasterizer
}

func NewService(index PageIndex, llm ai.ChatModel, store storage.ObjectStore, raster rasterize.Rasterizer) *Service {
	return &Service{index: index, llm: llm, store: store, raster: raster}
}

// IngestFile fetches the file, splits it into page images and indexes one
// augmented record per page. extra metadata is copied verbatim onto every
// record. Returns the number of pages indexed.
func (s *Service) IngestFile(ctx context.Context, uniqueID, filePath string, extra map[string]string) (int, error) {
	if err := s.index.Ensure(ctx); err != nil {
		return 0, err
	}

	logger.Info("Processing file", "file_path", filePath, "unique_id", uniqueID)

	data, err := s.store.GetBytes(ctx, filePath)
	if err != nil {
		return 0, err
	}

	pages, err := s.raster.Pages(data)
	if err != nil {
		return 0, fmt.Errorf("extracting pages from %s: %w", filePath, err)
	}

	base := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		base[k] = v
	}
	base["unique_id"] = uniqueID
	base["file_path"] = filePath

	indexed := 0
	for n, img := range pages {
		pageNum := n + 1
		logger.Debug("Processing page", "file_path", filePath, "page", pageNum)

		augmented, err := AugmentMetadata(ctx, s.llm, img, base)
		if err != nil {
			return indexed, fmt.Errorf("page %d of %s: %w", pageNum, filePath, err)
		}

		rec := vectorindex.PageRecord{
			UniqueID:   uniqueID,
			FilePath:   filePath,
			PageNumber: fmt.Sprintf("page_%d", pageNum),
			Generated:  augmented[GeneratedKey],
			Extra:      copyMeta(extra),
		}
		if err := s.index.Insert(ctx, rec); err != nil {
			return indexed, fmt.Errorf("page %d of %s: %w", pageNum, filePath, err)
		}
		indexed++
	}

	logger.Info("Indexed pages", "file_path", filePath, "pages", indexed)
	return indexed, nil
}

// copyMeta keeps records from aliasing the caller's metadata map.
func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
