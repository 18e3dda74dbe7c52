// Package models defines the request and response shapes of the HTTP API.
package models

// FileEvent targets one file of one logical document.
type FileEvent struct {
	UniqueID string `json:"unique_id" binding:"required"`
	FilePath string `json:"file_path" binding:"required"`
}

// BulkEvent targets many files grouped under one identifier.
type BulkEvent struct {
	UniqueID  string   `json:"unique_id" binding:"required"`
	FilePaths []string `json:"file_paths" binding:"required"`
}

// ChatEvent asks a question over a set of document identifiers.
type ChatEvent struct {
	UniqueIDs []string `json:"unique_ids" binding:"required"`
	Question  string   `json:"question" binding:"required"`
}

// ListDocsEvent requests a listing for a set of identifiers.
type ListDocsEvent struct {
	UniqueIDs []string `json:"unique_ids" binding:"required"`
}

// SummaryEvent requests per-page summaries for a set of identifiers.
type SummaryEvent struct {
	UniqueIDs []string `json:"unique_ids" binding:"required"`
}

// ManifestEntry is one row of an uploaded manifest file.
type ManifestEntry struct {
	Name string `json:"name"`
}

// IngestResult reports a completed synchronous ingestion.
type IngestResult struct {
	PagesIndexed int `json:"pages_indexed"`
}

// DeleteResult reports a completed deletion.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}
