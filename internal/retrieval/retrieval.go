// Package retrieval answers questions over previously ingested documents:
// identifier-filtered similarity search, listings, and the RAG completion
// pipeline.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdf-rag-service/internal/ai"
	"pdf-rag-service/internal/logger"
	"pdf-rag-service/internal/vectorindex"
)

// ragPrompt is the fixed retrieval-augmented template. The pipeline is an
// explicit embed -> search -> prompt -> complete sequence with typed
// intermediates.
const ragPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know. " +
	"Use three sentences maximum and keep the answer concise.\n" +
	"Question: %s\nContext: %s\nAnswer:"

const summaryQuestion = "Describe each of these pages from the documents. What is happening on each page?"

// SearchIndex is the slice of the vector index the retrieval pipeline needs.
type SearchIndex interface {
	Search(ctx context.Context, vector []float32, uniqueIDs []string, k int) ([]vectorindex.Hit, error)
	ListByIDs(ctx context.Context, uniqueIDs []string) (vectorindex.DocListing, error)
}

// Service runs retrieval against one index with injected model backends.
type Service struct {
	index    SearchIndex
	embedder ai.Embedder
	llm      ai.ChatModel
}

func NewService(index SearchIndex, embedder ai.Embedder, llm ai.ChatModel) *Service {
	return &Service{index: index, embedder: embedder, llm: llm}
}

// SimilaritySearch embeds the question and returns the nearest page records
// among the given identifiers. Results carry no embedding vectors.
func (s *Service) SimilaritySearch(ctx context.Context, uniqueIDs []string, question string) ([]vectorindex.Hit, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	return s.index.Search(ctx, vec, uniqueIDs, vectorindex.DefaultK)
}

// ListDocuments reports the page count and distinct source paths indexed for
// the given identifiers. An absent index surfaces as ErrIndexNotFound, which
// callers may fold into an empty listing.
func (s *Service) ListDocuments(ctx context.Context, uniqueIDs []string) (vectorindex.DocListing, error) {
	return s.index.ListByIDs(ctx, uniqueIDs)
}

// NoDataMessage is the user-facing reply when nothing is indexed for the
// requested identifiers.
func NoDataMessage(uniqueIDs []string) string {
	return fmt.Sprintf("There is no data for unique ids %v in the index", uniqueIDs)
}

// Answer runs the full RAG pipeline. When no pages are indexed for the
// identifiers it returns the explanatory message without calling the model.
func (s *Service) Answer(ctx context.Context, uniqueIDs []string, question string) (string, error) {
	listing, err := s.ListDocuments(ctx, uniqueIDs)
	if err != nil {
		if errors.Is(err, vectorindex.ErrIndexNotFound) {
			return NoDataMessage(uniqueIDs), nil
		}
		return "", err
	}
	if listing.Count == 0 {
		return NoDataMessage(uniqueIDs), nil
	}

	logger.Info("Answering question", "unique_ids", uniqueIDs, "pages", listing.Count)

	hits, err := s.SimilaritySearch(ctx, uniqueIDs, question)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(ragPrompt, question, assembleContext(hits))
	return s.llm.Complete(ctx, ai.Message{Text: prompt})
}

// Summarize answers the fixed per-page description question over the
// identifiers' documents.
func (s *Service) Summarize(ctx context.Context, uniqueIDs []string) (string, error) {
	return s.Answer(ctx, uniqueIDs, summaryQuestion)
}

func assembleContext(hits []vectorindex.Hit) string {
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s %s: %s\n", h.Record.FilePath, h.Record.PageNumber, h.Record.Generated)
	}
	return b.String()
}
