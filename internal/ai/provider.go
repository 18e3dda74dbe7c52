// Package ai provides the chat-completion and embedding backends used by the
// ingestion and retrieval pipelines. The concrete backend is chosen once at
// process start from configuration and injected; nothing in this package
// reads the environment afterwards.
package ai

import (
	"context"

	"pdf-rag-service/internal/config"
)

// Message is a single user turn sent to a chat model. Images carry
// PNG-encoded page renders for vision-capable models.
type Message struct {
	Text   string
	Images [][]byte
}

// ChatModel produces a text completion for a message, which may include
// image payloads.
type ChatModel interface {
	Complete(ctx context.Context, msg Message) (string, error)
}

// Embedder turns text into a fixed-length vector. The dimension is a property
// of the backend and discovered by callers via a probe call, not configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewProviders returns the chat and embedding backends for the configured
// mode: Ollama when cfg.Local is set, Gemini otherwise. Both interfaces are
// served by the same client.
func NewProviders(cfg *config.Config) (ChatModel, Embedder, error) {
	if cfg.Local {
		c := NewOllamaClient(cfg)
		return c, c, nil
	}
	g, err := NewGeminiClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return g, g, nil
}
