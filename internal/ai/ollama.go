package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdf-rag-service/internal/config"
)

// OllamaClient talks to a local Ollama server over its HTTP API. It serves
// both chat (with image attachments) and embeddings from the same model.
type OllamaClient struct {
	baseURL     string
	chatModel   string
	embedModel  string
	temperature float32
	httpClient  *http.Client
}

func NewOllamaClient(cfg *config.Config) *OllamaClient {
	return &OllamaClient{
		baseURL:     cfg.OllamaURL,
		chatModel:   cfg.ChatModel,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	Seed        int     `json:"seed"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error,omitempty"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (oc *OllamaClient) Complete(ctx context.Context, msg Message) (string, error) {
	images := make([]string, 0, len(msg.Images))
	for _, img := range msg.Images {
		images = append(images, base64.StdEncoding.EncodeToString(img))
	}

	request := ollamaChatRequest{
		Model: oc.chatModel,
		Messages: []ollamaChatMessage{
			{Role: "user", Content: msg.Text, Images: images},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: oc.temperature, NumPredict: 4096, Seed: 42},
	}

	var response ollamaChatResponse
	if err := oc.postJSON(ctx, "/api/chat", request, &response); err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}
	return response.Message.Content, nil
}

func (oc *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	request := ollamaEmbedRequest{Model: oc.embedModel, Prompt: text}

	var response ollamaEmbedResponse
	if err := oc.postJSON(ctx, "/api/embeddings", request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", response.Error)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return response.Embedding, nil
}

func (oc *OllamaClient) postJSON(ctx context.Context, path string, request, response any) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ollama %s returned %s: %s", path, resp.Status, body)
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %v", err)
	}
	return nil
}
