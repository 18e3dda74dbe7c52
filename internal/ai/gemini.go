package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"pdf-rag-service/internal/config"
	"pdf-rag-service/internal/logger"
)

// GeminiClient serves both ChatModel and Embedder against the Google
// Generative AI API. A circuit breaker and rate limiter sit in front of the
// chat path; failures are surfaced to the caller, never retried here.
type GeminiClient struct {
	client      *genai.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	chatModel   string
	embedModel  string
	temperature float32
}

func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// 10 RPM free-tier default with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(9.0/60.0), 2)

	return &GeminiClient{
		client:      client,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		chatModel:   cfg.ChatModel,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
	}, nil
}

func (gc *GeminiClient) Complete(ctx context.Context, msg Message) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.chatModel),
		attribute.Int("gemini.image_parts", len(msg.Images)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.chatModel)
		model.SetTemperature(gc.temperature)

		parts := make([]genai.Part, 0, len(msg.Images)+1)
		parts = append(parts, genai.Text(msg.Text))
		for _, img := range msg.Images {
			parts = append(parts, genai.ImageData("png", img))
		}

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return nil, err
		}
		return extractText(resp)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	return result.(string), nil
}

func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", gc.embedModel))

	model := gc.client.EmbeddingModel(gc.embedModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}
	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text, nil
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
