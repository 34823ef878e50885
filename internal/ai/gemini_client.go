package ai

import (
	"context"
	"fmt"
	"strings"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/models"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// GeminiClient implements text generation and embeddings over the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	embedClient *genai.Client

	model          string
	embeddingModel string

	generate *Guard
	embed    *Guard
	metrics  *telemetry.Metrics
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	embedClient := client
	if cfg.GeminiEmbeddingAPIKey != "" && cfg.GeminiEmbeddingAPIKey != cfg.GeminiAPIKey {
		embedClient, err = genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiEmbeddingAPIKey))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("create gemini embedding client: %w", err)
		}
	}

	return &GeminiClient{
		client:         client,
		embedClient:    embedClient,
		model:          cfg.GeminiModel,
		embeddingModel: cfg.GoogleEmbeddingsModel,
		generate:       NewGuard("gemini", cfg.GeminiRPM, cfg.UpstreamTimeout, metrics),
		// Ingestion embeds every chunk, so the embedding side gets a wider budget.
		embed:   NewGuard("gemini-embeddings", cfg.GeminiRPM*25, cfg.UpstreamTimeout, metrics),
		metrics: metrics,
	}, nil
}

// Generate sends the conversation with a system instruction and returns the
// first candidate's text. The last turn must be the user's.
func (gc *GeminiClient) Generate(ctx context.Context, systemInstruction string, contents []models.Turn) (string, error) {
	history, last, err := splitConversation(contents)
	if err != nil {
		return "", models.Upstream("gemini", "generate", err)
	}

	resp, err := Do(ctx, gc.generate, "generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		model := gc.client.GenerativeModel(gc.model)
		if systemInstruction != "" {
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
		}

		cs := model.StartChat()
		cs.History = history

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("gemini.model", gc.model),
			attribute.Int("gemini.history_turns", len(history)),
		)
		return cs.SendMessage(ctx, genai.Text(last))
	})
	if err != nil {
		return "", err
	}

	if tokens := extractTokenUsage(resp); tokens > 0 {
		gc.metrics.RecordTokensUsed(int64(tokens), gc.model)
	}

	text := strings.TrimSpace(extractResponseText(resp))
	if text == "" {
		return "", models.Upstream("gemini", "generate", models.ErrEmptyResponse)
	}
	return text, nil
}

// EmbedDocument embeds a chunk for storage.
func (gc *GeminiClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return gc.embedText(ctx, "embed_document", genai.TaskTypeRetrievalDocument, text)
}

// EmbedQuery embeds a search query.
func (gc *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return gc.embedText(ctx, "embed_query", genai.TaskTypeRetrievalQuery, text)
}

func (gc *GeminiClient) embedText(ctx context.Context, op string, task genai.TaskType, text string) ([]float32, error) {
	values, err := Do(ctx, gc.embed, op, func(ctx context.Context) ([]float32, error) {
		em := gc.embedClient.EmbeddingModel(gc.embeddingModel)
		em.TaskType = task

		resp, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.embedClient != nil && gc.embedClient != gc.client {
		gc.embedClient.Close()
	}
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func splitConversation(turns []models.Turn) ([]*genai.Content, string, error) {
	if len(turns) == 0 {
		return nil, "", fmt.Errorf("empty conversation")
	}
	last := turns[len(turns)-1]
	if last.Role != models.RoleUser {
		return nil, "", fmt.Errorf("conversation must end with a %s turn, got %q", models.RoleUser, last.Role)
	}
	return toContents(turns[:len(turns)-1]), last.Text, nil
}

func toContents(turns []models.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return contents
}

func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	return int(resp.UsageMetadata.TotalTokenCount)
}
