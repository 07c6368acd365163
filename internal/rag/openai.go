package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pribylovaa/risk-assistant/internal/config"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-large"
	DefaultChatModel      = "gpt-4-1106-preview"
)

var errEmptyResponse = errors.New("empty response")

// NewOpenAIClient создаёт клиент OpenAI по конфигурации RAG.
func NewOpenAIClient(cfg config.RAGConfig, opts ...option.RequestOption) openai.Client {
	base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.OpenAIBaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	return openai.NewClient(append(base, opts...)...)
}

// OpenAIEmbedder — Embedder поверх OpenAI Embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder создаёт эмбеддер; пустая модель — text-embedding-3-large.
func NewOpenAIEmbedder(client openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &OpenAIEmbedder{client: client, model: model}
}

// Embed возвращает вектор текста.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	const op = "rag.OpenAIEmbedder.Embed"

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errEmptyResponse)
	}

	return resp.Data[0].Embedding, nil
}

// OpenAIGenerator — Generator поверх Chat Completions API с temperature 0.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator создаёт генератор; пустая модель — gpt-4-1106-preview.
func NewOpenAIGenerator(client openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = DefaultChatModel
	}

	return &OpenAIGenerator{client: client, model: model}
}

// Generate возвращает текст первого варианта ответа.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	const op = "rag.OpenAIGenerator.Generate"

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, errEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}
