package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
)

// NoMatchesMessage — ответ, когда индекс не вернул похожих случаев.
const NoMatchesMessage = "No similar cases found."

// Assistant связывает эмбеддер, поиск и генератор.
type Assistant struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	topK      int
}

// NewAssistant создаёт Assistant; topK <= 0 означает 10.
func NewAssistant(e Embedder, s Searcher, g Generator, topK int) *Assistant {
	if topK <= 0 {
		topK = 10
	}

	return &Assistant{embedder: e, searcher: s, generator: g, topK: topK}
}

// Run выполняет RAG для пары (работа, элемент работы).
func (a *Assistant) Run(ctx context.Context, task, element string) (*models.RAGResult, error) {
	const op = "rag.Assistant.Run"

	task = strings.TrimSpace(task)
	element = strings.TrimSpace(element)
	if task == "" || element == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyQuery)
	}

	lg := log.From(ctx).With(slog.String("op", op))

	vector, err := a.embedder.Embed(ctx, buildQuery(task, element))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	docs, err := a.searcher.Search(ctx, vector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(docs) == 0 {
		lg.Info("rag_no_matches")
		return &models.RAGResult{Message: NoMatchesMessage}, nil
	}

	answer, err := a.generator.Generate(ctx, systemPrompt, buildPrompt(task, element, docs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := parseResult(answer)
	if res.RawResponse != "" {
		lg.Warn("rag_unparsable_answer", slog.Int("len", len(answer)))
	} else {
		lg.Info("rag_done",
			slog.Int("docs", len(docs)),
			slog.Int("rags", len(res.RAGs)),
			slog.Int("llms", len(res.LLMs)),
		)
	}

	return res, nil
}
