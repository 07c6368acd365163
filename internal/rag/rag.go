// rag — пайплайн retrieval-augmented generation для оценки рисков:
// эмбеддинг запроса, kNN-поиск похожих случаев в индексе отчётов
// и генерация опасностей и мер снижения риска LLM.
package rag

import (
	"context"
	"errors"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

// ErrEmptyQuery — не задана работа или элемент работы. Транспорт: HTTP 400.
var ErrEmptyQuery = errors.New("task and element are required")

// Embedder превращает текст в вектор.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Searcher ищет k ближайших документов к вектору.
type Searcher interface {
	Search(ctx context.Context, vector []float64, k int) ([]models.RAGDocument, error)
}

// Generator возвращает ответ LLM на системный и пользовательский промпты.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
