package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/pkg/identity"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
)

// RunRAG выполняет RAG для текущего пользователя и, если подключено
// хранилище истории, сохраняет результат. Сбой записи истории только
// логируется.
func (s *Service) RunRAG(ctx context.Context, task, element string) (*models.RAGResult, error) {
	const op = "service.rag.RunRAG"

	if s.assistant == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrRAGDisabled)
	}

	res, err := s.assistant.Run(ctx, task, element)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, ok := identity.User(ctx)
	if s.history == nil || !ok {
		return res, nil
	}

	h := &models.History{
		UserID:      u.ID,
		Type:        models.HistoryTypeRAG,
		Title:       task,
		Description: element,
		Content:     res,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.history.SaveHistory(ctx, h); err != nil {
		log.From(ctx).Error("history_save_failed",
			slog.String("op", op),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
	}

	return res, nil
}

// ListHistory возвращает историю пользователя, новые записи первыми.
// Без хранилища истории возвращается пустой список.
func (s *Service) ListHistory(ctx context.Context, userID int64, limit int) ([]models.History, error) {
	const op = "service.rag.ListHistory"

	if s.history == nil {
		return []models.History{}, nil
	}

	items, err := s.history.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if items == nil {
		items = []models.History{}
	}

	return items, nil
}
