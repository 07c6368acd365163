package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/risk-assistant/internal/mocks"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/rag"
)

func TestRunRAG_Disabled(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	_, err := env.svc.RunRAG(withUser(1), "t", "e")
	require.ErrorIs(t, err, ErrRAGDisabled)
}

func TestRunRAG_RecordsHistory(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	env := newEnv(t)
	a := mocks.NewMockAssistant(ctrl)
	h := mocks.NewMockHistoryStorage(ctrl)
	env.svc.SetAssistant(a)
	env.svc.SetHistory(h)

	res := &models.RAGResult{RAGs: []models.RiskItem{{Hazard: "h"}}}
	a.EXPECT().Run(gomock.Any(), "Painting", "Ladder").Return(res, nil)
	h.EXPECT().SaveHistory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *models.History) error {
			require.Equal(t, int64(5), rec.UserID)
			require.Equal(t, models.HistoryTypeRAG, rec.Type)
			require.Equal(t, "Painting", rec.Title)
			require.Equal(t, "Ladder", rec.Description)
			require.Same(t, res, rec.Content)
			require.False(t, rec.CreatedAt.IsZero())
			return nil
		})

	got, err := env.svc.RunRAG(withUser(5), "Painting", "Ladder")
	require.NoError(t, err)
	require.Same(t, res, got)
}

func TestRunRAG_HistoryFailureIgnored(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	env := newEnv(t)
	a := mocks.NewMockAssistant(ctrl)
	h := mocks.NewMockHistoryStorage(ctrl)
	env.svc.SetAssistant(a)
	env.svc.SetHistory(h)

	a.EXPECT().Run(gomock.Any(), "t", "e").Return(&models.RAGResult{Message: rag.NoMatchesMessage}, nil)
	h.EXPECT().SaveHistory(gomock.Any(), gomock.Any()).Return(errors.New("mongo down"))

	got, err := env.svc.RunRAG(withUser(5), "t", "e")
	require.NoError(t, err)
	require.Equal(t, rag.NoMatchesMessage, got.Message)
}

func TestRunRAG_AssistantError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	env := newEnv(t)
	a := mocks.NewMockAssistant(ctrl)
	env.svc.SetAssistant(a)

	a.EXPECT().Run(gomock.Any(), "", "e").Return(nil, rag.ErrEmptyQuery)

	_, err := env.svc.RunRAG(withUser(5), "", "e")
	require.ErrorIs(t, err, rag.ErrEmptyQuery)
}

func TestListHistory(t *testing.T) {
	t.Parallel()

	t.Run("no_store", func(t *testing.T) {
		env := newEnv(t)
		items, err := env.svc.ListHistory(context.Background(), 5, 10)
		require.NoError(t, err)
		require.NotNil(t, items)
		require.Empty(t, items)
	})

	t.Run("from_store", func(t *testing.T) {
		env := newEnv(t)
		h := mocks.NewMockHistoryStorage(gomock.NewController(t))
		env.svc.SetHistory(h)
		h.EXPECT().ListHistory(gomock.Any(), int64(5), 10).
			Return([]models.History{{ID: "a", UserID: 5}}, nil)

		items, err := env.svc.ListHistory(context.Background(), 5, 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})
}
