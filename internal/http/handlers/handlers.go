// handlers содержит REST-обработчики: вход и выход, пользователи, RAG и история.
// Бизнес-логика живёт в service; здесь только разбор запроса, cookie и JSON.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/models"
)

// maxBodyBytes ограничивает размер JSON-тела запроса.
const maxBodyBytes = 1 << 20

// Service — сценарии, которые вызывают обработчики.
type Service interface {
	Login(ctx context.Context, name, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	GoogleAuthURL() (string, string, error)
	GoogleLogin(ctx context.Context, code, state, expectedState string) (*models.TokenPair, error)

	UserInfo(ctx context.Context, id int64) (*models.UserInfo, error)
	CreateUser(ctx context.Context, in models.UserCreate) (*models.UserInfo, error)
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.UserInfo, error)
	Me(ctx context.Context) (*models.UserInfo, error)

	RunRAG(ctx context.Context, task, element string) (*models.RAGResult, error)
	ListHistory(ctx context.Context, userID int64, limit int) ([]models.History, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc     Service
	cookies Cookies
}

// New создаёт обработчики.
func New(svc Service, cookies Cookies) *Handlers {
	return &Handlers{svc: svc, cookies: cookies}
}

// MessageResponse — ответ вида {"message": "..."}.
type MessageResponse struct {
	Message string `json:"message"`
}

// Root отвечает на GET / (проверка, что backend поднят).
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "risk-assistant backend is up"})
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост
// после объекта. Любая ошибка разбора оборачивается в ErrInvalidBody.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", apierrors.ErrInvalidBody)
	}

	return nil
}
