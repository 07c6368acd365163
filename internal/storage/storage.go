// storage задаёт контракты хранилищ и общие ошибки.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (name/email/google_id).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя и заполняет ID/CreatedAt/UpdatedAt.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// UserByName находит пользователя по имени.
	UserByName(ctx context.Context, name string) (*models.User, error)
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByGoogleID находит пользователя по идентификатору Google.
	UserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	// UpdateUser применяет частичное обновление и возвращает итоговую запись.
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
}

// HistoryStorage хранит историю запусков RAG.
type HistoryStorage interface {
	// SaveHistory сохраняет запись и заполняет её ID.
	SaveHistory(ctx context.Context, h *models.History) error
	// ListHistory возвращает записи пользователя, новые первыми.
	ListHistory(ctx context.Context, userID int64, limit int) ([]models.History, error)
}

// Storage — основное хранилище сервиса.
type Storage interface {
	UserStorage
	Ping(ctx context.Context) error
	Close()
}
