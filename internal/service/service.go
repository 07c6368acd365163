// service содержит бизнес-логику приложения: вход по паролю и через Google,
// ротацию и отзыв токенов, управление пользователями и запуск RAG.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасных хранилищах;
//   - ошибки возвращаются обёрнутыми в op и маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ниже);
//   - OAuth, RAG и история подключаются опционально через Set*.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/oauth"
	"github.com/pribylovaa/risk-assistant/internal/storage"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

var (
	// ErrInvalidCredentials — неизвестное имя, нет пароля или пароль неверен.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrInactiveUser — пользователь деактивирован. Транспорт: HTTP 400.
	ErrInactiveUser = errors.New("inactive user")

	// ErrRefreshTokenMissing — refresh-токен не передан. Транспорт: HTTP 401.
	ErrRefreshTokenMissing = errors.New("refresh token missing")

	// ErrInvalidRefreshToken — refresh-токен не прошёл проверку или уже
	// использован. Транспорт: HTTP 401.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// ErrInvalidRefreshPayload — в refresh-токене нет корректного sub.
	// errors.Is(err, ErrInvalidRefreshToken) тоже истинно.
	ErrInvalidRefreshPayload = fmt.Errorf("%w: bad payload", ErrInvalidRefreshToken)

	// ErrUserUnavailable — владелец токена удалён или деактивирован.
	// Транспорт: HTTP 401.
	ErrUserUnavailable = errors.New("user inactive or not found")

	// ErrUnauthenticated — в контексте нет текущего пользователя.
	// Транспорт: HTTP 401.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrUserNotFound — пользователь не найден. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists — имя или email уже заняты. Транспорт: HTTP 409.
	ErrUserExists = errors.New("user already exists")

	// ErrEmailConflict — email привязан к другому Google-аккаунту.
	// Транспорт: HTTP 409.
	ErrEmailConflict = errors.New("email already registered with another account")

	// ErrForbidden — операция над чужой учётной записью или ролью без прав
	// администратора. Транспорт: HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument — некорректные входные данные. Транспорт: HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOAuthDisabled — вход через Google не сконфигурирован. Транспорт: HTTP 501.
	ErrOAuthDisabled = errors.New("google login is not configured")

	// ErrOAuthState — state отсутствует или не совпал. Транспорт: HTTP 400.
	ErrOAuthState = errors.New("state mismatch or missing")

	// ErrRAGDisabled — RAG не сконфигурирован. Транспорт: HTTP 503.
	ErrRAGDisabled = errors.New("rag is not configured")
)

// ValidationError — некорректное поле запроса. Msg безопасно отдавать
// клиенту; errors.Is(err, ErrInvalidArgument) истинно.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// OAuthProvider — внешний провайдер входа (Google).
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Identity, error)
}

// Assistant — RAG-пайплайн.
type Assistant interface {
	Run(ctx context.Context, task, element string) (*models.RAGResult, error)
}

// Service описывает бизнес-логику приложения.
type Service struct {
	storage   storage.Storage
	tokens    *token.Manager
	hasher    token.PasswordHasher
	oauth     OAuthProvider          // nil, если Google не сконфигурирован
	assistant Assistant              // nil, если RAG не сконфигурирован
	history   storage.HistoryStorage // nil, если история не сконфигурирована
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, tokens *token.Manager, hasher token.PasswordHasher) *Service {
	return &Service{
		storage: st,
		tokens:  tokens,
		hasher:  hasher,
	}
}

// SetOAuth подключает вход через Google (опционально).
func (s *Service) SetOAuth(p OAuthProvider) {
	s.oauth = p
}

// SetAssistant подключает RAG (опционально).
func (s *Service) SetAssistant(a Assistant) {
	s.assistant = a
}

// SetHistory подключает хранилище истории (опционально).
func (s *Service) SetHistory(h storage.HistoryStorage) {
	s.history = h
}
