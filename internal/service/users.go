package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/pkg/identity"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
	"github.com/pribylovaa/risk-assistant/internal/storage"
)

const (
	maxNameLen     = 50
	minPasswordLen = 8
)

// CreateUser создаёт пользователя. Пароль необязателен: без него войти
// можно только через Google. Роль, отличную от user, назначает только
// администратор; вызов без личности в контексте (cmd/seed) не ограничен.
func (s *Service) CreateUser(ctx context.Context, in models.UserCreate) (*models.UserInfo, error) {
	const op = "service.users.CreateUser"

	name, err := validateName(in.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleUser
	}

	if caller, ok := identity.User(ctx); ok && role != models.RoleUser && !isAdmin(caller) {
		log.From(ctx).Warn("user_create_forbidden",
			slog.String("op", op),
			slog.Int64("caller_id", caller.ID),
			slog.String("role", role),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}

	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.PasswordHash = hash
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_created", slog.String("op", op), slog.Int64("user_id", user.ID))

	info := user.Info()

	return &info, nil
}

// UpdateUser применяет частичное обновление. Пароль хэшируется перед
// сохранением; поля, равные nil, не меняются.
// Обычный пользователь меняет только свою запись и не трогает Role и IsActive.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.UserInfo, error) {
	const op = "service.users.UpdateUser"

	caller, ok := identity.User(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	if !isAdmin(caller) && (caller.ID != id || upd.Role != nil || upd.IsActive != nil) {
		log.From(ctx).Warn("user_update_forbidden",
			slog.String("op", op),
			slog.Int64("caller_id", caller.ID),
			slog.Int64("user_id", id),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Name = &name
	}

	if upd.Email != nil {
		email, err := validateEmail(*upd.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Email = &email
	}

	if upd.Role != nil && strings.TrimSpace(*upd.Role) == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("role must not be empty"))
	}

	// Хэш и привязка Google задаются только сервисом.
	upd.PasswordHash = nil
	upd.GoogleID = nil

	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.PasswordHash = &hash
		upd.Password = nil
	}

	user, err := s.storage.UpdateUser(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.From(ctx).Info("user_updated", slog.String("op", op), slog.Int64("user_id", user.ID))

	info := user.Info()

	return &info, nil
}

// Me возвращает пользователя, приложенного к запросу Auth-мидлварью.
func (s *Service) Me(ctx context.Context) (*models.UserInfo, error) {
	const op = "service.users.Me"

	u, ok := identity.User(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	return &u, nil
}

func isAdmin(u models.UserInfo) bool {
	return u.Role == models.RoleAdmin
}

// validateName обрезает пробелы и проверяет длину имени.
func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name is required")
	}

	if utf8.RuneCountInString(name) > maxNameLen {
		return "", invalid("name is longer than %d characters", maxNameLen)
	}

	return name, nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", invalid("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("invalid email format")
	}

	return email, nil
}

// validatePassword проверяет минимальную длину пароля.
func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}

	return nil
}
