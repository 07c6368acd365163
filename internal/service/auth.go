package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/oauth"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
	"github.com/pribylovaa/risk-assistant/internal/pkg/redact"
	"github.com/pribylovaa/risk-assistant/internal/storage"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

// Login выполняет вход по имени и паролю.
func (s *Service) Login(ctx context.Context, name, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx).With(slog.String("op", op), slog.String("name", redact.Name(name)))

	user, err := s.storage.UserByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_failed", slog.String("reason", "unknown_user"))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		lg.Info("login_failed", slog.String("reason", "bad_password"))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrInactiveUser)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded", slog.Int64("user_id", user.ID))

	return pair, nil
}

// Refresh обменивает refresh-токен на новую пару. Старый refresh-токен
// отзывается; из нескольких конкурентных обменов одного токена успешен
// ровно один.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx).With(slog.String("op", op))

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenMissing)
	}

	claims, err := s.tokens.Verify(ctx, refreshToken, models.TokenRefresh)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseSubject(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshPayload)
	}

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserUnavailable)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrUserUnavailable)
	}

	added, err := s.tokens.RevokeClaims(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !added {
		lg.Warn("refresh_reuse_detected", slog.Int64("user_id", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("tokens_refreshed", slog.Int64("user_id", user.ID))

	return pair, nil
}

// Logout отзывает переданные токены. Отсутствующие и невалидные токены
// пропускаются; ошибка возвращается только при сбое хранилища отзывов.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	const op = "service.auth.Logout"

	tokens := []struct {
		raw  string
		kind models.TokenKind
	}{
		{accessToken, models.TokenAccess},
		{refreshToken, models.TokenRefresh},
	}

	revoked := 0
	for _, t := range tokens {
		if t.raw == "" {
			continue
		}

		claims, err := s.tokens.Verify(ctx, t.raw, t.kind)
		if err != nil {
			if errors.Is(err, token.ErrInvalidToken) {
				continue
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := s.tokens.RevokeClaims(ctx, claims); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		revoked++
	}

	log.From(ctx).Info("logout", slog.String("op", op), slog.Int("revoked", revoked))

	return nil
}

// UserInfo возвращает публичные данные пользователя.
func (s *Service) UserInfo(ctx context.Context, id int64) (*models.UserInfo, error) {
	const op = "service.auth.UserInfo"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := user.Info()

	return &info, nil
}

// GoogleAuthURL возвращает адрес согласия Google и state для проверки
// на обратном вызове.
func (s *Service) GoogleAuthURL() (string, string, error) {
	const op = "service.auth.GoogleAuthURL"

	if s.oauth == nil {
		return "", "", fmt.Errorf("%s: %w", op, ErrOAuthDisabled)
	}

	state, err := oauth.StateToken()
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return s.oauth.AuthURL(state), state, nil
}

// GoogleLogin завершает вход через Google: проверяет state, обменивает
// code, находит, привязывает или создаёт пользователя и выпускает пару
// токенов.
func (s *Service) GoogleLogin(ctx context.Context, code, state, expectedState string) (*models.TokenPair, error) {
	const op = "service.auth.GoogleLogin"

	if s.oauth == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrOAuthDisabled)
	}

	if state == "" || expectedState == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrOAuthState)
	}

	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("code is required"))
	}

	ident, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.googleUser(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrInactiveUser)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("google_login_succeeded", slog.String("op", op), slog.Int64("user_id", user.ID))

	return pair, nil
}

// googleUser находит пользователя по Google ID, затем по email (с привязкой),
// иначе создаёт нового без пароля.
func (s *Service) googleUser(ctx context.Context, ident *oauth.Identity) (*models.User, error) {
	const op = "service.auth.googleUser"

	lg := log.From(ctx).With(slog.String("op", op))

	user, err := s.storage.UserByGoogleID(ctx, ident.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = s.storage.UserByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		if user.GoogleID != "" && user.GoogleID != ident.Subject {
			lg.Warn("google_email_conflict", slog.String("email", redact.Email(ident.Email)))
			return nil, fmt.Errorf("%s: %w", op, ErrEmailConflict)
		}

		// Привязка по email только если Google подтвердил владение адресом.
		if !ident.EmailVerified {
			lg.Warn("google_email_unverified", slog.Int64("user_id", user.ID))
			return nil, fmt.Errorf("%s: %w", op, ErrEmailConflict)
		}

		sub := ident.Subject
		linked, err := s.storage.UpdateUser(ctx, user.ID, models.UserUpdate{GoogleID: &sub})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrEmailConflict)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lg.Info("google_account_linked", slog.Int64("user_id", linked.ID))

		return linked, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name, err := s.freeName(ctx, googleBaseName(ident))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user = &models.User{
		Name:     name,
		Email:    ident.Email,
		Role:     models.RoleUser,
		IsActive: true,
		GoogleID: ident.Subject,
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("google_user_created", slog.Int64("user_id", user.ID), slog.String("name", redact.Name(name)))

	return user, nil
}

// freeName возвращает base, если имя свободно, иначе base с суффиксом
// из 8 случайных hex-символов.
func (s *Service) freeName(ctx context.Context, base string) (string, error) {
	_, err := s.storage.UserByName(ctx, base)
	if errors.Is(err, storage.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}

	return base + "_" + uuid.NewString()[:8], nil
}

func googleBaseName(ident *oauth.Identity) string {
	local, _, _ := strings.Cut(ident.Email, "@")
	if local == "" {
		return ident.Subject
	}

	return local
}

// issueTokenPair выпускает новую пару access+refresh для пользователя.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	sub := strconv.FormatInt(user.ID, 10)

	access, err := s.tokens.CreateAccess(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.tokens.CreateRefresh(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.tokens.AccessTTL(),
		RefreshTTL:   s.tokens.RefreshTTL(),
	}, nil
}

// ParseSubject разбирает sub токена в положительный ID пользователя.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive user id %d", id)
	}

	return id, nil
}
