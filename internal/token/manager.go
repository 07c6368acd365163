// token выпускает и проверяет JWT (HS256) двух видов: access и refresh,
// ведёт множество отозванных jti и хэширует пароли.
//
// Основные аспекты:
//   - каждый токен несёт sub, type, jti, iat, exp, iss;
//   - Verify сворачивает все "ожидаемые" причины отказа (подпись, алгоритм,
//     формат, срок, вид, пустой или отозванный jti) в ErrInvalidToken;
//     любая другая ошибка — сбой хранилища отзывов;
//   - Manager не хранит состояния запроса и безопасен для конкурентного
//     использования при потокобезопасном RevocationStore.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/risk-assistant/internal/config"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
)

// ErrInvalidToken — токен не прошёл проверку по любой ожидаемой причине.
// Транспорт: HTTP 401.
var ErrInvalidToken = errors.New("invalid token")

// Claims — полезная нагрузка токена.
type Claims struct {
	Kind models.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// Manager выпускает, проверяет и отзывает токены.
type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RevocationStore
	now        func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов сроков жизни).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager создаёт Manager по параметрам auth-конфигурации.
func NewManager(cfg config.AuthConfig, store RevocationStore, opts ...Option) *Manager {
	m := &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}

	if m.accessTTL <= 0 {
		m.accessTTL = 15 * time.Minute
	}
	if m.refreshTTL <= 0 {
		m.refreshTTL = 7 * 24 * time.Hour
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AccessTTL возвращает срок жизни access-токена.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL возвращает срок жизни refresh-токена.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// Create выпускает подписанный токен вида kind со сроком ttl и свежим jti.
func (m *Manager) Create(ctx context.Context, subject string, kind models.TokenKind, ttl time.Duration) (string, error) {
	const op = "token.Manager.Create"

	now := m.now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		log.From(ctx).Error("token_sign_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// CreateAccess выпускает access-токен с настроенным сроком жизни.
func (m *Manager) CreateAccess(ctx context.Context, subject string) (string, error) {
	return m.Create(ctx, subject, models.TokenAccess, m.accessTTL)
}

// CreateRefresh выпускает refresh-токен с настроенным сроком жизни.
func (m *Manager) CreateRefresh(ctx context.Context, subject string) (string, error) {
	return m.Create(ctx, subject, models.TokenRefresh, m.refreshTTL)
}

// Verify проверяет подпись, срок, вид и отзыв токена.
// Ожидаемые отказы возвращаются как ErrInvalidToken, прочие ошибки —
// сбои хранилища отзывов.
func (m *Manager) Verify(ctx context.Context, raw string, expected models.TokenKind) (*Claims, error) {
	const op = "token.Manager.Verify"

	lg := log.From(ctx)

	if raw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		lg.Debug("token_parse_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Kind != expected {
		lg.Debug("token_kind_mismatch",
			slog.String("op", op),
			slog.String("expected", string(expected)),
			slog.String("got", string(claims.Kind)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	revoked, err := m.store.IsRevoked(ctx, expected, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		lg.Debug("token_revoked", slog.String("op", op), slog.String("kind", string(expected)))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// Revoke добавляет jti в множество отозванных. Повторный отзыв не ошибка:
// added=false означает, что jti уже был отозван.
func (m *Manager) Revoke(ctx context.Context, jti string, kind models.TokenKind, expiresAt time.Time) (bool, error) {
	const op = "token.Manager.Revoke"

	added, err := m.store.Revoke(ctx, kind, jti, expiresAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return added, nil
}

// RevokeClaims отзывает токен по его проверенным claims.
func (m *Manager) RevokeClaims(ctx context.Context, c *Claims) (bool, error) {
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	} else {
		exp = m.now().Add(m.refreshTTL)
	}

	return m.Revoke(ctx, c.ID, c.Kind, exp)
}
