package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/pkg/identity"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
	"github.com/pribylovaa/risk-assistant/internal/service"
	"github.com/pribylovaa/risk-assistant/internal/storage"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

// AccessTokenCookie — cookie с access-токеном.
const AccessTokenCookie = "access_token"

// Ответы Auth-мидлвари (HTTP 401).
const (
	DetailAccessTokenMissing = "Not authenticated. Access token missing."
	DetailInvalidAccessToken = "Invalid or expired access token."
	DetailUserIDMissing      = "Invalid token payload: user ID missing."
	DetailBadUserID          = "Invalid user ID format in token."
	DetailUserUnavailable    = "User inactive or not found."
)

// TokenVerifier проверяет токен ожидаемого вида.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string, expected models.TokenKind) (*token.Claims, error)
}

// UserLoader загружает пользователя по ID.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

// PublicPaths — пути, не требующие аутентификации.
// Exact сравниваются целиком; Prefix совпадает с самим путём и со всем,
// что лежит под ним ("/docs" пропускает "/docs/x", но не "/docsx").
type PublicPaths struct {
	Exact  []string
	Prefix []string
}

// DefaultPublicPaths возвращает список публичных путей под basePath.
// Корень сравнивается только точно.
func DefaultPublicPaths(basePath string) PublicPaths {
	base := strings.TrimSuffix(basePath, "/")

	exact := []string{base + "/"}
	if base != "" {
		exact = append(exact, base)
	}

	prefix := make([]string, 0, 7)
	for _, p := range []string{
		"/auth/login",
		"/auth/google",
		"/auth/google/callback",
		"/auth/refresh",
		"/docs",
		"/redoc",
		"/openapi.json",
	} {
		prefix = append(prefix, base+p)
	}

	return PublicPaths{Exact: exact, Prefix: prefix}
}

// Match сообщает, публичен ли путь.
func (p PublicPaths) Match(path string) bool {
	for _, e := range p.Exact {
		if path == e {
			return true
		}
	}
	for _, pre := range p.Prefix {
		if path == pre || strings.HasPrefix(path, pre+"/") {
			return true
		}
	}
	return false
}

// Authenticate пропускает публичные пути, а для остальных проверяет
// access-токен из cookie, загружает пользователя и кладёт его в контекст
// (см. identity). Ответ следующего обработчика не изменяется.
func Authenticate(v TokenVerifier, users UserLoader, public PublicPaths) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			lg := log.From(ctx)

			c, err := r.Cookie(AccessTokenCookie)
			if err != nil || c.Value == "" {
				apierrors.WriteDetail(w, http.StatusUnauthorized, DetailAccessTokenMissing)
				return
			}

			claims, err := v.Verify(ctx, c.Value, models.TokenAccess)
			if err != nil {
				if errors.Is(err, token.ErrInvalidToken) {
					apierrors.WriteDetail(w, http.StatusUnauthorized, DetailInvalidAccessToken)
					return
				}
				lg.Error("auth_verify_failed", slog.String("err", err.Error()))
				apierrors.WriteDetail(w, http.StatusInternalServerError, apierrors.DetailInternal)
				return
			}

			if claims.Subject == "" {
				apierrors.WriteDetail(w, http.StatusUnauthorized, DetailUserIDMissing)
				return
			}

			id, err := service.ParseSubject(claims.Subject)
			if err != nil {
				apierrors.WriteDetail(w, http.StatusUnauthorized, DetailBadUserID)
				return
			}

			user, err := users.UserByID(ctx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					apierrors.WriteDetail(w, http.StatusUnauthorized, DetailUserUnavailable)
					return
				}
				lg.Error("auth_user_lookup_failed", slog.Int64("user_id", id), slog.String("err", err.Error()))
				apierrors.WriteDetail(w, http.StatusInternalServerError, apierrors.DetailInternal)
				return
			}
			if !user.IsActive {
				apierrors.WriteDetail(w, http.StatusUnauthorized, DetailUserUnavailable)
				return
			}

			ctx = identity.Into(ctx, identity.Identity{User: user.Info(), Claims: claims})
			ctx = log.With(ctx, slog.Int64("user_id", user.ID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
