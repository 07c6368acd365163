// oauth реализует вход через Google (OAuth 2.0 authorization code + OpenID ID token).
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pribylovaa/risk-assistant/internal/config"
)

// ErrInvalidIDToken — ID token отсутствует или не прошёл проверку
// издателя, аудитории или срока. Транспорт: HTTP 400.
var ErrInvalidIDToken = errors.New("invalid id token")

// googleIssuers — допустимые значения iss у Google ID token.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// UpstreamError — сбой обмена кода у провайдера. Status — HTTP-статус
// ответа провайдера, 0 если ответа не было.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oauth upstream status %d: %v", e.Status, e.Err)
	}

	return fmt.Sprintf("oauth upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Identity — проверенные данные пользователя из ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// Google — клиент OAuth Google.
type Google struct {
	cfg  *oauth2.Config
	now  func() time.Time
	http *http.Client
}

// Option настраивает Google.
type Option func(*Google)

// WithEndpoint подменяет эндпоинты провайдера.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *Google) { g.cfg.Endpoint = ep }
}

// WithHTTPClient задаёт HTTP-клиент для обмена кода.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Google) { g.http = c }
}

// WithClock подменяет источник времени для проверки exp.
func WithClock(now func() time.Time) Option {
	return func(g *Google) { g.now = now }
}

// NewGoogle создаёт клиент по конфигурации OAuth.
func NewGoogle(c config.OAuthConfig, opts ...Option) *Google {
	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// StateToken генерирует случайный state для защиты от CSRF.
func StateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthURL возвращает адрес страницы согласия Google.
func (g *Google) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange обменивает код на токены и возвращает проверенную идентичность.
//
// Подпись ID token не проверяется: токен получен напрямую от token endpoint
// Google по TLS. Проверяются iss, aud и exp.
func (g *Google) Exchange(ctx context.Context, code string) (*Identity, error) {
	const op = "oauth.Google.Exchange"

	if g.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.http)
	}

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		ue := &UpstreamError{Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			ue.Status = re.Response.StatusCode
		}
		return nil, fmt.Errorf("%s: %w", op, ue)
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("%s: missing id_token: %w", op, ErrInvalidIDToken)
	}

	id, err := g.parseIDToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (g *Google) parseIDToken(raw string) (*Identity, error) {
	var c idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return nil, fmt.Errorf("parse: %w", ErrInvalidIDToken)
	}

	if !slices.Contains(googleIssuers, c.Issuer) {
		return nil, fmt.Errorf("issuer %q: %w", c.Issuer, ErrInvalidIDToken)
	}

	if !slices.Contains([]string(c.Audience), g.cfg.ClientID) {
		return nil, fmt.Errorf("audience: %w", ErrInvalidIDToken)
	}

	if c.ExpiresAt == nil || !g.now().Before(c.ExpiresAt.Time) {
		return nil, fmt.Errorf("expired: %w", ErrInvalidIDToken)
	}

	if c.Subject == "" || c.Email == "" {
		return nil, fmt.Errorf("subject or email missing: %w", ErrInvalidIDToken)
	}

	return &Identity{
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
	}, nil
}
