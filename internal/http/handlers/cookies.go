package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/risk-assistant/internal/http/middleware"
	"github.com/pribylovaa/risk-assistant/internal/models"
)

const (
	// RefreshTokenCookie — cookie с refresh-токеном.
	RefreshTokenCookie = "refresh_token"
	// StateCookie — CSRF state OAuth-потока.
	StateCookie = "oauth_state"

	stateTTL = 10 * time.Minute
)

// Cookies выставляет и очищает auth-cookie. Все cookie HttpOnly, SameSite=Lax,
// Path=/; Secure задаётся конфигурацией.
type Cookies struct {
	Secure bool
}

func (c Cookies) cookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl / time.Second)
	} else {
		ck.MaxAge = -1
	}

	return ck
}

// SetTokens выставляет access- и refresh-cookie с Max-Age по срокам жизни токенов.
func (c Cookies) SetTokens(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, pair.AccessToken, pair.AccessTTL))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, pair.RefreshToken, pair.RefreshTTL))
}

// ClearTokens удаляет access- и refresh-cookie.
func (c Cookies) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, "", 0))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", 0))
}

// SetState выставляет короткоживущую cookie со state.
func (c Cookies) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, c.cookie(StateCookie, state, stateTTL))
}

// ClearState удаляет cookie со state.
func (c Cookies) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(StateCookie, "", 0))
}

// cookieValue возвращает значение cookie или пустую строку.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
