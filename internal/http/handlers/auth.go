package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/http/middleware"
)

// LoginRequest — тело POST /auth/login.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// GoogleURLResponse — ответ GET /auth/google.
type GoogleURLResponse struct {
	URL string `json:"url"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Name, in.Password)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	h.cookies.SetTokens(w, pair)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Login successful"})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.Refresh(r.Context(), cookieValue(r, RefreshTokenCookie))
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	h.cookies.SetTokens(w, pair)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Tokens refreshed successfully"})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(),
		cookieValue(r, middleware.AccessTokenCookie),
		cookieValue(r, RefreshTokenCookie),
	)

	// Cookie очищаются при любом исходе, в том числе при сбое хранилища отзывов.
	h.cookies.ClearTokens(w)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *Handlers) GoogleAuth(w http.ResponseWriter, _ *http.Request) {
	url, state, err := h.svc.GoogleAuthURL()
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	h.cookies.SetState(w, state)
	writeJSON(w, http.StatusOK, GoogleURLResponse{URL: url})
}

func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := cookieValue(r, StateCookie)

	// state одноразовый: чистим cookie при любом исходе.
	h.cookies.ClearState(w)

	pair, err := h.svc.GoogleLogin(r.Context(), q.Get("code"), q.Get("state"), expected)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	h.cookies.SetTokens(w, pair)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Google login successful"})
}
