package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/service"
)

// CreateUserRequest — тело POST /user/create.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserRequest — тело PATCH /user/{id}. Отсутствующие поля не меняются.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Me(r.Context())
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	info, err := h.svc.UserInfo(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in CreateUserRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, err)
		return
	}

	info, err := h.svc.CreateUser(r.Context(), models.UserCreate{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	var in UpdateUserRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, err)
		return
	}

	info, err := h.svc.UpdateUser(r.Context(), id, models.UserUpdate{
		Name:     in.Name,
		Email:    in.Email,
		Role:     in.Role,
		IsActive: in.IsActive,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// userID разбирает {id} из пути.
func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Msg: "invalid user id"}
	}
	return id, nil
}
