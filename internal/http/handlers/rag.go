package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/pkg/identity"
	"github.com/pribylovaa/risk-assistant/internal/service"
)

// RAGRequest — тело POST /rag.
type RAGRequest struct {
	Task    string `json:"task"`
	Element string `json:"element"`
}

func (h *Handlers) RAG(w http.ResponseWriter, r *http.Request) {
	var in RAGRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, err)
		return
	}

	res, err := h.svc.RunRAG(r.Context(), in.Task, in.Element)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// History отдаёт историю текущего пользователя. ?limit=N ограничивает выдачу.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	u, ok := identity.User(r.Context())
	if !ok {
		apierrors.WriteError(w, service.ErrUnauthenticated)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apierrors.WriteError(w, &service.ValidationError{Msg: "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.svc.ListHistory(r.Context(), u.ID, limit)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
