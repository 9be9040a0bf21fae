package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// Handler exposes the settings endpoints. The /settings/me scope is
// self-service; /settings/global reads are public and writes admin-only
// (enforced in the service).
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/global", h.handleListGlobal)
		r.Get("/global/{key}", h.handleGetGlobal)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", h.handleListUser)
			r.Get("/me/{key}", h.handleGetUser)
			r.Put("/me/{key}", h.handleSetUser)
			r.Delete("/me/{key}", h.handleDeleteUser)

			r.Put("/global/{key}", h.handleSetGlobal)
			r.Delete("/global/{key}", h.handleDeleteGlobal)
		})
	})
}

type valueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) handleSetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	out, err := h.service.SetUser(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.service.GetUser(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "key"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.service.ListUser(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []Setting{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeleteUser(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "key")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetGlobal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	out, err := h.service.SetGlobal(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetGlobal(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListGlobal(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListGlobal(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []Setting{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeleteGlobal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeleteGlobal(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "key")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
