package notification

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// Handler exposes the notification endpoints. Everything here requires an
// authenticated caller and is scoped to them.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.handleList)
		r.Get("/unread", h.handleUnread)
		r.Get("/unread/count", h.handleUnreadCount)
		r.Put("/{id}/read", h.handleMarkRead)
		r.Put("/read-all", h.handleMarkAllRead)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.service.List(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []Notification{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.service.Unread(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []Notification{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.UnreadCount(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
		return
	}
	n, err := h.service.MarkRead(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.MarkAllRead(ctx, requestcontext.Principal(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
		return
	}
	if err := h.service.Delete(ctx, requestcontext.Principal(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
