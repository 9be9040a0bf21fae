package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// Handler exposes the admin endpoints. Role enforcement lives in the service;
// the routes only require an authenticated principal.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/dashboard", h.handleDashboard)

		r.Get("/users", h.handleListUsers)
		r.Get("/users/{id}", h.handleGetUser)
		r.Put("/users/{id}/role", h.handleUpdateRole)
		r.Delete("/users/{id}", h.handleDeleteUser)

		r.Get("/audit-logs", h.handleRecentLogs)
		r.Get("/audit-logs/entity/{kind}/{id}", h.handleEntityLogs)
		r.Get("/audit-logs/actor/{id}", h.handleActorLogs)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dash, err := h.service.Stats(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, dash)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.service.ListUsers(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	u, err := h.service.GetUser(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, u)
}

type roleRequest struct {
	Role identity.Role `json:"role"`
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, err := h.service.UpdateUserRole(ctx, requestcontext.Principal(ctx), id, req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.DeleteUser(ctx, requestcontext.Principal(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.RecentAuditLogs(ctx, requestcontext.Principal(ctx), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordViews(records))
}

func (h *Handler) handleEntityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	kind := authz.EntityKind(chi.URLParam(r, "kind"))
	records, err := h.service.EntityAuditLogs(ctx, requestcontext.Principal(ctx), kind, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordViews(records))
}

func (h *Handler) handleActorLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	records, err := h.service.ActorAuditLogs(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordViews(records))
}

type recordView struct {
	ID         uuid.UUID        `json:"id"`
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	Action     string           `json:"action"`
	EntityKind authz.EntityKind `json:"entity_kind"`
	EntityID   uuid.UUID        `json:"entity_id"`
	OldValues  *string          `json:"old_values,omitempty"`
	NewValues  *string          `json:"new_values,omitempty"`
	IPAddress  string           `json:"ip_address,omitempty"`
	ClientInfo string           `json:"client_info,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func recordViews(records []audit.Record) []recordView {
	out := make([]recordView, 0, len(records))
	for _, rec := range records {
		out = append(out, recordView{
			ID:         rec.ID,
			ActorID:    rec.ActorID,
			Action:     rec.Action,
			EntityKind: rec.EntityKind,
			EntityID:   rec.EntityID,
			OldValues:  rec.OldValues,
			NewValues:  rec.NewValues,
			IPAddress:  rec.IPAddress,
			ClientInfo: rec.ClientInfo,
			CreatedAt:  rec.CreatedAt,
		})
	}
	return out
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid identifier")
	}
	return id, nil
}
