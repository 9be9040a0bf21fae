package event

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"communityhub/internal/registry"
	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// Handler exposes the event endpoints. Reads are public (anonymous callers
// see open data); every mutation requires an authenticated principal.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the event routes. requireAuth must resolve a principal or
// reject; optionalAuth resolves one when a token is present.
func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/events", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.handleList)
		r.With(optionalAuth).Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/register", h.handleRegister)
			r.Delete("/{id}/register", h.handleUnregister)
			r.Get("/{id}/participants", h.handleParticipants)
			r.Get("/registrations/me", h.handleMyRegistrations)
			r.Patch("/registrations/{registrationID}", h.handleUpdateRegistration)
		})
	})
}

type createRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	EventDate            time.Time  `json:"event_date"`
	EndDate              *time.Time `json:"end_date"`
	Location             string     `json:"location"`
	MaxParticipants      *int       `json:"max_participants"`
	ImageURL             string     `json:"image_url"`
	RegistrationRequired bool       `json:"registration_required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ev, err := h.service.Create(ctx, requestcontext.Principal(ctx), CreateInput{
		Title:                req.Title,
		Description:          req.Description,
		EventDate:            req.EventDate,
		EndDate:              req.EndDate,
		Location:             req.Location,
		MaxParticipants:      req.MaxParticipants,
		ImageURL:             req.ImageURL,
		RegistrationRequired: req.RegistrationRequired,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Title:    r.URL.Query().Get("title"),
		Location: r.URL.Query().Get("location"),
		Status:   Status(r.URL.Query().Get("status")),
	}
	events, err := h.service.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	shared.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	ev, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ev)
}

type updateRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	EventDate            *time.Time `json:"event_date"`
	EndDate              *time.Time `json:"end_date"`
	Location             *string    `json:"location"`
	MaxParticipants      *int       `json:"max_participants"`
	Status               *Status    `json:"status"`
	ImageURL             *string    `json:"image_url"`
	RegistrationRequired *bool      `json:"registration_required"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ev, err := h.service.Update(ctx, requestcontext.Principal(ctx), id, UpdateInput{
		Title:                req.Title,
		Description:          req.Description,
		EventDate:            req.EventDate,
		EndDate:              req.EndDate,
		Location:             req.Location,
		MaxParticipants:      req.MaxParticipants,
		Status:               req.Status,
		ImageURL:             req.ImageURL,
		RegistrationRequired: req.RegistrationRequired,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ev)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, requestcontext.Principal(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	reg, err := h.service.Register(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registrationResponse(reg))
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Unregister(ctx, requestcontext.Principal(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	regs, err := h.service.Participants(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, registrationResponses(regs))
}

func (h *Handler) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regs, err := h.service.MyRegistrations(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, registrationResponses(regs))
}

type updateRegistrationRequest struct {
	Status registry.Status `json:"status"`
	Notes  *string         `json:"notes"`
}

func (h *Handler) handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "registrationID")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.service.UpdateRegistrationStatus(ctx, requestcontext.Principal(ctx), id, req.Status, req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, registrationResponse(reg))
}

type registrationView struct {
	ID           uuid.UUID       `json:"id"`
	EventID      uuid.UUID       `json:"event_id"`
	UserID       uuid.UUID       `json:"user_id"`
	Status       registry.Status `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	RegisteredAt time.Time       `json:"registered_at"`
}

func registrationResponse(reg registry.Registration) registrationView {
	return registrationView{
		ID:           reg.ID,
		EventID:      reg.SubjectID,
		UserID:       reg.UserID,
		Status:       reg.Status,
		Notes:        reg.Notes,
		RegisteredAt: reg.RegisteredAt,
	}
}

func registrationResponses(regs []registry.Registration) []registrationView {
	out := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		out = append(out, registrationResponse(reg))
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
