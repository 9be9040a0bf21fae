package discussion

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// Handler exposes the discussion endpoints. Threads and replies are publicly
// readable; posting and managing require an authenticated principal.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/discussions", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.handleList)
		r.With(optionalAuth).Get("/{id}", h.handleGet)
		r.With(optionalAuth).Get("/{id}/replies", h.handleListReplies)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/replies", h.handleAddReply)
			r.Put("/replies/{replyID}", h.handleUpdateReply)
			r.Delete("/replies/{replyID}", h.handleDeleteReply)
		})
	})
}

type createRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	d, err := h.service.Create(ctx, requestcontext.Principal(ctx), CreateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Title:    r.URL.Query().Get("title"),
		Category: r.URL.Query().Get("category"),
	}
	discussions, err := h.service.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if discussions == nil {
		discussions = []Discussion{}
	}
	shared.WriteJSON(w, http.StatusOK, discussions)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
}

type updateRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	IsPinned *bool   `json:"is_pinned"`
	IsLocked *bool   `json:"is_locked"`
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

	d, err := h.service.Update(ctx, requestcontext.Principal(ctx), id, UpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		IsPinned: req.IsPinned,
		IsLocked: req.IsLocked,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
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

type replyRequest struct {
	Content       string     `json:"content"`
	ParentReplyID *uuid.UUID `json:"parent_reply_id"`
}

func (h *Handler) handleAddReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reply, err := h.service.AddReply(ctx, requestcontext.Principal(ctx), id, ReplyInput{
		Content:       req.Content,
		ParentReplyID: req.ParentReplyID,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, reply)
}

func (h *Handler) handleListReplies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	replies, err := h.service.Replies(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if replies == nil {
		replies = []Reply{}
	}
	shared.WriteJSON(w, http.StatusOK, replies)
}

type updateReplyRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleUpdateReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "replyID")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reply, err := h.service.UpdateReply(ctx, requestcontext.Principal(ctx), id, req.Content)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "replyID")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.DeleteReply(ctx, requestcontext.Principal(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid identifier")
	}
	return id, nil
}
