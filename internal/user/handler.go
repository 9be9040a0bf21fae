package user

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// maxAvatarBytes caps avatar uploads at 5 MiB.
const maxAvatarBytes = 5 << 20

// Handler exposes the self-service profile endpoints. Account administration
// lives under the admin surface.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/users/me", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.handleProfile)
		r.Put("/", h.handleUpdateProfile)
		r.Post("/avatar", h.handleUpdateAvatar)
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.service.Profile(ctx, requestcontext.Principal(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, u)
}

type profileRequest struct {
	FullName      *string `json:"full_name"`
	Phone         *string `json:"phone"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	District      *string `json:"district"`
	CommunityName *string `json:"community_name"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, err := h.service.UpdateProfile(ctx, requestcontext.Principal(ctx), ProfileInput{
		FullName:      req.FullName,
		Phone:         req.Phone,
		City:          req.City,
		State:         req.State,
		District:      req.District,
		CommunityName: req.CommunityName,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart payload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "avatar file is required"))
		return
	}
	defer file.Close()

	stored, err := h.service.UpdateAvatar(ctx, requestcontext.Principal(ctx), header.Filename, file)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"avatar_url": stored})
}
