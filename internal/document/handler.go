package document

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"communityhub/internal/authz"
	"communityhub/internal/transport/http/shared"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/requestcontext"
)

// maxUploadBytes caps document uploads at 50 MiB.
const maxUploadBytes = 50 << 20

// Handler exposes the document library endpoints. Reads run under
// optionalAuth so anonymous callers see the PUBLIC tier.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/documents", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.handleList)
		r.With(optionalAuth).Get("/{id}", h.handleGet)
		r.With(optionalAuth).Get("/{id}/download", h.handleDownload)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.handleUpload)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart payload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document file is required"))
		return
	}
	defer file.Close()

	level := authz.AccessLevel(r.FormValue("access_level"))
	if level == "" {
		level = authz.LevelPublic
	}

	d, err := h.service.Upload(ctx, requestcontext.Principal(ctx), UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		AccessLevel: level,
		FileName:    header.Filename,
		FileType:    header.Header.Get("Content-Type"),
		FileSize:    header.Size,
		Payload:     file,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := Filter{
		Title:    r.URL.Query().Get("title"),
		Category: r.URL.Query().Get("category"),
	}
	docs, err := h.service.List(ctx, requestcontext.Principal(ctx), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	shared.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.service.Get(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	d, rc, err := h.service.Download(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	defer rc.Close()

	if d.FileType != "" {
		w.Header().Set("Content-Type", d.FileType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if d.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.FileSize, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Title))

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(ctx, "document stream interrupted", "document_id", id, "error", err)
	}
}

type updateRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	AccessLevel *authz.AccessLevel `json:"access_level"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
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
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
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

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid identifier")
	}
	return id, nil
}
