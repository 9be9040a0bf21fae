package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/platform/blob"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Service owns document lifecycle. Metadata lives in the store, payloads in
// the blob store. All reads are graded by the caller's access set; a document
// outside that set does not exist as far as the caller can tell.
type Service struct {
	store    Store
	blobs    blob.Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store Store, blobs blob.Store, recorder *audit.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || blobs == nil || recorder == nil {
		return nil, fmt.Errorf("document store, blob store, and audit recorder are required")
	}
	return &Service{store: store, blobs: blobs, recorder: recorder, logger: logger}, nil
}

// UploadInput carries the caller-supplied fields for a new document.
type UploadInput struct {
	Title       string
	Description string
	Category    string
	AccessLevel authz.AccessLevel
	FileName    string
	FileType    string
	FileSize    int64
	Payload     io.Reader
}

func (in UploadInput) validate() error {
	if in.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if in.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if !in.AccessLevel.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown access level")
	}
	if in.Payload == nil {
		return dErrors.New(dErrors.CodeValidation, "file payload is required")
	}
	return nil
}

func (s *Service) Upload(ctx context.Context, caller identity.Principal, in UploadInput) (Document, error) {
	if caller.Anonymous() {
		return Document{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionCreate, authz.KindDocument, caller, false) != authz.Allow {
		return Document{}, dErrors.New(dErrors.CodeForbidden, "not permitted to upload documents")
	}
	// Only admins may publish above the member tier.
	if !caller.IsAdmin() && (in.AccessLevel == authz.LevelCommittee || in.AccessLevel == authz.LevelAdmin) {
		return Document{}, dErrors.New(dErrors.CodeForbidden, "not permitted to set this access level")
	}
	if err := in.validate(); err != nil {
		return Document{}, err
	}

	stored, err := s.blobs.Save(ctx, in.FileName, in.Payload)
	if err != nil {
		return Document{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store file")
	}

	now := time.Now().UTC()
	d := Document{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		AccessLevel: in.AccessLevel,
		FileType:    in.FileType,
		FileSize:    in.FileSize,
		FileName:    stored,
		UploadedBy:  caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, d); err != nil {
		// Metadata failed; do not strand the payload.
		if derr := s.blobs.Delete(ctx, stored); derr != nil {
			s.logger.WarnContext(ctx, "orphaned blob after failed document insert",
				"file", stored, "error", derr)
		}
		return Document{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create document")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUploadDocument, authz.KindDocument, d.ID, nil, d)
	return d, nil
}

// Get returns one document the caller is allowed to see.
func (s *Service) Get(ctx context.Context, caller identity.Principal, id uuid.UUID) (Document, error) {
	return s.visible(ctx, caller, id)
}

// List returns the documents within the caller's access set.
func (s *Service) List(ctx context.Context, caller identity.Principal, filter Filter) ([]Document, error) {
	filter.Levels = authz.AccessibleLevels(caller)
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list documents")
	}
	return out, nil
}

// Download streams the payload and counts the download. The caller owns
// closing the reader.
func (s *Service) Download(ctx context.Context, caller identity.Principal, id uuid.UUID) (Document, io.ReadCloser, error) {
	d, err := s.visible(ctx, caller, id)
	if err != nil {
		return Document{}, nil, err
	}

	rc, _, err := s.blobs.Open(ctx, d.FileName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Document{}, nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return Document{}, nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to open file")
	}

	// Counting is best effort; a counter failure must not block the download.
	if err := s.store.RecordDownload(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "download count update failed", "document_id", id, "error", err)
	} else {
		d.DownloadCount++
	}
	return d, rc, nil
}

// UpdateInput applies partial metadata changes; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	AccessLevel *authz.AccessLevel
}

func (s *Service) Update(ctx context.Context, caller identity.Principal, id uuid.UUID, in UpdateInput) (Document, error) {
	before, err := s.visible(ctx, caller, id)
	if err != nil {
		return Document{}, err
	}
	if authz.Decide(authz.ActionUpdate, authz.KindDocument, caller, caller.Owns(before.UploadedBy)) != authz.Allow {
		return Document{}, dErrors.New(dErrors.CodeForbidden, "not permitted to update this document")
	}

	d := before
	if in.Title != nil {
		if *in.Title == "" {
			return Document{}, dErrors.New(dErrors.CodeValidation, "title is required")
		}
		d.Title = *in.Title
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.Category != nil {
		if *in.Category == "" {
			return Document{}, dErrors.New(dErrors.CodeValidation, "category is required")
		}
		d.Category = *in.Category
	}
	if in.AccessLevel != nil {
		if !in.AccessLevel.Valid() {
			return Document{}, dErrors.New(dErrors.CodeValidation, "unknown access level")
		}
		if !caller.IsAdmin() && (*in.AccessLevel == authz.LevelCommittee || *in.AccessLevel == authz.LevelAdmin) {
			return Document{}, dErrors.New(dErrors.CodeForbidden, "not permitted to set this access level")
		}
		d.AccessLevel = *in.AccessLevel
	}
	d.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Document{}, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return Document{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update document")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateDocument, authz.KindDocument, d.ID, before, d)
	return d, nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	before, err := s.visible(ctx, caller, id)
	if err != nil {
		return err
	}
	if authz.Decide(authz.ActionDelete, authz.KindDocument, caller, caller.Owns(before.UploadedBy)) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to delete this document")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete document")
	}
	if err := s.blobs.Delete(ctx, before.FileName); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "orphaned blob after document delete",
			"file", before.FileName, "error", err)
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionDeleteDocument, authz.KindDocument, id, before, nil)
	return nil
}

// Count reports the total number of documents. Used by the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count documents")
	}
	return n, nil
}

// visible loads a document and applies the access grade. A document outside
// the caller's set comes back NotFound, never Forbidden.
func (s *Service) visible(ctx context.Context, caller identity.Principal, id uuid.UUID) (Document, error) {
	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Document{}, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return Document{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load document")
	}
	if !authz.CanReadDocument(caller, d.AccessLevel) {
		return Document{}, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return d, nil
}
