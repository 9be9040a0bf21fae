// Package document manages the shared file library. Every document carries an
// access level; callers outside a document's level see NotFound, never
// Forbidden, so restricted material does not leak its existence.
package document

import (
	"time"

	"github.com/google/uuid"

	"communityhub/internal/authz"
)

// Document is one library entry. FileName is the blob store's name for the
// stored file; DownloadCount is a denormalized counter bumped on each download.
type Document struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Category      string            `json:"category"`
	AccessLevel   authz.AccessLevel `json:"access_level"`
	FileType      string            `json:"file_type,omitempty"`
	FileSize      int64             `json:"file_size"`
	FileName      string            `json:"-"`
	DownloadCount int               `json:"download_count"`
	UploadedBy    uuid.UUID         `json:"uploaded_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Filter narrows listings; zero values match everything. Levels is the
// caller's accessible set and is always applied.
type Filter struct {
	Title    string
	Category string
	Levels   []authz.AccessLevel
}
