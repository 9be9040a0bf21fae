package document

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/platform/blob"
	"communityhub/internal/platform/metrics"
	dErrors "communityhub/pkg/domain-errors"
)

type DocumentServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(audit.NewInMemoryStore(), logger, m)
	s.Require().NoError(err)

	blobs, err := blob.NewLocalStore(s.T().TempDir())
	s.Require().NoError(err)

	s.service, err = NewService(s.store, blobs, recorder, logger)
	s.Require().NoError(err)
}

func (s *DocumentServiceSuite) member() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Member", Role: identity.RoleMember}
}

func (s *DocumentServiceSuite) admin() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
}

func (s *DocumentServiceSuite) upload(caller identity.Principal, level authz.AccessLevel) Document {
	d, err := s.service.Upload(context.Background(), caller, UploadInput{
		Title:       "Bylaws",
		Category:    "Governance",
		AccessLevel: level,
		FileName:    "bylaws.pdf",
		FileType:    "application/pdf",
		FileSize:    11,
		Payload:     strings.NewReader("pdf payload"),
	})
	s.Require().NoError(err)
	return d
}

func (s *DocumentServiceSuite) TestUpload() {
	ctx := context.Background()

	s.Run("anonymous caller is rejected", func() {
		_, err := s.service.Upload(ctx, identity.Principal{}, UploadInput{Title: "x"})
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing category fails validation", func() {
		_, err := s.service.Upload(ctx, s.member(), UploadInput{
			Title:       "Bylaws",
			AccessLevel: authz.LevelPublic,
			Payload:     strings.NewReader("x"),
		})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("member cannot publish to the committee tier", func() {
		_, err := s.service.Upload(ctx, s.member(), UploadInput{
			Title:       "Minutes",
			Category:    "Governance",
			AccessLevel: authz.LevelCommittee,
			Payload:     strings.NewReader("x"),
		})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("member uploads a public document", func() {
		caller := s.member()
		d := s.upload(caller, authz.LevelPublic)
		s.Equal(caller.ID, d.UploadedBy)
		s.Equal(0, d.DownloadCount)
		s.NotEmpty(d.FileName)
	})
}

func (s *DocumentServiceSuite) TestAccessGrading() {
	ctx := context.Background()
	restricted := s.upload(s.admin(), authz.LevelCommittee)
	public := s.upload(s.member(), authz.LevelPublic)

	s.Run("member gets not found for a committee document", func() {
		_, err := s.service.Get(ctx, s.member(), restricted.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("anonymous caller gets not found for a committee document", func() {
		_, err := s.service.Get(ctx, identity.Principal{}, restricted.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("admin sees every tier", func() {
		d, err := s.service.Get(ctx, s.admin(), restricted.ID)
		s.NoError(err)
		s.Equal(restricted.ID, d.ID)
	})

	s.Run("listing is graded to the caller's set", func() {
		anon, err := s.service.List(ctx, identity.Principal{}, Filter{})
		s.Require().NoError(err)
		s.Len(anon, 1)
		s.Equal(public.ID, anon[0].ID)

		all, err := s.service.List(ctx, s.admin(), Filter{})
		s.Require().NoError(err)
		s.Len(all, 2)
	})

	s.Run("download outside the set is not found", func() {
		_, _, err := s.service.Download(ctx, s.member(), restricted.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *DocumentServiceSuite) TestDownload() {
	ctx := context.Background()
	doc := s.upload(s.member(), authz.LevelPublic)

	s.Run("download streams the payload and counts", func() {
		d, rc, err := s.service.Download(ctx, s.member(), doc.ID)
		s.Require().NoError(err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		s.NoError(err)
		s.Equal("pdf payload", string(data))
		s.Equal(1, d.DownloadCount)
	})

	s.Run("counter accumulates across downloads", func() {
		_, rc, err := s.service.Download(ctx, s.member(), doc.ID)
		s.Require().NoError(err)
		rc.Close()

		d, err := s.service.Get(ctx, s.member(), doc.ID)
		s.Require().NoError(err)
		s.Equal(2, d.DownloadCount)
	})
}

func (s *DocumentServiceSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("uploader updates their own document", func() {
		caller := s.member()
		doc := s.upload(caller, authz.LevelPublic)

		title := "Bylaws v2"
		updated, err := s.service.Update(ctx, caller, doc.ID, UpdateInput{Title: &title})
		s.NoError(err)
		s.Equal("Bylaws v2", updated.Title)
	})

	s.Run("unrelated member is forbidden", func() {
		doc := s.upload(s.member(), authz.LevelPublic)

		title := "Hijacked"
		_, err := s.service.Update(ctx, s.member(), doc.ID, UpdateInput{Title: &title})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("uploader cannot raise the level beyond their reach", func() {
		caller := s.member()
		doc := s.upload(caller, authz.LevelPublic)

		level := authz.LevelAdmin
		_, err := s.service.Update(ctx, caller, doc.ID, UpdateInput{AccessLevel: &level})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})
}

func (s *DocumentServiceSuite) TestDelete() {
	ctx := context.Background()

	s.Run("uploader deletes their own document", func() {
		caller := s.member()
		doc := s.upload(caller, authz.LevelPublic)

		s.NoError(s.service.Delete(ctx, caller, doc.ID))

		_, err := s.service.Get(ctx, caller, doc.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unrelated member is forbidden", func() {
		doc := s.upload(s.member(), authz.LevelPublic)

		err := s.service.Delete(ctx, s.member(), doc.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})
}
