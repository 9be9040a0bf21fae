package user

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

// Notifier lets the service tell a user about account-level changes without
// depending on the notification package directly.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID)
}

// Service owns profile and account administration.
type Service struct {
	store    Store
	cache    *ProfileCache
	blobs    blob.Store
	recorder *audit.Recorder
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the Redis profile cache.
func WithCache(cache *ProfileCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithNotifier attaches a best-effort notification emitter.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(store Store, blobs blob.Store, recorder *audit.Recorder, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil || recorder == nil {
		return nil, fmt.Errorf("user store and audit recorder are required")
	}
	s := &Service{store: store, blobs: blobs, recorder: recorder, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PrincipalByID resolves an active account into a request principal. The auth
// middleware calls this on every authenticated request; deactivated and
// deleted accounts both come back as sentinel.ErrNotFound so their tokens die
// immediately.
func (s *Service) PrincipalByID(ctx context.Context, id uuid.UUID) (identity.Principal, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return identity.Principal{}, err
	}
	if !u.IsActive {
		return identity.Principal{}, sentinel.ErrNotFound
	}
	return u.Principal(), nil
}

// Profile returns the caller's own profile, cache-first.
func (s *Service) Profile(ctx context.Context, caller identity.Principal) (User, error) {
	if caller.Anonymous() {
		return User{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if cached, ok := s.cache.Get(ctx, caller.ID.String()); ok {
		return cached, nil
	}

	u, err := s.store.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load profile")
	}
	s.cache.Set(ctx, u)
	return u, nil
}

// ProfileInput carries the self-service profile fields; nil leaves a field
// untouched.
type ProfileInput struct {
	FullName      *string
	Phone         *string
	City          *string
	State         *string
	District      *string
	CommunityName *string
}

func (s *Service) UpdateProfile(ctx context.Context, caller identity.Principal, in ProfileInput) (User, error) {
	if caller.Anonymous() {
		return User{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	u, err := s.store.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load profile")
	}

	if in.FullName != nil {
		if *in.FullName == "" {
			return User{}, dErrors.New(dErrors.CodeValidation, "full name is required")
		}
		u.FullName = *in.FullName
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.City != nil {
		u.City = *in.City
	}
	if in.State != nil {
		u.State = *in.State
	}
	if in.District != nil {
		u.District = *in.District
	}
	if in.CommunityName != nil {
		u.CommunityName = *in.CommunityName
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, u); err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update profile")
	}
	s.cache.Evict(ctx, u.ID.String())
	return u, nil
}

// UpdateAvatar stores the uploaded image and records its name on the profile.
// The previous avatar file is removed best-effort.
func (s *Service) UpdateAvatar(ctx context.Context, caller identity.Principal, filename string, payload io.Reader) (string, error) {
	if caller.Anonymous() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if s.blobs == nil {
		return "", dErrors.New(dErrors.CodeInternal, "file storage is not configured")
	}

	u, err := s.store.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to load profile")
	}

	stored, err := s.blobs.Save(ctx, filename, payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to store avatar")
	}

	previous := u.AvatarURL
	u.AvatarURL = stored
	u.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to update profile")
	}
	s.cache.Evict(ctx, u.ID.String())

	if previous != "" {
		if err := s.blobs.Delete(ctx, previous); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to remove previous avatar",
				"user_id", u.ID,
				"error", err,
			)
		}
	}
	return stored, nil
}

// ListUsers returns every account. Admin only.
func (s *Service) ListUsers(ctx context.Context, caller identity.Principal) ([]User, error) {
	if !caller.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list users")
	}
	return users, nil
}

// GetUser returns one account. Admin only.
func (s *Service) GetUser(ctx context.Context, caller identity.Principal, id uuid.UUID) (User, error) {
	if !caller.IsAdmin() {
		return User{}, dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load user")
	}
	return u, nil
}

// UpdateRole changes an account's role. The audit record is written as a
// system action with no actor, and the affected user is notified.
func (s *Service) UpdateRole(ctx context.Context, caller identity.Principal, id uuid.UUID, role identity.Role) (User, error) {
	if !caller.IsAdmin() {
		return User{}, dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	if !role.Valid() {
		return User{}, dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	updated, err := s.store.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update role")
	}
	s.cache.Evict(ctx, id.String())

	s.recorder.Record(ctx, nil, audit.ActionUpdateUserRole, authz.KindUser, id, nil, updated)
	if s.notifier != nil {
		s.notifier.Notify(ctx, id, fmt.Sprintf("Your role was changed to %s.", role), "account", id)
	}
	return updated, nil
}

// DeleteUser removes an account permanently. The audit record is a system
// action; the actor column is nulled rather than cascaded.
func (s *Service) DeleteUser(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete user")
	}
	s.cache.Evict(ctx, id.String())

	s.recorder.Record(ctx, nil, audit.ActionDeleteUser, authz.KindUser, id, nil, nil)
	return nil
}

// Counts feeds the admin dashboard.
type Counts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Admins  int `json:"admins"`
	Members int `json:"members"`
}

func (s *Service) Stats(ctx context.Context) (Counts, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return Counts{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count users")
	}
	active, err := s.store.CountActive(ctx)
	if err != nil {
		return Counts{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count users")
	}
	admins, err := s.store.CountByRole(ctx, identity.RoleAdmin)
	if err != nil {
		return Counts{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count users")
	}
	members, err := s.store.CountByRole(ctx, identity.RoleMember)
	if err != nil {
		return Counts{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count users")
	}
	return Counts{Total: total, Active: active, Admins: admins, Members: members}, nil
}
