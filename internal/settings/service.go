package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Service owns both setting scopes. Per-user settings are strictly
// self-service; the global scope is admin-only and every global change is
// audited.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store Store, recorder *audit.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || recorder == nil {
		return nil, fmt.Errorf("settings store and audit recorder are required")
	}
	return &Service{store: store, recorder: recorder, logger: logger}, nil
}

func (s *Service) SetUser(ctx context.Context, caller identity.Principal, key, value string) (Setting, error) {
	if caller.Anonymous() {
		return Setting{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if key == "" {
		return Setting{}, dErrors.New(dErrors.CodeValidation, "setting key is required")
	}

	now := time.Now().UTC()
	userID := caller.ID
	out, err := s.store.UpsertUser(ctx, Setting{
		ID:        uuid.New(),
		UserID:    &userID,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Setting{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to save setting")
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, caller identity.Principal, key string) (Setting, error) {
	if caller.Anonymous() {
		return Setting{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.FindUser(ctx, caller.ID, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Setting{}, dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return Setting{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load setting")
	}
	return out, nil
}

func (s *Service) ListUser(ctx context.Context, caller identity.Principal) ([]Setting, error) {
	if caller.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.ListUser(ctx, caller.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list settings")
	}
	return out, nil
}

func (s *Service) DeleteUser(ctx context.Context, caller identity.Principal, key string) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.store.DeleteUser(ctx, caller.ID, key); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete setting")
	}
	return nil
}

func (s *Service) SetGlobal(ctx context.Context, caller identity.Principal, key, value string) (Setting, error) {
	if caller.Anonymous() {
		return Setting{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionUpdate, authz.KindSettings, caller, false) != authz.Allow {
		return Setting{}, dErrors.New(dErrors.CodeForbidden, "not permitted to change global settings")
	}
	if key == "" {
		return Setting{}, dErrors.New(dErrors.CodeValidation, "setting key is required")
	}

	before, err := s.store.FindGlobal(ctx, key)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Setting{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load setting")
	}
	var old any
	if err == nil {
		old = before
	}

	now := time.Now().UTC()
	out, err := s.store.UpsertGlobal(ctx, Setting{
		ID:        uuid.New(),
		Key:       key,
		Value:     value,
		IsGlobal:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Setting{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to save setting")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateGlobalSet, authz.KindSettings, out.ID, old, out)
	return out, nil
}

// GetGlobal is readable by any caller; global settings carry deployment-wide
// presentation values, not secrets.
func (s *Service) GetGlobal(ctx context.Context, key string) (Setting, error) {
	out, err := s.store.FindGlobal(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Setting{}, dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return Setting{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load setting")
	}
	return out, nil
}

func (s *Service) ListGlobal(ctx context.Context) ([]Setting, error) {
	out, err := s.store.ListGlobal(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list settings")
	}
	return out, nil
}

func (s *Service) DeleteGlobal(ctx context.Context, caller identity.Principal, key string) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionDelete, authz.KindSettings, caller, false) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to change global settings")
	}

	before, err := s.store.FindGlobal(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to load setting")
	}

	if err := s.store.DeleteGlobal(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete setting")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateGlobalSet, authz.KindSettings, before.ID, before, nil)
	return nil
}
