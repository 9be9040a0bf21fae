// Package auth handles account registration and login. Tokens are HS256 JWTs
// carrying the user ID as subject; the auth middleware re-resolves the account
// on every request, so a token outlives neither deactivation nor deletion.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"communityhub/internal/identity"
	"communityhub/internal/user"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

const minPasswordLength = 8

// Service issues and validates credentials.
type Service struct {
	users      user.Store
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewService(users user.Store, signingKey []byte, tokenTTL time.Duration, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	return &Service{users: users, signingKey: signingKey, tokenTTL: tokenTTL, logger: logger}, nil
}

// SignupInput carries the registration fields.
type SignupInput struct {
	Email         string
	Password      string
	FullName      string
	Phone         string
	City          string
	State         string
	District      string
	CommunityName string
}

func (in SignupInput) validate() error {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "a valid email address is required")
	}
	if len(in.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if in.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	return nil
}

// Signup creates a MEMBER account. A taken email is a validation failure, not
// a conflict: the endpoint is public and the distinction leaks nothing useful.
func (s *Service) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	if err := in.validate(); err != nil {
		return user.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	u := user.User{
		ID:            uuid.New(),
		Email:         in.Email,
		PasswordHash:  string(hash),
		FullName:      in.FullName,
		Role:          identity.RoleMember,
		Phone:         in.Phone,
		City:          in.City,
		State:         in.State,
		District:      in.District,
		CommunityName: in.CommunityName,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return user.User{}, dErrors.New(dErrors.CodeValidation, "email is already registered")
		}
		return user.User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account created", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and returns a signed token with the account.
// Unknown email, wrong password, and deactivated account are indistinguishable
// to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.User, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", user.User{}, invalid
		}
		return "", user.User{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load account")
	}
	if !u.IsActive {
		return "", user.User{}, invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", user.User{}, invalid
	}

	token, err := s.issue(u)
	if err != nil {
		return "", user.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return token, u, nil
}

func (s *Service) issue(u user.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Validate checks a bearer token and returns the subject user ID. It
// implements the auth middleware's TokenValidator.
func (s *Service) Validate(token string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject: %w", err)
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject: %w", err)
	}
	return id, nil
}
