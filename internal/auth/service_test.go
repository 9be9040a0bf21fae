package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/identity"
	"communityhub/internal/user"
	dErrors "communityhub/pkg/domain-errors"
)

type AuthServiceSuite struct {
	suite.Suite
	store   *user.InMemoryStore
	service *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.store = user.NewInMemoryStore()

	var err error
	s.service, err = NewService(s.store, []byte("test-signing-key"), time.Hour,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) signup(email string) user.User {
	u, err := s.service.Signup(context.Background(), SignupInput{
		Email:    email,
		Password: "correct horse",
		FullName: "Pat Lee",
	})
	s.Require().NoError(err)
	return u
}

func (s *AuthServiceSuite) TestSignup() {
	ctx := context.Background()

	s.Run("invalid email fails validation", func() {
		_, err := s.service.Signup(ctx, SignupInput{Email: "nope", Password: "long enough", FullName: "Pat"})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("short password fails validation", func() {
		_, err := s.service.Signup(ctx, SignupInput{Email: "pat@example.org", Password: "short", FullName: "Pat"})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("new member account is active with MEMBER role", func() {
		u := s.signup("pat@example.org")
		s.Equal(identity.RoleMember, u.Role)
		s.True(u.IsActive)
		s.NotEqual("correct horse", u.PasswordHash)
	})

	s.Run("duplicate email is a validation failure", func() {
		_, err := s.service.Signup(ctx, SignupInput{
			Email: "pat@example.org", Password: "correct horse", FullName: "Other Pat",
		})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *AuthServiceSuite) TestLogin() {
	ctx := context.Background()
	u := s.signup("login@example.org")

	s.Run("unknown email is unauthorized", func() {
		_, _, err := s.service.Login(ctx, "missing@example.org", "correct horse")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong password is unauthorized", func() {
		_, _, err := s.service.Login(ctx, "login@example.org", "wrong horse")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("valid credentials yield a token for the account", func() {
		token, got, err := s.service.Login(ctx, "login@example.org", "correct horse")
		s.NoError(err)
		s.Equal(u.ID, got.ID)

		id, err := s.service.Validate(token)
		s.NoError(err)
		s.Equal(u.ID, id)
	})
}

func (s *AuthServiceSuite) TestValidate() {
	s.Run("garbage token is rejected", func() {
		_, err := s.service.Validate("not-a-token")
		s.Error(err)
	})

	s.Run("token signed with another key is rejected", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.NewString(),
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("other-key"))
		s.Require().NoError(err)

		_, err = s.service.Validate(token)
		s.Error(err)
	})

	s.Run("expired token is rejected", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.NewString(),
			"exp": time.Now().Add(-time.Minute).Unix(),
		}).SignedString([]byte("test-signing-key"))
		s.Require().NoError(err)

		_, err = s.service.Validate(token)
		s.Error(err)
	})

	s.Run("token without expiry is rejected", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.NewString(),
		}).SignedString([]byte("test-signing-key"))
		s.Require().NoError(err)

		_, err = s.service.Validate(token)
		s.Error(err)
	})
}
