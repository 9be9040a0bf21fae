//go:build integration

package event

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/platform/metrics"
	"communityhub/internal/platform/postgres"
	"communityhub/internal/registry"
	"communityhub/internal/user"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// The in-memory suites cover the service semantics; this suite covers what
// only a real database can: the conditional-UPDATE admission path, the floor
// guard, and the partial unique index on active registrations.
type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	store     *PostgresStore
	users     *user.PostgresStore
	engine    *registry.Engine
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("communityhub"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sql.Open("pgx", dsn)
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(s.db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(audit.NewPostgresStore(s.db), logger, m)
	s.Require().NoError(err)

	s.store = NewPostgresStore(s.db)
	s.users = user.NewPostgresStore(s.db)
	s.engine, err = registry.NewEngine(authz.KindEvent, s.store,
		registry.NewPostgresRegistrations(s.db, "event_registrations", "event_id"),
		tx.NewRunner(s.db), recorder, logger, m)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) seedUser() identity.Principal {
	id := uuid.New()
	now := time.Now().UTC()
	u := user.User{
		ID:           id,
		Email:        id.String() + "@example.org",
		PasswordHash: "x",
		FullName:     "Integration User",
		Role:         identity.RoleMember,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u.Principal()
}

func (s *PostgresStoreSuite) seedEvent(capacity *int) Event {
	now := time.Now().UTC()
	ev := Event{
		ID:              uuid.New(),
		Title:           "Integration Event",
		EventDate:       now.Add(24 * time.Hour),
		MaxParticipants: capacity,
		Status:          StatusUpcoming,
		CreatedBy:       s.seedUser().ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.Require().NoError(s.store.Create(context.Background(), ev))
	return ev
}

func (s *PostgresStoreSuite) TestAdmissionIsConditional() {
	ctx := context.Background()
	one := 1
	ev := s.seedEvent(&one)

	s.Run("one slot, many callers, exactly one winner", func() {
		const callers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			wins     int
			capacity int
		)
		for i := 0; i < callers; i++ {
			caller := s.seedUser()
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.engine.Register(ctx, caller, ev.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case dErrors.Is(err, dErrors.CodeCapacityExceeded):
					capacity++
				}
			}()
		}
		wg.Wait()

		s.Equal(1, wins)
		s.Equal(callers-1, capacity)

		reloaded, err := s.store.FindByID(ctx, ev.ID)
		s.Require().NoError(err)
		s.Equal(1, reloaded.CurrentParticipants)
	})
}

func (s *PostgresStoreSuite) TestActiveUniquenessIndex() {
	ctx := context.Background()
	ev := s.seedEvent(nil)
	caller := s.seedUser()

	s.Run("second registration trips the partial index", func() {
		_, err := s.engine.Register(ctx, caller, ev.ID)
		s.Require().NoError(err)

		_, err = s.engine.Register(ctx, caller, ev.ID)
		s.True(dErrors.Is(err, dErrors.CodeAlreadyRegistered))
	})

	s.Run("cancellation keeps the row and frees the pair", func() {
		s.Require().NoError(s.engine.Unregister(ctx, caller, ev.ID))

		var cancelled int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND user_id = $2 AND status = 'CANCELLED'`,
			ev.ID, caller.ID).Scan(&cancelled)
		s.Require().NoError(err)
		s.Equal(1, cancelled)

		_, err = s.engine.Register(ctx, caller, ev.ID)
		s.NoError(err)
	})
}

func (s *PostgresStoreSuite) TestCancelledRowsAreImmutable() {
	ctx := context.Background()
	regs := registry.NewPostgresRegistrations(s.db, "event_registrations", "event_id")
	ev := s.seedEvent(nil)
	caller := s.seedUser()

	reg, err := s.engine.Register(ctx, caller, ev.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Unregister(ctx, caller, ev.ID))

	s.Run("a losing concurrent cancel sees zero rows", func() {
		_, err := regs.UpdateStatus(ctx, reg.ID, registry.StatusCancelled, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("a stale reactivation sees zero rows", func() {
		_, err := regs.UpdateStatus(ctx, reg.ID, registry.StatusConfirmed, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestReleaseFloorGuard() {
	ctx := context.Background()
	ev := s.seedEvent(nil)

	s.Run("release below zero is refused", func() {
		err := s.store.ReleaseOne(ctx, ev.ID)
		s.ErrorIs(err, sentinel.ErrIntegrity)
	})

	s.Run("admit then release round-trips the counter", func() {
		s.Require().NoError(s.store.AdmitOne(ctx, ev.ID))
		s.Require().NoError(s.store.ReleaseOne(ctx, ev.ID))

		reloaded, err := s.store.FindByID(ctx, ev.ID)
		s.Require().NoError(err)
		s.Equal(0, reloaded.CurrentParticipants)
	})
}
