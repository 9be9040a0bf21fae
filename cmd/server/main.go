package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"communityhub/internal/admin"
	"communityhub/internal/audit"
	"communityhub/internal/audit/sink"
	"communityhub/internal/auth"
	"communityhub/internal/authz"
	"communityhub/internal/discussion"
	"communityhub/internal/document"
	"communityhub/internal/event"
	"communityhub/internal/notification"
	"communityhub/internal/platform/blob"
	"communityhub/internal/platform/config"
	"communityhub/internal/platform/httpserver"
	"communityhub/internal/platform/logger"
	"communityhub/internal/platform/metrics"
	"communityhub/internal/platform/postgres"
	"communityhub/internal/platform/redis"
	"communityhub/internal/registry"
	"communityhub/internal/settings"
	httptransport "communityhub/internal/transport/http"
	"communityhub/internal/user"
	"communityhub/internal/volunteer"
	"communityhub/pkg/platform/tx"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal feature packages.
func main() {
	log := logger.New()

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	blobs, err := blob.NewLocalStore(cfg.Files.Dir)
	if err != nil {
		return err
	}

	// Audit pipeline. The Kafka mirror is optional; store-only otherwise.
	auditOpts := []audit.Option{audit.WithQueueSize(cfg.Audit.QueueSize)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := sink.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		auditOpts = append(auditOpts, audit.WithSink(kafka))
	}
	recorder, err := audit.NewRecorder(audit.NewPostgresStore(db), log, m, auditOpts...)
	if err != nil {
		return err
	}

	runner := tx.NewRunner(db)

	// Feature services.
	notifStore := notification.NewPostgresStore(db)
	notifService, err := notification.NewService(notifStore, log)
	if err != nil {
		return err
	}

	userStore := user.NewPostgresStore(db)
	profileCache := user.NewProfileCache(cache, cfg.Redis.ProfileTTL, log)
	userService, err := user.NewService(userStore, blobs, recorder, log,
		user.WithCache(profileCache), user.WithNotifier(notifService))
	if err != nil {
		return err
	}

	authService, err := auth.NewService(userStore, []byte(cfg.Auth.JWTSigningKey), cfg.Auth.TokenTTL, log)
	if err != nil {
		return err
	}

	eventStore := event.NewPostgresStore(db)
	eventEngine, err := registry.NewEngine(authz.KindEvent, eventStore,
		registry.NewPostgresRegistrations(db, "event_registrations", "event_id"),
		runner, recorder, log, m, registry.WithNotifier(notifService))
	if err != nil {
		return err
	}
	eventService, err := event.NewService(eventStore, eventEngine, recorder, log)
	if err != nil {
		return err
	}

	volunteerStore := volunteer.NewPostgresStore(db)
	volunteerEngine, err := registry.NewEngine(authz.KindOpportunity, volunteerStore,
		registry.NewPostgresRegistrations(db, "volunteer_registrations", "opportunity_id"),
		runner, recorder, log, m, registry.WithNotifier(notifService))
	if err != nil {
		return err
	}
	volunteerService, err := volunteer.NewService(volunteerStore, volunteerEngine, recorder, log)
	if err != nil {
		return err
	}

	discussionService, err := discussion.NewService(discussion.NewPostgresStore(db), recorder, log)
	if err != nil {
		return err
	}

	documentService, err := document.NewService(document.NewPostgresStore(db), blobs, recorder, log)
	if err != nil {
		return err
	}

	settingsService, err := settings.NewService(settings.NewPostgresStore(db), recorder, log)
	if err != nil {
		return err
	}

	adminService, err := admin.NewService(userService, recorder,
		eventService, volunteerService, discussionService, documentService, log)
	if err != nil {
		return err
	}

	router := httptransport.New(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		DB:             db,
		RequestTimeout: cfg.Server.RequestTimeout,
		AuthService:    authService,
		UserService:    userService,
		Auth:           auth.NewHandler(authService, log),
		Users:          user.NewHandler(userService, log),
		Events:         event.NewHandler(eventService, log),
		Volunteers:     volunteer.NewHandler(volunteerService, log),
		Discussions:    discussion.NewHandler(discussionService, log),
		Documents:      document.NewHandler(documentService, log),
		Notifications:  notification.NewHandler(notifService, log),
		Settings:       settings.NewHandler(settingsService, log),
		Admin:          admin.NewHandler(adminService, log),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The recorder drains its queue on cancellation; a cancelled context
		// is a clean exit, not a failure.
		if err := recorder.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
