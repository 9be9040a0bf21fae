package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"communityhub/internal/authz"
	"communityhub/internal/platform/metrics"
	"communityhub/pkg/requestcontext"
)

// Store persists audit records.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	ListByEntity(ctx context.Context, kind authz.EntityKind, entityID uuid.UUID) ([]Record, error)
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error)
}

// Sink mirrors records to an external system (e.g. Kafka). Optional.
type Sink interface {
	Publish(ctx context.Context, record Record) error
}

// Recorder builds audit records from business context and hands them to a
// background worker through a bounded queue. Enqueueing never blocks: when the
// queue is full the record is dropped and counted, because audit logging is
// observability, not a transaction participant.
type Recorder struct {
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	queue   chan Record
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSink mirrors every persisted record to an external sink.
func WithSink(sink Sink) Option {
	return func(r *Recorder) { r.sink = sink }
}

// WithQueueSize overrides the default queue capacity of 1024.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Record, n)
		}
	}
}

func NewRecorder(store Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	r := &Recorder{
		store:   store,
		logger:  logger,
		metrics: m,
		queue:   make(chan Record, 1024),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record captures one mutating action. Call it only after the business
// transaction has committed; the ctx is read for origin metadata, not for
// cancellation, so a disconnecting caller cannot lose a committed action's
// audit trail. Actor may be nil for system actions.
func (r *Recorder) Record(ctx context.Context, actorID *uuid.UUID, action string, kind authz.EntityKind, entityID uuid.UUID, before, after any) {
	record := Record{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityKind: kind,
		EntityID:   entityID,
		OldValues:  r.snapshot(ctx, action, before),
		NewValues:  r.snapshot(ctx, action, after),
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	record.ClientInfo = summarizeClient(record.UserAgent)

	select {
	case r.queue <- record:
	default:
		r.metrics.AuditRecordsDropped.Inc()
		r.logger.WarnContext(ctx, "audit queue full, record dropped",
			"action", action,
			"entity_kind", kind,
		)
	}
}

// snapshot serializes a before/after value to canonical JSON. Serialization
// failure degrades to a nil snapshot rather than aborting the triggering action.
func (r *Recorder) snapshot(ctx context.Context, action string, v any) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.ErrorContext(ctx, "audit snapshot serialization failed",
			"action", action,
			"error", err,
		)
		return nil
	}
	s := string(data)
	return &s
}

// Run consumes the queue until ctx is cancelled, draining what remains before
// returning. Store failures are logged and counted, never retried into the
// caller's request path.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case record := <-r.queue:
			r.persist(record)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case record := <-r.queue:
			r.persist(record)
		default:
			return
		}
	}
}

func (r *Recorder) persist(record Record) {
	// The worker owns its deadline; request contexts are long gone by now.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Append(ctx, record); err != nil {
		r.metrics.AuditWriteFailures.Inc()
		r.logger.Error("audit append failed",
			"action", record.Action,
			"entity_kind", record.EntityKind,
			"error", err,
		)
		return
	}
	r.metrics.AuditRecordsWritten.Inc()

	if r.sink != nil {
		if err := r.sink.Publish(ctx, record); err != nil {
			r.logger.Warn("audit sink publish failed",
				"action", record.Action,
				"error", err,
			)
		}
	}
}

// ListRecent returns the most recent records for administrative review.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return r.store.ListRecent(ctx, limit)
}

// ListByEntity returns the trail for one entity.
func (r *Recorder) ListByEntity(ctx context.Context, kind authz.EntityKind, entityID uuid.UUID) ([]Record, error) {
	return r.store.ListByEntity(ctx, kind, entityID)
}

// ListByActor returns every action performed by one actor.
func (r *Recorder) ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error) {
	return r.store.ListByActor(ctx, actorID)
}

// summarizeClient condenses a raw User-Agent into "Browser version (OS)".
// Non-browser agents keep their raw string in the UserAgent column only.
func summarizeClient(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}
