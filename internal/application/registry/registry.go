// Package registry owns the room lifecycle: creation, lazy expiry on read,
// and the cascading teardown of a room's messages and uploads.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/metrics"
	"github.com/hilthontt/synchat/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Registry struct {
	rooms    domain.RoomRepository
	messages domain.MessageRepository
	blobs    domain.BlobStore
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
	tracer   trace.Tracer
	now      func() time.Time

	teardown singleflight.Group
}

type Option func(*Registry)

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

func New(
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	blobs domain.BlobStore,
	logger *zap.SugaredLogger,
	opts ...Option,
) *Registry {
	r := &Registry{
		rooms:    rooms,
		messages: messages,
		blobs:    blobs,
		logger:   logger,
		tracer:   tracing.GetTracer("registry"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Create(ctx context.Context) (*domain.Room, error) {
	ctx, span := r.tracer.Start(ctx, "registry.Create")
	defer span.End()

	room := domain.NewRoom(r.now())
	span.SetAttributes(attribute.String("room.id", room.ID))

	if err := r.rooms.Create(ctx, room); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist room")
		return nil, fmt.Errorf("create room: %w", err)
	}

	r.metrics.RoomCreated()
	r.logger.Infow("room created", "room", room.ID, "expiry_at", room.ExpiryAt)

	return room, nil
}

// Get returns an active room. A room found past its expiry is torn down and
// reported as domain.ErrRoomExpired, which also matches domain.ErrRoomNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Room, error) {
	ctx, span := r.tracer.Start(ctx, "registry.Get")
	defer span.End()
	span.SetAttributes(attribute.String("room.id", id))

	room, err := r.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			span.SetAttributes(attribute.Bool("room.found", false))
			return nil, domain.ErrRoomNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load room")
		return nil, fmt.Errorf("get room: %w", err)
	}

	if domain.IsExpired(room, r.now()) {
		span.SetAttributes(attribute.Bool("room.expired", true))
		if _, err := r.destroy(ctx, id, metrics.ReasonExpired); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to tear down expired room")
			return nil, err
		}
		return nil, domain.ErrRoomExpired
	}

	span.SetAttributes(attribute.Bool("room.found", true))
	return room, nil
}

// Delete removes a room and everything attached to it. It reports whether the
// room still existed; deleting an absent room is not an error.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "registry.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("room.id", id))

	removed, err := r.destroy(ctx, id, metrics.ReasonDeleted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete room")
		return false, err
	}

	span.SetAttributes(attribute.Bool("room.removed", removed))
	return removed, nil
}

// destroy is the single teardown routine. Concurrent calls for the same room
// share one execution, detached from the first caller's cancellation. The
// cascade runs even when the room record is already gone, so messages or
// uploads written after an earlier teardown are still removed.
func (r *Registry) destroy(ctx context.Context, id, reason string) (bool, error) {
	v, err, _ := r.teardown.Do(id, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		// the record goes first: a writer that still sees the room afterwards
		// wrote before the cleanup below
		removed, err := r.rooms.Delete(ctx, id)
		if err != nil {
			return false, fmt.Errorf("delete room: %w", err)
		}

		if err := r.messages.DeleteAll(ctx, id); err != nil {
			return false, fmt.Errorf("delete room messages: %w", err)
		}

		if err := r.blobs.DeleteAll(ctx, id); err != nil {
			r.logger.Warnw("failed to delete room uploads", "room", id, "error", err)
		}

		if removed {
			r.metrics.RoomDestroyed(reason)
			r.logger.Infow("room destroyed", "room", id, "reason", reason)
		}

		return removed, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
