package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/events"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// Actor is the authenticated user performing a write.
type Actor struct {
	UserID string
	Role   domain.Role
}

// ActorFromProfile builds an Actor from a profile.
func ActorFromProfile(p domain.Profile) Actor {
	return Actor{UserID: p.UserID, Role: p.Role}
}

func (a Actor) event() events.Actor {
	id := a.UserID
	return events.Actor{Role: a.Role, UserID: &id}
}

// publisher is shared by the write services. Handler failures are logged; the write
// that produced the event has already been committed.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return publisher{dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (p publisher) publishEvent(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Error("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("resource_id", event.ResourceID),
			zap.Error(err))
	}
}

func normalizeLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func requireUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return apperrors.NewValidationError("invalid "+field, map[string]any{field: value})
	}
	return nil
}
