package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/events"
	"github.com/spec-kit/hospital-ops/internal/repository"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// Resolution sources recorded on EmergencyResolved events.
const (
	ResolvedFromDashboard = "dashboard"
	ResolvedFromEmailLink = "email_link"
)

// EmergencyService raises and resolves emergencies.
type EmergencyService struct {
	emergencies repository.EmergencyRepository
	publisher
}

// NewEmergencyService constructs the service.
func NewEmergencyService(emergencies repository.EmergencyRepository, dispatcher events.Dispatcher, logger *zap.Logger) *EmergencyService {
	return &EmergencyService{emergencies: emergencies, publisher: newPublisher(dispatcher, logger)}
}

// EmergencyCreateInput describes a new emergency.
type EmergencyCreateInput struct {
	PatientID   string
	PatientName *string
	Location    string
	Condition   string
	Priority    string
}

// Create stores the emergency and publishes EmergencyCreated, which triggers the doctor
// fan-out in the background.
func (s *EmergencyService) Create(ctx context.Context, actor Actor, input EmergencyCreateInput) (*domain.Emergency, error) {
	input.Location = strings.TrimSpace(input.Location)
	input.Condition = strings.TrimSpace(input.Condition)
	input.PatientID = strings.TrimSpace(input.PatientID)

	missing := []string{}
	if input.PatientID == "" {
		missing = append(missing, "patient_id")
	}
	if input.Location == "" {
		missing = append(missing, "location")
	}
	if input.Condition == "" {
		missing = append(missing, "condition")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}

	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = domain.DefaultEmergencyPriority
	}
	if _, err := domain.ParsePriority(priority); err != nil {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	createdBy := actor.UserID
	emergency := &domain.Emergency{
		PatientID:   input.PatientID,
		PatientName: input.PatientName,
		Location:    input.Location,
		Condition:   input.Condition,
		Priority:    priority,
		Status:      domain.EmergencyStatusActive,
		CreatedBy:   &createdBy,
	}
	if err := s.emergencies.Create(ctx, emergency); err != nil {
		return nil, apperrors.NewStoreWriteError("create emergency", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventEmergencyCreated,
		ResourceID: emergency.ID,
		Actor:      actor.event(),
		Payload:    events.EmergencyCreatedPayload{Emergency: *emergency},
	})
	return emergency, nil
}

// ListActive returns unresolved emergencies, newest first.
func (s *EmergencyService) ListActive(ctx context.Context) ([]domain.Emergency, error) {
	return s.emergencies.ListActive(ctx)
}

// ResolveOutcome reports what a resolve call found.
type ResolveOutcome struct {
	ID    string
	Found bool
}

// Resolve sets the emergency resolved regardless of its current state, so repeated calls
// succeed. A missing id is a parameter error and never reaches the store.
func (s *EmergencyService) Resolve(ctx context.Context, id, source string, actor *Actor) (ResolveOutcome, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ResolveOutcome{}, apperrors.NewMissingParameter("id")
	}

	if _, err := uuid.Parse(id); err != nil {
		// Not an id the store could hold; nothing to resolve.
		s.logger.Warn("resolve with malformed emergency id", zap.String("emergency_id", id), zap.String("source", source))
		return ResolveOutcome{ID: id}, nil
	}

	found, err := s.emergencies.MarkResolved(ctx, id)
	if err != nil {
		return ResolveOutcome{ID: id}, apperrors.NewStoreWriteError("resolve emergency", err)
	}
	if !found {
		s.logger.Warn("resolve matched no emergency", zap.String("emergency_id", id), zap.String("source", source))
		return ResolveOutcome{ID: id}, nil
	}

	ev := events.Event{
		Type:       events.EventEmergencyResolved,
		ResourceID: id,
		Payload:    events.EmergencyResolvedPayload{Source: source},
	}
	if actor != nil {
		ev.Actor = actor.event()
	}
	s.publishEvent(ctx, ev)
	return ResolveOutcome{ID: id, Found: true}, nil
}
