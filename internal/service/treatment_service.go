package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/events"
	"github.com/spec-kit/hospital-ops/internal/repository"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// TreatmentService manages the treatment queue.
type TreatmentService struct {
	treatments repository.TreatmentRepository
	profiles   repository.ProfileRepository
	publisher
}

// NewTreatmentService constructs the service.
func NewTreatmentService(treatments repository.TreatmentRepository, profiles repository.ProfileRepository, dispatcher events.Dispatcher, logger *zap.Logger) *TreatmentService {
	return &TreatmentService{treatments: treatments, profiles: profiles, publisher: newPublisher(dispatcher, logger)}
}

// TreatmentCreateInput assigns a patient to a doctor.
type TreatmentCreateInput struct {
	PatientID   string
	PatientName string
	DoctorID    string
	Department  string
	Priority    string
	RoomNumber  string
	Notes       *string
}

// Assign adds a queue entry in the assigned state.
func (s *TreatmentService) Assign(ctx context.Context, input TreatmentCreateInput) (*domain.TreatmentQueueEntry, error) {
	input.PatientID = strings.TrimSpace(input.PatientID)
	input.PatientName = strings.TrimSpace(input.PatientName)
	input.Department = strings.TrimSpace(input.Department)
	if input.PatientID == "" || input.PatientName == "" || input.Department == "" {
		return nil, apperrors.NewValidationError("patient_id, patient_name and department are required", nil)
	}
	if err := requireUUID("doctor_id", input.DoctorID); err != nil {
		return nil, err
	}

	priority := domain.PriorityMedium
	if input.Priority != "" {
		p, err := domain.ParsePriority(input.Priority)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		priority = p
	}

	doctor, err := s.profiles.GetByUserID(ctx, input.DoctorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("doctor", map[string]any{"doctor_id": input.DoctorID})
		}
		return nil, err
	}
	if doctor.Role != domain.RoleDoctor {
		return nil, apperrors.NewValidationError("assignee is not a doctor", map[string]any{"doctor_id": input.DoctorID})
	}

	entry := &domain.TreatmentQueueEntry{
		PatientID:   input.PatientID,
		PatientName: input.PatientName,
		DoctorID:    input.DoctorID,
		Department:  input.Department,
		Priority:    priority,
		RoomNumber:  strings.TrimSpace(input.RoomNumber),
		Status:      domain.TreatmentStatusAssigned,
		Notes:       input.Notes,
	}
	if err := s.treatments.Create(ctx, entry); err != nil {
		return nil, apperrors.NewStoreWriteError("assign treatment", err)
	}
	return entry, nil
}

// ListFor returns the queue visible to actor: doctors see their own entries, patients
// their own treatments, staff everything open.
func (s *TreatmentService) ListFor(ctx context.Context, actor Actor, includeCompleted bool, limit int) ([]domain.TreatmentQueueEntry, error) {
	filter := repository.TreatmentFilter{IncludeCompleted: includeCompleted, Limit: normalizeLimit(limit, 100, 500)}
	id := actor.UserID
	switch actor.Role {
	case domain.RoleDoctor:
		filter.DoctorID = &id
	case domain.RolePatient:
		filter.PatientID = &id
		filter.IncludeCompleted = true
	}
	return s.treatments.List(ctx, filter)
}

// AdvanceStatus moves an entry forward. Setting the current status again is a no-op;
// moving backwards or out of completed is rejected. There is no version check, so two
// concurrent writers resolve as last-write-wins.
func (s *TreatmentService) AdvanceStatus(ctx context.Context, actor Actor, id string, raw string) (*domain.TreatmentQueueEntry, error) {
	if err := requireUUID("id", id); err != nil {
		return nil, err
	}
	next, err := domain.ParseTreatmentStatus(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
	}

	entry, err := s.treatments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("treatment", map[string]any{"id": id})
		}
		return nil, err
	}
	if actor.Role == domain.RoleDoctor && entry.DoctorID != actor.UserID {
		return nil, apperrors.NewForbidden("treatment assigned to another doctor")
	}

	previous := entry.Status
	changed, err := entry.Advance(next, s.now())
	if err != nil {
		return nil, apperrors.NewInvalidTransition("treatment", string(previous), string(next))
	}
	if !changed {
		return entry, nil
	}

	if err := s.treatments.UpdateStatus(ctx, entry); err != nil {
		return nil, apperrors.NewStoreWriteError("update treatment status", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTreatmentStatusChanged,
		ResourceID: entry.ID,
		Actor:      actor.event(),
		Payload: events.TreatmentStatusChangedPayload{
			DoctorID:  entry.DoctorID,
			OldStatus: previous,
			NewStatus: entry.Status,
		},
	})
	return entry, nil
}
