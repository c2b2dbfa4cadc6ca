package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/events"
	"github.com/spec-kit/hospital-ops/internal/repository"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// ShiftService records doctors' duty status.
type ShiftService struct {
	shifts repository.ShiftRepository
	publisher
}

// NewShiftService constructs the service.
func NewShiftService(shifts repository.ShiftRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ShiftService {
	return &ShiftService{shifts: shifts, publisher: newPublisher(dispatcher, logger)}
}

// ShiftInput is the doctor's shift form.
type ShiftInput struct {
	ShiftStart     time.Time
	ShiftEnd       time.Time
	Status         string
	ResponseStatus string
}

// SaveMine creates or replaces the doctor's single shift record.
func (s *ShiftService) SaveMine(ctx context.Context, actor Actor, input ShiftInput) (*domain.DoctorShift, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, apperrors.NewForbidden("only doctors have shifts")
	}
	if input.ShiftStart.IsZero() || input.ShiftEnd.IsZero() {
		return nil, apperrors.NewValidationError("shift_start and shift_end are required", nil)
	}
	if !input.ShiftEnd.After(input.ShiftStart) {
		return nil, apperrors.NewValidationError("shift_end must be after shift_start", nil)
	}
	status, err := domain.ParseShiftStatus(input.Status)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}
	response := domain.ResponseAvailable
	if input.ResponseStatus != "" {
		if response, err = domain.ParseResponseStatus(input.ResponseStatus); err != nil {
			return nil, apperrors.NewValidationError("invalid response_status", map[string]any{"response_status": input.ResponseStatus})
		}
	}

	shift := &domain.DoctorShift{
		DoctorID:       actor.UserID,
		ShiftStart:     input.ShiftStart.UTC(),
		ShiftEnd:       input.ShiftEnd.UTC(),
		Status:         status,
		ResponseStatus: response,
	}
	if err := s.shifts.Upsert(ctx, shift); err != nil {
		return nil, apperrors.NewStoreWriteError("save shift", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventShiftUpdated,
		ResourceID: shift.ID,
		Actor:      actor.event(),
		Payload: events.ShiftUpdatedPayload{
			DoctorID:       shift.DoctorID,
			Status:         shift.Status,
			ResponseStatus: shift.ResponseStatus,
		},
	})
	return shift, nil
}

// GetMine returns the doctor's shift, or a not-found error when none was saved yet.
func (s *ShiftService) GetMine(ctx context.Context, actor Actor) (*domain.DoctorShift, error) {
	shift, err := s.shifts.GetByDoctor(ctx, actor.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("shift", map[string]any{"doctor_id": actor.UserID})
		}
		return nil, err
	}
	return shift, nil
}

// ListOnDuty returns every on-duty doctor.
func (s *ShiftService) ListOnDuty(ctx context.Context) ([]domain.DoctorShift, error) {
	return s.shifts.ListOnDuty(ctx)
}
