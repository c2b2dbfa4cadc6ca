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

// HelpRequestService runs the pending -> assigned -> resolved workflow.
type HelpRequestService struct {
	requests repository.HelpRequestRepository
	publisher
}

// NewHelpRequestService constructs the service.
func NewHelpRequestService(requests repository.HelpRequestRepository, dispatcher events.Dispatcher, logger *zap.Logger) *HelpRequestService {
	return &HelpRequestService{requests: requests, publisher: newPublisher(dispatcher, logger)}
}

// HelpRequestInput is a new request for assistance.
type HelpRequestInput struct {
	RequestType string
	Urgency     string
	Description string
}

// HelpRequestListFilter narrows listings.
type HelpRequestListFilter struct {
	Mine     bool
	Statuses []string
	Limit    int
}

// Create opens a pending request on behalf of actor.
func (s *HelpRequestService) Create(ctx context.Context, actor Actor, input HelpRequestInput) (*domain.HelpRequest, error) {
	if actor.Role == domain.RolePatient {
		return nil, apperrors.NewForbidden("patients cannot raise help requests")
	}
	requestType := strings.TrimSpace(input.RequestType)
	if requestType == "" {
		return nil, apperrors.NewValidationError("request_type is required", nil)
	}
	urgency := domain.UrgencyMedium
	if input.Urgency != "" {
		u, err := domain.ParseUrgency(input.Urgency)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid urgency", map[string]any{"urgency": input.Urgency})
		}
		urgency = u
	}

	req := &domain.HelpRequest{
		RequestedBy:   actor.UserID,
		RequesterRole: actor.Role,
		RequestType:   requestType,
		Urgency:       urgency,
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.HelpRequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.NewStoreWriteError("create help request", err)
	}
	s.publishChange(ctx, actor, req, "")
	return req, nil
}

// List returns requests, optionally only the actor's own.
func (s *HelpRequestService) List(ctx context.Context, actor Actor, filter HelpRequestListFilter) ([]domain.HelpRequest, error) {
	repoFilter := repository.HelpRequestFilter{Limit: normalizeLimit(filter.Limit, 50, 200)}
	if filter.Mine {
		id := actor.UserID
		repoFilter.RequestedBy = &id
	}
	for _, raw := range filter.Statuses {
		status, err := domain.ParseHelpRequestStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		repoFilter.Statuses = append(repoFilter.Statuses, status)
	}
	return s.requests.List(ctx, repoFilter)
}

// Assign makes actor the responder of a pending request.
func (s *HelpRequestService) Assign(ctx context.Context, actor Actor, id string) (*domain.HelpRequest, error) {
	return s.transition(ctx, actor, id, domain.HelpRequestAssigned, func(req *domain.HelpRequest) error {
		return req.Assign(actor.UserID, s.now())
	})
}

// Resolve closes an assigned request. Only the responder may resolve it.
func (s *HelpRequestService) Resolve(ctx context.Context, actor Actor, id, notes string) (*domain.HelpRequest, error) {
	return s.transition(ctx, actor, id, domain.HelpRequestResolved, func(req *domain.HelpRequest) error {
		if req.AssignedTo != nil && *req.AssignedTo != actor.UserID {
			return apperrors.NewForbidden("request assigned to someone else")
		}
		return req.Resolve(strings.TrimSpace(notes), s.now())
	})
}

// Cancel withdraws a pending request. Only the requester may cancel.
func (s *HelpRequestService) Cancel(ctx context.Context, actor Actor, id string) (*domain.HelpRequest, error) {
	return s.transition(ctx, actor, id, domain.HelpRequestCancelled, func(req *domain.HelpRequest) error {
		if req.RequestedBy != actor.UserID {
			return apperrors.NewForbidden("only the requester can cancel")
		}
		return req.Cancel(s.now())
	})
}

func (s *HelpRequestService) transition(ctx context.Context, actor Actor, id string, next domain.HelpRequestStatus, apply func(*domain.HelpRequest) error) (*domain.HelpRequest, error) {
	if err := requireUUID("id", id); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("help request", map[string]any{"id": id})
		}
		return nil, err
	}

	previous := req.Status
	if err := apply(req); err != nil {
		if de := apperrors.ToDomainError(err); de.Code == apperrors.CodeForbidden {
			return nil, err
		}
		return nil, apperrors.NewInvalidTransition("help request", string(previous), string(next))
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, apperrors.NewStoreWriteError("update help request", err)
	}
	s.publishChange(ctx, actor, req, previous)
	return req, nil
}

func (s *HelpRequestService) publishChange(ctx context.Context, actor Actor, req *domain.HelpRequest, previous domain.HelpRequestStatus) {
	s.publishEvent(ctx, events.Event{
		Type:       events.EventHelpRequestChanged,
		ResourceID: req.ID,
		Actor:      actor.event(),
		Payload: events.HelpRequestChangedPayload{
			OldStatus:  previous,
			NewStatus:  req.Status,
			Urgency:    req.Urgency,
			AssignedTo: req.AssignedTo,
		},
	})
}
