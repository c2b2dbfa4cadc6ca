package domain

import (
	"fmt"
	"time"
)

// Urgency of a help request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency validates a raw urgency value.
func ParseUrgency(raw string) (Urgency, error) {
	switch u := Urgency(raw); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, nil
	}
	return "", fmt.Errorf("%w: urgency %q", ErrUnknownEnum, raw)
}

// HelpRequestStatus enumerates lifecycle states for help requests.
type HelpRequestStatus string

const (
	HelpRequestPending   HelpRequestStatus = "pending"
	HelpRequestAssigned  HelpRequestStatus = "assigned"
	HelpRequestResolved  HelpRequestStatus = "resolved"
	HelpRequestCancelled HelpRequestStatus = "cancelled"
)

var helpRequestTransitions = map[HelpRequestStatus][]HelpRequestStatus{
	HelpRequestPending:  {HelpRequestAssigned, HelpRequestCancelled},
	HelpRequestAssigned: {HelpRequestResolved},
}

// ParseHelpRequestStatus validates a raw status value.
func ParseHelpRequestStatus(raw string) (HelpRequestStatus, error) {
	switch s := HelpRequestStatus(raw); s {
	case HelpRequestPending, HelpRequestAssigned, HelpRequestResolved, HelpRequestCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w: help request status %q", ErrUnknownEnum, raw)
}

// CanTransitionTo reports whether next is a defined successor of s.
func (s HelpRequestStatus) CanTransitionTo(next HelpRequestStatus) bool {
	for _, allowed := range helpRequestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HelpRequest is a doctor or staff member asking colleagues for assistance.
type HelpRequest struct {
	ID            string
	RequestedBy   string
	RequesterRole Role
	RequestType   string
	Urgency       Urgency
	Description   string
	Status        HelpRequestStatus
	AssignedTo    *string
	ResponseNotes *string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Assign hands a pending request to a responder.
func (h *HelpRequest) Assign(responderID string, now time.Time) error {
	if err := h.transition(HelpRequestAssigned, now); err != nil {
		return err
	}
	h.AssignedTo = &responderID
	return nil
}

// Resolve closes an assigned request with optional notes.
func (h *HelpRequest) Resolve(notes string, now time.Time) error {
	if err := h.transition(HelpRequestResolved, now); err != nil {
		return err
	}
	if notes != "" {
		h.ResponseNotes = &notes
	}
	h.ResolvedAt = &now
	return nil
}

// Cancel withdraws a pending request.
func (h *HelpRequest) Cancel(now time.Time) error {
	return h.transition(HelpRequestCancelled, now)
}

func (h *HelpRequest) transition(next HelpRequestStatus, now time.Time) error {
	if !h.Status.CanTransitionTo(next) {
		return fmt.Errorf("help request %s: %s -> %s not allowed", h.ID, h.Status, next)
	}
	h.Status = next
	h.UpdatedAt = now
	return nil
}
