package events

import (
	"time"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmergencyCreated       EventType = "emergency_created"
	EventEmergencyResolved      EventType = "emergency_resolved"
	EventTreatmentStatusChanged EventType = "treatment_status_changed"
	EventShiftUpdated           EventType = "shift_updated"
	EventHelpRequestChanged     EventType = "help_request_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role,omitempty"`
	UserID *string     `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ResourceID string      `json:"resource_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// EmergencyCreatedPayload carries the stored emergency so handlers need not reread it.
type EmergencyCreatedPayload struct {
	Emergency domain.Emergency `json:"emergency"`
}

// EmergencyResolvedPayload payload.
type EmergencyResolvedPayload struct {
	// Source is "dashboard" or "email_link".
	Source string `json:"source"`
}

// TreatmentStatusChangedPayload payload.
type TreatmentStatusChangedPayload struct {
	DoctorID  string                 `json:"doctor_id"`
	OldStatus domain.TreatmentStatus `json:"old_status"`
	NewStatus domain.TreatmentStatus `json:"new_status"`
}

// ShiftUpdatedPayload payload.
type ShiftUpdatedPayload struct {
	DoctorID       string                `json:"doctor_id"`
	Status         domain.ShiftStatus    `json:"status"`
	ResponseStatus domain.ResponseStatus `json:"response_status"`
}

// HelpRequestChangedPayload payload.
type HelpRequestChangedPayload struct {
	OldStatus  domain.HelpRequestStatus `json:"old_status,omitempty"`
	NewStatus  domain.HelpRequestStatus `json:"new_status"`
	Urgency    domain.Urgency           `json:"urgency"`
	AssignedTo *string                  `json:"assigned_to,omitempty"`
}
