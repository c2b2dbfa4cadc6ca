package domain

import (
	"fmt"
	"time"
)

// EmergencyStatus mirrors the resolved flag as a readable status column.
type EmergencyStatus string

const (
	EmergencyStatusActive   EmergencyStatus = "active"
	EmergencyStatusResolved EmergencyStatus = "resolved"
)

// ParseEmergencyStatus validates a raw status value.
func ParseEmergencyStatus(raw string) (EmergencyStatus, error) {
	switch s := EmergencyStatus(raw); s {
	case EmergencyStatusActive, EmergencyStatusResolved:
		return s, nil
	case "":
		return EmergencyStatusActive, nil
	}
	return "", fmt.Errorf("%w: emergency status %q", ErrUnknownEnum, raw)
}

// DefaultEmergencyPriority is used when the creator does not specify one.
const DefaultEmergencyPriority = "high"

// Emergency is raised by staff and resolved by a doctor or through the email link.
// It is never deleted; Resolved is terminal.
type Emergency struct {
	ID          string
	PatientID   string
	PatientName *string
	Location    string
	Condition   string
	Priority    string
	Status      EmergencyStatus
	Resolved    bool
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Resolve marks the emergency resolved. Returns false when it already was.
func (e *Emergency) Resolve(now time.Time) bool {
	if e.Resolved {
		e.Status = EmergencyStatusResolved
		return false
	}
	e.Resolved = true
	e.Status = EmergencyStatusResolved
	e.UpdatedAt = now
	return true
}

// DisplayPatientName falls back to "Unknown" for anonymous emergencies.
func (e *Emergency) DisplayPatientName() string {
	if e.PatientName == nil || *e.PatientName == "" {
		return "Unknown"
	}
	return *e.PatientName
}
