package domain

import (
	"fmt"
	"time"
)

// TreatmentStatus tracks a doctor's progress on a queue entry.
type TreatmentStatus string

const (
	TreatmentStatusAssigned    TreatmentStatus = "assigned"
	TreatmentStatusEnRoute     TreatmentStatus = "en-route"
	TreatmentStatusWithPatient TreatmentStatus = "with-patient"
	TreatmentStatusCompleted   TreatmentStatus = "completed"
)

var treatmentOrder = map[TreatmentStatus]int{
	TreatmentStatusAssigned:    0,
	TreatmentStatusEnRoute:     1,
	TreatmentStatusWithPatient: 2,
	TreatmentStatusCompleted:   3,
}

// ParseTreatmentStatus validates a raw status value.
func ParseTreatmentStatus(raw string) (TreatmentStatus, error) {
	s := TreatmentStatus(raw)
	if _, ok := treatmentOrder[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: treatment status %q", ErrUnknownEnum, raw)
}

// CanAdvanceTo reports whether next is strictly later in the lifecycle.
func (s TreatmentStatus) CanAdvanceTo(next TreatmentStatus) bool {
	from, ok := treatmentOrder[s]
	if !ok {
		return false
	}
	to, ok := treatmentOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Terminal reports whether no transition leaves s.
func (s TreatmentStatus) Terminal() bool {
	return s == TreatmentStatusCompleted
}

// Priority is the triage priority of a queue entry.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a raw priority value.
func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(raw); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("%w: priority %q", ErrUnknownEnum, raw)
}

// TreatmentQueueEntry assigns a patient to a doctor.
type TreatmentQueueEntry struct {
	ID          string
	PatientID   string
	PatientName string
	DoctorID    string
	Department  string
	Priority    Priority
	RoomNumber  string
	Status      TreatmentStatus
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Advance moves the entry forward. Same status is a no-op (changed=false).
func (t *TreatmentQueueEntry) Advance(next TreatmentStatus, now time.Time) (changed bool, err error) {
	if next == t.Status {
		return false, nil
	}
	if !t.Status.CanAdvanceTo(next) {
		return false, fmt.Errorf("treatment %s: %s -> %s not allowed", t.ID, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = now
	if next == TreatmentStatusCompleted {
		t.CompletedAt = &now
	}
	return true, nil
}
