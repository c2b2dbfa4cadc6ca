package dto

import (
	"time"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// AssignTreatmentRequest payload.
type AssignTreatmentRequest struct {
	PatientID   string  `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	DoctorID    string  `json:"doctor_id"`
	Department  string  `json:"department"`
	Priority    string  `json:"priority"`
	RoomNumber  string  `json:"room_number"`
	Notes       *string `json:"notes"`
}

// UpdateTreatmentStatusRequest payload.
type UpdateTreatmentStatusRequest struct {
	Status string `json:"status"`
}

// TreatmentResponse represents a treatment queue entry.
type TreatmentResponse struct {
	ID          string                 `json:"id"`
	PatientID   string                 `json:"patient_id"`
	PatientName string                 `json:"patient_name"`
	DoctorID    string                 `json:"doctor_id"`
	Department  string                 `json:"department"`
	Priority    domain.Priority        `json:"priority"`
	RoomNumber  string                 `json:"room_number"`
	Status      domain.TreatmentStatus `json:"status"`
	Notes       *string                `json:"notes"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at"`
}

// SaveShiftRequest payload.
type SaveShiftRequest struct {
	ShiftStart     time.Time `json:"shift_start"`
	ShiftEnd       time.Time `json:"shift_end"`
	Status         string    `json:"status"`
	ResponseStatus string    `json:"response_status"`
}

// ShiftResponse represents a doctor's shift.
type ShiftResponse struct {
	ID             string                `json:"id"`
	DoctorID       string                `json:"doctor_id"`
	DoctorName     string                `json:"doctor_name,omitempty"`
	ShiftStart     time.Time             `json:"shift_start"`
	ShiftEnd       time.Time             `json:"shift_end"`
	Status         domain.ShiftStatus    `json:"status"`
	ResponseStatus domain.ResponseStatus `json:"response_status"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// CreateHelpRequestRequest payload.
type CreateHelpRequestRequest struct {
	RequestType string `json:"request_type"`
	Urgency     string `json:"urgency"`
	Description string `json:"description"`
}

// ResolveHelpRequestRequest payload.
type ResolveHelpRequestRequest struct {
	ResponseNotes string `json:"response_notes"`
}

// HelpRequestResponse represents a help request.
type HelpRequestResponse struct {
	ID            string                   `json:"id"`
	RequestedBy   string                   `json:"requested_by"`
	RequesterRole domain.Role              `json:"requester_role"`
	RequestType   string                   `json:"request_type"`
	Urgency       domain.Urgency           `json:"urgency"`
	Description   string                   `json:"description"`
	Status        domain.HelpRequestStatus `json:"status"`
	AssignedTo    *string                  `json:"assigned_to"`
	ResponseNotes *string                  `json:"response_notes"`
	ResolvedAt    *time.Time               `json:"resolved_at"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}
