package dto

import (
	"time"

	"github.com/spec-kit/hospital-ops/internal/notification"
)

// CreateEmergencyRequest payload.
type CreateEmergencyRequest struct {
	PatientID   string  `json:"patient_id"`
	PatientName *string `json:"patient_name"`
	Location    string  `json:"location"`
	Condition   string  `json:"condition"`
	Priority    string  `json:"priority"`
}

// EmergencyResponse represents an emergency row.
type EmergencyResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName *string   `json:"patient_name"`
	Location    string    `json:"location"`
	Condition   string    `json:"condition"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Resolved    bool      `json:"resolved"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResolveEmergencyResponse is returned by the authenticated resolve route.
type ResolveEmergencyResponse struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
	Found    bool   `json:"found"`
}

// SendNotificationsRequest is the body of the dispatch endpoint.
type SendNotificationsRequest struct {
	EmergencyID string  `json:"emergencyId"`
	PatientName *string `json:"patientName"`
	Location    string  `json:"location"`
	Condition   string  `json:"condition"`
	Priority    string  `json:"priority"`
}

// EmergencyDetails echoes the alert that was sent.
type EmergencyDetails struct {
	EmergencyID string `json:"emergencyId"`
	PatientName string `json:"patientName"`
	Location    string `json:"location"`
	Condition   string `json:"condition"`
	Priority    string `json:"priority"`
}

// SendNotificationsResponse is the 200 body of the dispatch endpoint.
type SendNotificationsResponse struct {
	Success           bool                            `json:"success"`
	NotificationsSent int                             `json:"notificationsSent"`
	TotalDoctors      int                             `json:"totalDoctors"`
	DoctorEmailsSent  []string                        `json:"doctorEmailsSent"`
	Message           string                          `json:"message"`
	EmailResults      []notification.RecipientOutcome `json:"emailResults"`
	EmergencyDetails  EmergencyDetails                `json:"emergencyDetails"`
}

// FunctionErrorResponse is the failure body of the function-style endpoints.
type FunctionErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	NotificationsSent *int   `json:"notificationsSent,omitempty"`
}
