package dto

import "time"

// ViewUpdateEvent is one server-sent event on the dashboard stream.
type ViewUpdateEvent struct {
	View  string    `json:"view"`
	Query string    `json:"query"`
	Data  any       `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// AppointmentResponse represents a patient appointment.
type AppointmentResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Status          string    `json:"status"`
	Reason          *string   `json:"reason"`
}
