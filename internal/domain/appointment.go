package domain

import "time"

// Appointment is a scheduled patient visit. Read-only for this service.
type Appointment struct {
	ID              string
	PatientID       string
	DoctorID        string
	AppointmentDate time.Time
	AppointmentTime string
	Status          string
	Reason          *string
}
