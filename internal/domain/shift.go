package domain

import (
	"fmt"
	"time"
)

// ShiftStatus is whether the doctor is working.
type ShiftStatus string

const (
	ShiftStatusOnDuty  ShiftStatus = "on-duty"
	ShiftStatusOffDuty ShiftStatus = "off-duty"
)

// ParseShiftStatus validates a raw status value.
func ParseShiftStatus(raw string) (ShiftStatus, error) {
	switch s := ShiftStatus(raw); s {
	case ShiftStatusOnDuty, ShiftStatusOffDuty:
		return s, nil
	}
	return "", fmt.Errorf("%w: shift status %q", ErrUnknownEnum, raw)
}

// ResponseStatus is what an on-duty doctor is currently doing.
type ResponseStatus string

const (
	ResponseAvailable ResponseStatus = "available"
	ResponseOnRound   ResponseStatus = "on-round"
	ResponseInSurgery ResponseStatus = "in-surgery"
	ResponseBusy      ResponseStatus = "busy"
)

// ParseResponseStatus validates a raw response status value.
func ParseResponseStatus(raw string) (ResponseStatus, error) {
	switch s := ResponseStatus(raw); s {
	case ResponseAvailable, ResponseOnRound, ResponseInSurgery, ResponseBusy:
		return s, nil
	}
	return "", fmt.Errorf("%w: response status %q", ErrUnknownEnum, raw)
}

// DoctorShift is the single live shift record of a doctor. Saved with upsert on DoctorID.
type DoctorShift struct {
	ID             string
	DoctorID       string
	DoctorName     string
	ShiftStart     time.Time
	ShiftEnd       time.Time
	Status         ShiftStatus
	ResponseStatus ResponseStatus
	UpdatedAt      time.Time
}
