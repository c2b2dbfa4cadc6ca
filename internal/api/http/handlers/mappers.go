package handlers

import (
	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/domain"
)

func emergencyResponse(e *domain.Emergency) dto.EmergencyResponse {
	return dto.EmergencyResponse{
		ID:          e.ID,
		PatientID:   e.PatientID,
		PatientName: e.PatientName,
		Location:    e.Location,
		Condition:   e.Condition,
		Priority:    e.Priority,
		Status:      string(e.Status),
		Resolved:    e.Resolved,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func treatmentResponse(t *domain.TreatmentQueueEntry) dto.TreatmentResponse {
	return dto.TreatmentResponse{
		ID:          t.ID,
		PatientID:   t.PatientID,
		PatientName: t.PatientName,
		DoctorID:    t.DoctorID,
		Department:  t.Department,
		Priority:    t.Priority,
		RoomNumber:  t.RoomNumber,
		Status:      t.Status,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func shiftResponse(s *domain.DoctorShift) dto.ShiftResponse {
	return dto.ShiftResponse{
		ID:             s.ID,
		DoctorID:       s.DoctorID,
		DoctorName:     s.DoctorName,
		ShiftStart:     s.ShiftStart,
		ShiftEnd:       s.ShiftEnd,
		Status:         s.Status,
		ResponseStatus: s.ResponseStatus,
		UpdatedAt:      s.UpdatedAt,
	}
}

func helpRequestResponse(h *domain.HelpRequest) dto.HelpRequestResponse {
	return dto.HelpRequestResponse{
		ID:            h.ID,
		RequestedBy:   h.RequestedBy,
		RequesterRole: h.RequesterRole,
		RequestType:   h.RequestType,
		Urgency:       h.Urgency,
		Description:   h.Description,
		Status:        h.Status,
		AssignedTo:    h.AssignedTo,
		ResponseNotes: h.ResponseNotes,
		ResolvedAt:    h.ResolvedAt,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

func appointmentResponse(a *domain.Appointment) dto.AppointmentResponse {
	return dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		Status:          a.Status,
		Reason:          a.Reason,
	}
}

func mapSlice[T, R any](items []T, fn func(*T) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}

// viewPayload converts dashboard query results to their wire shape. Unknown types pass
// through unchanged.
func viewPayload(data any) any {
	switch v := data.(type) {
	case []domain.Emergency:
		return mapSlice(v, emergencyResponse)
	case []domain.TreatmentQueueEntry:
		return mapSlice(v, treatmentResponse)
	case []domain.DoctorShift:
		return mapSlice(v, shiftResponse)
	case *domain.DoctorShift:
		if v == nil {
			return nil
		}
		return shiftResponse(v)
	case []domain.HelpRequest:
		return mapSlice(v, helpRequestResponse)
	case []domain.Appointment:
		return mapSlice(v, appointmentResponse)
	default:
		return data
	}
}
