package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// AppointmentRepository reads scheduled visits.
type AppointmentRepository interface {
	ListByPatient(ctx context.Context, patientID string, limit int) ([]domain.Appointment, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]domain.Appointment, error) {
	const query = `
        SELECT id, patient_id, doctor_id, appointment_date, appointment_time, status, reason
        FROM appointments WHERE patient_id=$1
        ORDER BY appointment_date DESC, appointment_time DESC
        LIMIT $2`
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, query, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		var appt domain.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.PatientID,
			&appt.DoctorID,
			&appt.AppointmentDate,
			&appt.AppointmentTime,
			&appt.Status,
			&appt.Reason,
		); err != nil {
			return nil, err
		}
		result = append(result, appt)
	}
	return result, rows.Err()
}
