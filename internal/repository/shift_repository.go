package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// ShiftRepository persists doctor shifts.
type ShiftRepository interface {
	// Upsert creates or replaces the single live shift of shift.DoctorID.
	Upsert(ctx context.Context, shift *domain.DoctorShift) error
	GetByDoctor(ctx context.Context, doctorID string) (*domain.DoctorShift, error)
	ListOnDuty(ctx context.Context) ([]domain.DoctorShift, error)
}

type shiftRepository struct {
	pool      *pgxpool.Pool
	onInvalid domain.InvalidRowHandler
}

// NewShiftRepository instantiates repository.
func NewShiftRepository(pool *pgxpool.Pool, onInvalid domain.InvalidRowHandler) ShiftRepository {
	return &shiftRepository{pool: pool, onInvalid: invalidRowHandler(onInvalid)}
}

func (r *shiftRepository) Upsert(ctx context.Context, shift *domain.DoctorShift) error {
	const query = `
        INSERT INTO doctor_shifts (doctor_id, shift_start, shift_end, status, response_status)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (doctor_id) DO UPDATE SET
            shift_start=EXCLUDED.shift_start,
            shift_end=EXCLUDED.shift_end,
            status=EXCLUDED.status,
            response_status=EXCLUDED.response_status,
            updated_at=NOW()
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		shift.DoctorID,
		shift.ShiftStart,
		shift.ShiftEnd,
		string(shift.Status),
		string(shift.ResponseStatus),
	).Scan(&shift.ID, &shift.UpdatedAt)
}

func (r *shiftRepository) GetByDoctor(ctx context.Context, doctorID string) (*domain.DoctorShift, error) {
	const query = `
        SELECT s.id, s.doctor_id, COALESCE(p.name, ''), s.shift_start, s.shift_end, s.status, s.response_status, s.updated_at
        FROM doctor_shifts s LEFT JOIN profiles p ON p.user_id = s.doctor_id
        WHERE s.doctor_id=$1`
	shift, err := scanShift(r.pool.QueryRow(ctx, query, doctorID))
	if err != nil {
		if shift != nil {
			r.onInvalid("doctor_shifts", shift.ID, err)
		}
		return nil, err
	}
	return shift, nil
}

func (r *shiftRepository) ListOnDuty(ctx context.Context) ([]domain.DoctorShift, error) {
	const query = `
        SELECT s.id, s.doctor_id, COALESCE(p.name, ''), s.shift_start, s.shift_end, s.status, s.response_status, s.updated_at
        FROM doctor_shifts s LEFT JOIN profiles p ON p.user_id = s.doctor_id
        WHERE s.status='on-duty' ORDER BY p.name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DoctorShift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			if shift != nil {
				r.onInvalid("doctor_shifts", shift.ID, err)
				continue
			}
			return nil, err
		}
		result = append(result, *shift)
	}
	return result, rows.Err()
}

func scanShift(row pgx.Row) (*domain.DoctorShift, error) {
	var (
		shift    domain.DoctorShift
		status   string
		response string
	)
	if err := row.Scan(
		&shift.ID,
		&shift.DoctorID,
		&shift.DoctorName,
		&shift.ShiftStart,
		&shift.ShiftEnd,
		&status,
		&response,
		&shift.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s, err := domain.ParseShiftStatus(status)
	if err != nil {
		return &shift, err
	}
	rs, err := domain.ParseResponseStatus(response)
	if err != nil {
		return &shift, err
	}
	shift.Status = s
	shift.ResponseStatus = rs
	return &shift, nil
}
