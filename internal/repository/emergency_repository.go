package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// EmergencyRepository encapsulates emergency persistence.
type EmergencyRepository interface {
	Create(ctx context.Context, emergency *domain.Emergency) error
	GetByID(ctx context.Context, id string) (*domain.Emergency, error)
	ListActive(ctx context.Context) ([]domain.Emergency, error)
	// MarkResolved sets resolved=true unconditionally. found is false when no row matched.
	MarkResolved(ctx context.Context, id string) (found bool, err error)
}

type emergencyRepository struct {
	pool      *pgxpool.Pool
	onInvalid domain.InvalidRowHandler
}

// NewEmergencyRepository instantiates repository.
func NewEmergencyRepository(pool *pgxpool.Pool, onInvalid domain.InvalidRowHandler) EmergencyRepository {
	return &emergencyRepository{pool: pool, onInvalid: invalidRowHandler(onInvalid)}
}

const emergencyColumns = `id, patient_id, patient_name, location, condition, priority, status, resolved, created_by, created_at, updated_at`

func (r *emergencyRepository) Create(ctx context.Context, emergency *domain.Emergency) error {
	const query = `
        INSERT INTO emergencies (patient_id, patient_name, location, condition, priority, status, resolved, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		emergency.PatientID,
		emergency.PatientName,
		emergency.Location,
		emergency.Condition,
		emergency.Priority,
		string(emergency.Status),
		emergency.Resolved,
		emergency.CreatedBy,
	).Scan(&emergency.ID, &emergency.CreatedAt, &emergency.UpdatedAt)
}

func (r *emergencyRepository) GetByID(ctx context.Context, id string) (*domain.Emergency, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergencies WHERE id=$1`
	emergency, err := scanEmergency(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return emergency, nil
}

func (r *emergencyRepository) ListActive(ctx context.Context) ([]domain.Emergency, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergencies WHERE resolved=false ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Emergency
	for rows.Next() {
		emergency, err := scanEmergency(rows)
		if err != nil {
			if emergency != nil {
				r.onInvalid("emergencies", emergency.ID, err)
				continue
			}
			return nil, err
		}
		result = append(result, *emergency)
	}
	return result, rows.Err()
}

func (r *emergencyRepository) MarkResolved(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE emergencies SET resolved=true, status='resolved', updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// scanEmergency returns a partially filled row alongside decode errors so callers can quarantine it.
func scanEmergency(row pgx.Row) (*domain.Emergency, error) {
	var (
		emergency domain.Emergency
		status    string
	)
	if err := row.Scan(
		&emergency.ID,
		&emergency.PatientID,
		&emergency.PatientName,
		&emergency.Location,
		&emergency.Condition,
		&emergency.Priority,
		&status,
		&emergency.Resolved,
		&emergency.CreatedBy,
		&emergency.CreatedAt,
		&emergency.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseEmergencyStatus(status)
	if err != nil {
		return &emergency, err
	}
	emergency.Status = parsed
	return &emergency, nil
}
