package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// TreatmentFilter narrows queue listings.
type TreatmentFilter struct {
	DoctorID         *string
	PatientID        *string
	IncludeCompleted bool
	Limit            int
}

// TreatmentRepository encapsulates treatment queue persistence.
type TreatmentRepository interface {
	Create(ctx context.Context, entry *domain.TreatmentQueueEntry) error
	GetByID(ctx context.Context, id string) (*domain.TreatmentQueueEntry, error)
	UpdateStatus(ctx context.Context, entry *domain.TreatmentQueueEntry) error
	List(ctx context.Context, filter TreatmentFilter) ([]domain.TreatmentQueueEntry, error)
}

type treatmentRepository struct {
	pool      *pgxpool.Pool
	onInvalid domain.InvalidRowHandler
}

// NewTreatmentRepository instantiates repository.
func NewTreatmentRepository(pool *pgxpool.Pool, onInvalid domain.InvalidRowHandler) TreatmentRepository {
	return &treatmentRepository{pool: pool, onInvalid: invalidRowHandler(onInvalid)}
}

const treatmentColumns = `id, patient_id, patient_name, doctor_id, department, priority, room_number, status, notes, created_at, updated_at, completed_at`

func (r *treatmentRepository) Create(ctx context.Context, entry *domain.TreatmentQueueEntry) error {
	const query = `
        INSERT INTO treatment_queue (patient_id, patient_name, doctor_id, department, priority, room_number, status, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.PatientID,
		entry.PatientName,
		entry.DoctorID,
		entry.Department,
		string(entry.Priority),
		entry.RoomNumber,
		string(entry.Status),
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *treatmentRepository) GetByID(ctx context.Context, id string) (*domain.TreatmentQueueEntry, error) {
	query := `SELECT ` + treatmentColumns + ` FROM treatment_queue WHERE id=$1`
	entry, err := scanTreatment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if entry != nil {
			r.onInvalid("treatment_queue", entry.ID, err)
		}
		return nil, err
	}
	return entry, nil
}

// UpdateStatus writes the status without a version check; concurrent writers get last-write-wins.
func (r *treatmentRepository) UpdateStatus(ctx context.Context, entry *domain.TreatmentQueueEntry) error {
	const query = `
        UPDATE treatment_queue SET status=$1, completed_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, string(entry.Status), entry.CompletedAt, entry.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *treatmentRepository) List(ctx context.Context, filter TreatmentFilter) ([]domain.TreatmentQueueEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		clauses = append(clauses, fmt.Sprintf("doctor_id=$%d", len(args)))
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		clauses = append(clauses, fmt.Sprintf("patient_id=$%d", len(args)))
	}
	if !filter.IncludeCompleted {
		args = append(args, string(domain.TreatmentStatusCompleted))
		clauses = append(clauses, fmt.Sprintf("status<>$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM treatment_queue WHERE %s
        ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at ASC
        LIMIT %d`, treatmentColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TreatmentQueueEntry
	for rows.Next() {
		entry, err := scanTreatment(rows)
		if err != nil {
			if entry != nil {
				r.onInvalid("treatment_queue", entry.ID, err)
				continue
			}
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func scanTreatment(row pgx.Row) (*domain.TreatmentQueueEntry, error) {
	var (
		entry    domain.TreatmentQueueEntry
		priority string
		status   string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.PatientID,
		&entry.PatientName,
		&entry.DoctorID,
		&entry.Department,
		&priority,
		&entry.RoomNumber,
		&status,
		&entry.Notes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.CompletedAt,
	); err != nil {
		return nil, err
	}
	p, err := domain.ParsePriority(priority)
	if err != nil {
		return &entry, err
	}
	s, err := domain.ParseTreatmentStatus(status)
	if err != nil {
		return &entry, err
	}
	entry.Priority = p
	entry.Status = s
	return &entry, nil
}
