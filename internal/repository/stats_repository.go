package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// StatsRepository issues the independent count queries behind the staff dashboard.
// Each count runs in its own statement; they are not read from a shared snapshot.
type StatsRepository interface {
	CountProfilesByRole(ctx context.Context, role domain.Role) (int, error)
	CountShiftsByStatus(ctx context.Context, status domain.ShiftStatus) (int, error)
	CountActiveEmergencies(ctx context.Context) (int, error)
	CountUnfinishedTreatments(ctx context.Context) (int, error)
	CountAppointmentsOn(ctx context.Context, day time.Time) (int, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository instantiates repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) CountProfilesByRole(ctx context.Context, role domain.Role) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM profiles WHERE role=$1`, string(role))
}

func (r *statsRepository) CountShiftsByStatus(ctx context.Context, status domain.ShiftStatus) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM doctor_shifts WHERE status=$1`, string(status))
}

func (r *statsRepository) CountActiveEmergencies(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM emergencies WHERE resolved=false`)
}

func (r *statsRepository) CountUnfinishedTreatments(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM treatment_queue WHERE status<>$1`, string(domain.TreatmentStatusCompleted))
}

func (r *statsRepository) CountAppointmentsOn(ctx context.Context, day time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM appointments WHERE appointment_date=$1::date`, day.Format("2006-01-02"))
}

func (r *statsRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
