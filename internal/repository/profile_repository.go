package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// ProfileRepository reads identity/role records. The identity provider owns writes.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
}

// ContactRepository resolves delivery addresses for users.
type ContactRepository interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

type profileRepository struct {
	pool      *pgxpool.Pool
	onInvalid domain.InvalidRowHandler
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool, onInvalid domain.InvalidRowHandler) ProfileRepository {
	return &profileRepository{pool: pool, onInvalid: invalidRowHandler(onInvalid)}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
        SELECT user_id, name, role, department
        FROM profiles WHERE user_id=$1`

	var (
		profile domain.Profile
		role    string
	)
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Name,
		&role,
		&profile.Department,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		r.onInvalid("profiles", profile.UserID, err)
		return nil, err
	}
	profile.Role = parsed
	return &profile, nil
}

func (r *profileRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	const query = `
        SELECT user_id, name, role, department
        FROM profiles WHERE role=$1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var (
			profile domain.Profile
			raw     string
		)
		if err := rows.Scan(&profile.UserID, &profile.Name, &raw, &profile.Department); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			r.onInvalid("profiles", profile.UserID, err)
			continue
		}
		profile.Role = parsed
		result = append(result, profile)
	}
	return result, rows.Err()
}

type contactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository reads addresses from the identity provider's users table.
func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

func (r *contactRepository) EmailForUser(ctx context.Context, userID string) (string, error) {
	const query = `SELECT COALESCE(email, '') FROM users WHERE id=$1`

	var email string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&email); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return email, nil
}
