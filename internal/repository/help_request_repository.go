package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// HelpRequestFilter narrows help request listings.
type HelpRequestFilter struct {
	RequestedBy *string
	Statuses    []domain.HelpRequestStatus
	Limit       int
}

// HelpRequestRepository persists help requests.
type HelpRequestRepository interface {
	Create(ctx context.Context, req *domain.HelpRequest) error
	GetByID(ctx context.Context, id string) (*domain.HelpRequest, error)
	Update(ctx context.Context, req *domain.HelpRequest) error
	List(ctx context.Context, filter HelpRequestFilter) ([]domain.HelpRequest, error)
}

type helpRequestRepository struct {
	pool      *pgxpool.Pool
	onInvalid domain.InvalidRowHandler
}

// NewHelpRequestRepository instantiates repository.
func NewHelpRequestRepository(pool *pgxpool.Pool, onInvalid domain.InvalidRowHandler) HelpRequestRepository {
	return &helpRequestRepository{pool: pool, onInvalid: invalidRowHandler(onInvalid)}
}

const helpRequestColumns = `id, requested_by, requester_role, request_type, urgency, description, status, assigned_to, response_notes, resolved_at, created_at, updated_at`

func (r *helpRequestRepository) Create(ctx context.Context, req *domain.HelpRequest) error {
	const query = `
        INSERT INTO help_requests (requested_by, requester_role, request_type, urgency, description, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.RequestedBy,
		string(req.RequesterRole),
		req.RequestType,
		string(req.Urgency),
		req.Description,
		string(req.Status),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *helpRequestRepository) GetByID(ctx context.Context, id string) (*domain.HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests WHERE id=$1`
	req, err := scanHelpRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if req != nil {
			r.onInvalid("help_requests", req.ID, err)
		}
		return nil, err
	}
	return req, nil
}

func (r *helpRequestRepository) Update(ctx context.Context, req *domain.HelpRequest) error {
	const query = `
        UPDATE help_requests SET status=$1, assigned_to=$2, response_notes=$3, resolved_at=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		string(req.Status),
		req.AssignedTo,
		req.ResponseNotes,
		req.ResolvedAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *helpRequestRepository) List(ctx context.Context, filter HelpRequestFilter) ([]domain.HelpRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequestedBy != nil {
		args = append(args, *filter.RequestedBy)
		clauses = append(clauses, fmt.Sprintf("requested_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM help_requests WHERE %s ORDER BY created_at DESC LIMIT %d`,
		helpRequestColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HelpRequest
	for rows.Next() {
		req, err := scanHelpRequest(rows)
		if err != nil {
			if req != nil {
				r.onInvalid("help_requests", req.ID, err)
				continue
			}
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func scanHelpRequest(row pgx.Row) (*domain.HelpRequest, error) {
	var (
		req     domain.HelpRequest
		role    string
		urgency string
		status  string
	)
	if err := row.Scan(
		&req.ID,
		&req.RequestedBy,
		&role,
		&req.RequestType,
		&urgency,
		&req.Description,
		&status,
		&req.AssignedTo,
		&req.ResponseNotes,
		&req.ResolvedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return &req, err
	}
	parsedUrgency, err := domain.ParseUrgency(urgency)
	if err != nil {
		return &req, err
	}
	parsedStatus, err := domain.ParseHelpRequestStatus(status)
	if err != nil {
		return &req, err
	}
	req.RequesterRole = parsedRole
	req.Urgency = parsedUrgency
	req.Status = parsedStatus
	return &req, nil
}
