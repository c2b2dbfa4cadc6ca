package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func invalidRowHandler(h domain.InvalidRowHandler) domain.InvalidRowHandler {
	if h == nil {
		return domain.DiscardInvalidRows
	}
	return h
}
