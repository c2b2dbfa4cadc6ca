package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsMatchByCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("create emergency: %w", NewStoreWriteError("create emergency", cause))

	assert.True(t, errors.Is(err, ErrStoreWrite))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNoRecipients))
	assert.Equal(t, "create emergency: failed to create emergency: connection reset", err.Error())
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	missing := ToDomainError(NewMissingParameter("id"))
	assert.Equal(t, http.StatusBadRequest, missing.HTTPStatus)
	assert.Equal(t, "id", missing.Details["parameter"])
}

func TestTaxonomyStatuses(t *testing.T) {
	cases := map[error]int{
		NewConfigurationError("email service not configured"):      http.StatusInternalServerError,
		NewNoRecipientsError("no doctors found to notify"):         http.StatusNotFound,
		NewInvalidTransition("treatment", "completed", "assigned"): http.StatusConflict,
		NewForbidden("not yours"):                                  http.StatusForbidden,
		NewUnauthorized("missing token"):                           http.StatusUnauthorized,
	}
	for err, status := range cases {
		assert.Equal(t, status, ToDomainError(err).HTTPStatus, err.Error())
	}
}
