package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches DomainErrors by code so callers can use errors.Is against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeNoRecipients      = "NO_RECIPIENTS"
	CodeMissingParameter  = "MISSING_PARAMETER"
	CodeStoreWrite        = "STORE_WRITE_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// Sentinels for errors.Is checks.
var (
	ErrConfiguration     = &DomainError{Code: CodeConfiguration}
	ErrNoRecipients      = &DomainError{Code: CodeNoRecipients}
	ErrMissingParameter  = &DomainError{Code: CodeMissingParameter}
	ErrStoreWrite        = &DomainError{Code: CodeStoreWrite}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition}
	ErrNotFound          = &DomainError{Code: CodeNotFound}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewConfigurationError reports a missing credential or setting. Fatal to the current operation only.
func NewConfigurationError(message string) error {
	return NewDomainError(CodeConfiguration, message, http.StatusInternalServerError, nil)
}

// NewNoRecipientsError reports an empty recipient set for a fan-out.
func NewNoRecipientsError(message string) error {
	return NewDomainError(CodeNoRecipients, message, http.StatusNotFound, nil)
}

func NewMissingParameter(name string) error {
	return NewDomainError(CodeMissingParameter, fmt.Sprintf("missing required parameter: %s", name),
		http.StatusBadRequest, map[string]any{"parameter": name})
}

// NewStoreWriteError wraps a failed write against the store. Writes are never retried automatically.
func NewStoreWriteError(op string, err error) error {
	return &DomainError{
		Code:       CodeStoreWrite,
		Message:    fmt.Sprintf("failed to %s", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewStoreReadError wraps a failed read against the store.
func NewStoreReadError(op string, err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    fmt.Sprintf("failed to %s", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidTransition(entity, from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
