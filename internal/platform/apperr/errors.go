// Package apperr defines the error taxonomy shared by the domain services and
// its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a record is owned by a different user.
	ErrForbidden = errors.New("record belongs to another user")
	// ErrCommit is returned when an atomic write was rejected by the store.
	// Nothing from the rejected unit is persisted.
	ErrCommit = errors.New("commit failed")
	// ErrCapacityExceeded is returned only when the strict capacity policy is active.
	ErrCapacityExceeded = errors.New("clinic daily capacity exceeded")
)

// User error codes.
const (
	CodeEmptySelection       = "empty_selection"
	CodeMissingCompany       = "missing_company"
	CodeMissingClinic        = "missing_clinic"
	CodeMissingDate          = "missing_date"
	CodeInvalidField         = "invalid_field"
	CodeEmployeeNotInCompany = "employee_not_in_company"
)

// UserError is a local validation failure. Nothing is written when one is returned.
type UserError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *UserError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Invalid builds a UserError for a single field.
func Invalid(field, format string, args ...interface{}) error {
	return &UserError{Code: CodeInvalidField, Field: field, Message: fmt.Sprintf(format, args...)}
}

// User builds a UserError with the given code.
func User(code, message string) error {
	return &UserError{Code: code, Message: message}
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// Forbidden wraps ErrForbidden with the kind and id of the record.
func Forbidden(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrForbidden)
}

// Commit wraps a store failure as ErrCommit while keeping the cause inspectable.
func Commit(cause error) error {
	return fmt.Errorf("%w: %w", ErrCommit, cause)
}

// FromNoRows translates pgx.ErrNoRows into a NotFound for the given record.
func FromNoRows(err error, kind string, id interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(kind, id)
	}
	return err
}

// IsUserError reports whether err is (or wraps) a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// Status returns the HTTP status matching err.
func Status(err error) int {
	var ue *UserError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ue):
		if ue.Code == CodeInvalidField {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrCapacityExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts err into an echo HTTP error. User errors keep their code so
// clients can branch on it.
func ToHTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	status := Status(err)
	var ue *UserError
	if errors.As(err, &ue) {
		return echo.NewHTTPError(status, ue)
	}
	if status == http.StatusInternalServerError {
		msg := "internal server error"
		if errors.Is(err, ErrCommit) {
			msg = "commit failed, nothing was saved"
		}
		return echo.NewHTTPError(status, msg).SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
