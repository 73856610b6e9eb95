// Package apperr defines the error taxonomy shared by the domain services and
// its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

// SQLSTATE raised when a row-level security policy or grant rejects a statement.
const pgInsufficientPrivilege = "42501"

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func Validation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func MissingFields(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// PermissionError is returned when the record store's access policy rejects an operation.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: permission denied", e.Op)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// PersistenceError wraps any other record store failure.
type PersistenceError struct {
	Op       string
	EntityID string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.EntityID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// BlobError wraps a blob store failure for a single object key.
type BlobError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *BlobError) Unwrap() error { return e.Err }

func Blob(op, key string, err error) *BlobError {
	return &BlobError{Op: op, Key: key, Err: err}
}

// FromStore classifies a driver error. A nil err stays nil.
func FromStore(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf *NotFoundError
		ve *ValidationError
		pe *PermissionError
		se *PersistenceError
	)
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &se) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return &PermissionError{Op: op, Err: err}
	}
	return &PersistenceError{Op: op, EntityID: id, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusCode maps an error onto the HTTP status a handler should return.
func StatusCode(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		pe *PermissionError
		be *BlobError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &pe):
		return http.StatusForbidden
	case errors.As(err, &be):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an *echo.HTTPError. Persistence failures are
// reported with a generic message; the cause is kept as the internal error.
func HTTPError(err error) *echo.HTTPError {
	code := StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "could not complete the operation, please try again"
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}
