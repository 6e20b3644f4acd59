package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes for the account subsystem. The first five are expected,
// user-recoverable conditions and render as form or field messages;
// NOT_FOUND and STORAGE_FAULT are unexpected and render a generic error.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeDuplicateKey     = "DUPLICATE_KEY"
	CodeUnknownEmail     = "UNKNOWN_EMAIL"
	CodeWrongPassword    = "WRONG_PASSWORD"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeStorageFault     = "STORAGE_FAULT"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationFailed reports field-level input failures. Details is keyed by
// field name so the form redisplay path can consume it directly.
func NewValidationFailed(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewDuplicateKey reports a uniqueness-constraint conflict on the named field.
func NewDuplicateKey(field string) error {
	return NewDomainError(CodeDuplicateKey, fmt.Sprintf("%s already in use", field), http.StatusConflict, map[string]any{"field": field})
}

func NewUnknownEmail() error {
	return NewDomainError(CodeUnknownEmail, "no account for that email address", http.StatusUnauthorized, nil)
}

func NewWrongPassword() error {
	return NewDomainError(CodeWrongPassword, "wrong password", http.StatusUnauthorized, nil)
}

// NewInvalidToken covers both mismatched and malformed verification tokens;
// callers must not be able to tell the two apart.
func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "verification link is not valid for that email address", http.StatusUnprocessableEntity, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewNotFound reports a record that vanished mid-operation. Unexpected during
// authenticated flows, so it maps to a generic 500 rather than a 404 page.
func NewNotFound(entity string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewStorageFault(err error) error {
	return &DomainError{
		Code:       CodeStorageFault,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError, classifying
// store-layer failures on the way.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("record").(*DomainError); ok {
			return de
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if de, ok := NewDuplicateKey(fieldForConstraint(pgErr.ConstraintName)).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewStorageFault(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeStorageFault,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

func fieldForConstraint(constraint string) string {
	switch constraint {
	case "credentials_email_key":
		return "email"
	case "individual_profiles_credential_id_key", "organization_profiles_credential_id_key":
		return "credential_id"
	default:
		return "unknown"
	}
}
