// Package validation builds the field-keyed error structure consumed by the
// registration and edit form redisplay path. Expected validation conditions
// are values, never panics; only storage faults propagate as errors.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

// Severity grades a field message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// FieldError is one field's message for form redisplay.
type FieldError struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Errors maps field name to its message.
type Errors map[string]FieldError

// New returns an empty error map.
func New() Errors {
	return make(Errors)
}

// Add records an error-severity message for the field, keeping the first
// message when a field fails several rules.
func (e Errors) Add(field, message string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = FieldError{Message: message, Severity: SeverityError}
}

// AddWarning records a warning-severity message for the field.
func (e Errors) AddWarning(field, message string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = FieldError{Message: message, Severity: SeverityWarning}
}

// Empty reports whether any field failed.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Details converts the map into the DomainError details shape.
func (e Errors) Details() map[string]any {
	details := make(map[string]any, len(e))
	for field, fieldErr := range e {
		details[field] = map[string]any{
			"message":  fieldErr.Message,
			"severity": string(fieldErr.Severity),
		}
	}
	return details
}

// Required checks a mandatory field.
func (e Errors) Required(field, value, label string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, fmt.Sprintf("%s is required", label))
	}
}

// Email checks address syntax.
func (e Errors) Email(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "email address is required")
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		e.Add(field, "email address is not valid")
	}
}

// Password checks the minimum length rule.
func (e Errors) Password(field, value string, minLength int) {
	if len(value) < minLength {
		e.Add(field, fmt.Sprintf("password must be at least %d characters", minLength))
	}
}

// Phones requires at least one contact number.
func (e Errors) Phones(field, phone, phoneAlt string) {
	if strings.TrimSpace(phone) == "" && strings.TrimSpace(phoneAlt) == "" {
		e.Add(field, "at least one contact number is required")
	}
}
