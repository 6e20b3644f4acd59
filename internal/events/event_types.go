package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered      EventType = "account_registered"
	EventEmailChanged           EventType = "email_changed"
	EventVerificationResent     EventType = "verification_resent"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventAccountRemoved         EventType = "account_removed"
)

// Event represents a domain event emitted by the account service.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	CredentialID string      `json:"credential_id"`
	Email        string      `json:"email"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// VerificationLinkPayload accompanies registration, email-change and resend
// events; Link is the full verification URL to deliver.
type VerificationLinkPayload struct {
	Link string `json:"link"`
}

// PasswordResetPayload accompanies password-reset-requested events.
type PasswordResetPayload struct {
	Link string `json:"link"`
}

// AccountRemovedPayload accompanies account removal events.
type AccountRemovedPayload struct {
	ProfileKind string `json:"profile_kind"`
}
