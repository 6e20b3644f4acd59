package domain

import "time"

// SessionView is the server-held projection of a logged-in account: the
// credential's public fields plus the active profile variant. It is built and
// refreshed only by the session projector, never mutated piecemeal, so it
// cannot silently diverge from the persisted records.
type SessionView struct {
	SessionID    string    `json:"session_id"`
	CredentialID string    `json:"credential_id"`
	Email        string    `json:"email"`
	Verified     bool      `json:"verified"`
	Profile      Profile   `json:"profile"`
	LoggedIn     bool      `json:"logged_in"`
	CreatedAt    time.Time `json:"created_at"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}
