package domain

import "time"

// Credential is the authentication root for an account. Email is stored in
// normalized form and carries a unique constraint; the password is only ever
// stored as a bcrypt hash.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
