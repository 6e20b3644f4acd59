package auth

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Minter issues and checks email verification tokens.
type Minter interface {
	Mint(email string) (string, error)
	Verify(email, token string) bool
}

// TokenMinter derives verification-link tokens from an email address using
// the same one-way hash primitive as password storage. Nothing is persisted:
// a token is valid exactly when the bcrypt digest it carries matches the
// address, so links stay valid until the address itself changes. The salt
// bcrypt embeds per mint means two links for the same address differ.
type TokenMinter struct {
	cost int
}

// NewTokenMinter builds a minter with the given bcrypt cost.
func NewTokenMinter(cost int) *TokenMinter {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &TokenMinter{cost: cost}
}

// Mint produces a URL-safe token for the address.
func (m *TokenMinter) Mint(email string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(NormalizeEmail(email)), m.cost)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(digest), nil
}

// Verify reports whether token was minted for the address. Malformed and
// mismatched tokens are indistinguishable: both return false.
func (m *TokenMinter) Verify(email, token string) bool {
	digest, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(NormalizeEmail(email))) == nil
}

// NormalizeEmail lowercases and trims an address so lookups and token
// derivation agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
