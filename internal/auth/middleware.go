package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/domain"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

const sessionViewKey = "session_view"

// SessionLookup resolves a session id to its live view.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (*domain.SessionView, error)
}

// SessionMiddleware resolves the session cookie to a SessionView and rejects
// requests without a live session.
type SessionMiddleware struct {
	tokens     *SessionTokenManager
	sessions   SessionLookup
	cookieName string
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *SessionTokenManager, sessions SessionLookup, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// Handle enforces a logged-in session for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	cookie := c.Cookies(m.cookieName)
	if cookie == "" {
		return errorutil.NewUnauthorized("not logged in")
	}

	sessionID, err := m.tokens.Parse(cookie)
	if err != nil {
		return errorutil.NewUnauthorized("invalid session cookie")
	}

	view, err := m.sessions.Lookup(c.UserContext(), sessionID)
	if err != nil {
		return errorutil.MapError(err)
	}
	if view == nil || !view.LoggedIn {
		return errorutil.NewUnauthorized("session expired")
	}

	c.Locals(sessionViewKey, view)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session view.
func SessionFromContext(c *fiber.Ctx) (*domain.SessionView, bool) {
	val := c.Locals(sessionViewKey)
	if val == nil {
		return nil, false
	}
	view, ok := val.(*domain.SessionView)
	return view, ok
}
