package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/auth"
	"github.com/spec-kit/car-marketplace/internal/service"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

// VerificationHandler exposes email verification endpoints.
type VerificationHandler struct {
	accounts *service.AccountService
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(accounts *service.AccountService) *VerificationHandler {
	return &VerificationHandler{accounts: accounts}
}

// Verify handles GET /verify?email=&token=. An invalid token renders the
// not-yet-verified entry point with a message so the user can request a new
// link.
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		return fiber.NewError(http.StatusBadRequest, "email and token required")
	}

	if err := h.accounts.VerifyEmailAddress(c.UserContext(), email, token); err != nil {
		if errorutil.HasCode(err, errorutil.CodeInvalidToken) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    errorutil.CodeInvalidToken,
					"message": "verification link is not valid for that email address",
				},
				"form": "verify_pending",
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{"verified": true},
	})
}

// Resend handles POST /verify/resend for a logged-in, still-unverified
// account.
func (h *VerificationHandler) Resend(c *fiber.Ctx) error {
	view, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("not logged in")
	}

	if err := h.accounts.ResendVerification(c.UserContext(), view); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "verification link sent"},
	})
}
