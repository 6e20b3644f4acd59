package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/api/dto"
	"github.com/spec-kit/car-marketplace/internal/service"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

// PasswordHandler exposes the forgot/reset flow.
type PasswordHandler struct {
	accounts *service.AccountService
}

// NewPasswordHandler constructs handler.
func NewPasswordHandler(accounts *service.AccountService) *PasswordHandler {
	return &PasswordHandler{accounts: accounts}
}

// Forgot handles POST /password/forgot. The response is identical whether or
// not the address has an account, so the endpoint cannot be used to probe for
// registered emails.
func (h *PasswordHandler) Forgot(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	err := h.accounts.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil && !errorutil.HasCode(err, errorutil.CodeUnknownEmail) {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"message": "if that address has an account, a reset link is on its way",
		},
	})
}

// Reset handles POST /password/reset?email=&token=. An invalid token renders
// the forgot-password entry point again with a message, so the user can
// retry, rather than a dead-end error page.
func (h *PasswordHandler) Reset(c *fiber.Ctx) error {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		return fiber.NewError(http.StatusBadRequest, "email and token required")
	}

	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.accounts.ResetPassword(c.UserContext(), email, token, req.Password); err != nil {
		if errorutil.HasCode(err, errorutil.CodeInvalidToken) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    errorutil.CodeInvalidToken,
					"message": "reset link is not valid for that email address",
				},
				"form": "password_forgot",
			})
		}
		return err
	}

	// Reset deliberately ends logged out; the client shows the login form.
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"message": "password updated, please log in",
			"form":    "login",
		},
	})
}
