package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/api/dto"
	"github.com/spec-kit/car-marketplace/internal/auth"
	"github.com/spec-kit/car-marketplace/internal/domain"
	"github.com/spec-kit/car-marketplace/internal/service"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

// AccountsHandler exposes registration, login and profile endpoints.
type AccountsHandler struct {
	accounts   *service.AccountService
	tokens     *auth.SessionTokenManager
	cookieName string
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService, tokens *auth.SessionTokenManager, cookieName string) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, tokens: tokens, cookieName: cookieName}
}

// Register handles POST /accounts/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	kind, ok := sellerKind(req.SellerKind)
	if !ok {
		return errorutil.NewValidationFailed("registration form has errors", map[string]any{
			"seller_kind": map[string]any{"message": "choose private seller or dealership", "severity": "error"},
		})
	}

	view, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Kind:         kind,
		Individual:   individualInput(req.Individual),
		Organization: organizationInput(req.Organization),
	})
	if err != nil {
		return err
	}

	if err := h.setSessionCookie(c, view.SessionID); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(view)})
}

// Login handles POST /accounts/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	view, err := h.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if err := h.setSessionCookie(c, view.SessionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(view)})
}

// Logout handles POST /accounts/logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	view, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("not logged in")
	}

	if err := h.accounts.Logout(c.UserContext(), view.SessionID); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// Me handles GET /accounts/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	view, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("not logged in")
	}
	return c.JSON(fiber.Map{"data": sessionResponse(view)})
}

// Edit handles PUT /accounts/profile.
func (h *AccountsHandler) Edit(c *fiber.Ctx) error {
	view, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("not logged in")
	}

	var req dto.EditProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	kind, ok := sellerKind(req.SellerKind)
	if !ok {
		kind = view.Profile.Kind
	}

	refreshed, err := h.accounts.EditProfile(c.UserContext(), view, service.EditInput{
		Email:        req.Email,
		Password:     req.Password,
		Kind:         kind,
		Individual:   individualInput(req.Individual),
		Organization: organizationInput(req.Organization),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(refreshed)})
}

// Remove handles DELETE /accounts.
func (h *AccountsHandler) Remove(c *fiber.Ctx) error {
	view, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("not logged in")
	}

	if err := h.accounts.RemoveProfile(c.UserContext(), view); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

func (h *AccountsHandler) setSessionCookie(c *fiber.Ctx, sessionID string) error {
	token, expiresAt, err := h.tokens.Generate(sessionID)
	if err != nil {
		return errorutil.NewStorageFault(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return nil
}

func (h *AccountsHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func sellerKind(value string) (domain.ProfileKind, bool) {
	switch value {
	case "individual", string(domain.ProfileKindIndividual):
		return domain.ProfileKindIndividual, true
	case "organization", string(domain.ProfileKindOrganization):
		return domain.ProfileKindOrganization, true
	default:
		return "", false
	}
}

func individualInput(payload *dto.IndividualPayload) *service.IndividualInput {
	if payload == nil {
		return nil
	}
	return &service.IndividualInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		PhoneAlt:  payload.PhoneAlt,
		Town:      payload.Town,
		Province:  payload.Province,
	}
}

func organizationInput(payload *dto.OrganizationPayload) *service.OrganizationInput {
	if payload == nil {
		return nil
	}
	return &service.OrganizationInput{
		Name:          payload.Name,
		ContactFirst:  payload.ContactFirst,
		ContactLast:   payload.ContactLast,
		StreetAddress: payload.StreetAddress,
		StreetExtra:   payload.StreetExtra,
		Town:          payload.Town,
		Province:      payload.Province,
		Phone:         payload.Phone,
		PhoneAlt:      payload.PhoneAlt,
	}
}

func sessionResponse(view *domain.SessionView) fiber.Map {
	data := fiber.Map{
		"credential_id": view.CredentialID,
		"email":         view.Email,
		"verified":      view.Verified,
		"seller_kind":   view.Profile.Kind,
		"display_name":  view.Profile.DisplayName(),
	}

	switch view.Profile.Kind {
	case domain.ProfileKindIndividual:
		if p := view.Profile.Individual; p != nil {
			data["individual"] = fiber.Map{
				"first_name": p.FirstName,
				"last_name":  p.LastName,
				"phone":      p.Phone,
				"phone_alt":  p.PhoneAlt,
				"town":       p.Town,
				"province":   p.Province,
			}
		}
	case domain.ProfileKindOrganization:
		if p := view.Profile.Organization; p != nil {
			data["organization"] = fiber.Map{
				"name":           p.Name,
				"contact_first":  p.ContactFirst,
				"contact_last":   p.ContactLast,
				"street_address": p.StreetAddress,
				"street_extra":   p.StreetExtra,
				"town":           p.Town,
				"province":       p.Province,
				"phone":          p.Phone,
				"phone_alt":      p.PhoneAlt,
			}
		}
	}
	return data
}
