package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/car-marketplace/internal/auth"
	"github.com/spec-kit/car-marketplace/internal/config"
	"github.com/spec-kit/car-marketplace/internal/domain"
	"github.com/spec-kit/car-marketplace/internal/events"
	"github.com/spec-kit/car-marketplace/internal/repository"
	"github.com/spec-kit/car-marketplace/internal/validation"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

// IndividualInput carries private-seller form fields.
type IndividualInput struct {
	FirstName string
	LastName  string
	Phone     string
	PhoneAlt  string
	Town      string
	Province  string
}

// OrganizationInput carries dealership form fields.
type OrganizationInput struct {
	Name          string
	ContactFirst  string
	ContactLast   string
	StreetAddress string
	StreetExtra   string
	Town          string
	Province      string
	Phone         string
	PhoneAlt      string
}

// RegisterInput is the full registration form.
type RegisterInput struct {
	Email        string
	Password     string
	Kind         domain.ProfileKind
	Individual   *IndividualInput
	Organization *OrganizationInput
}

// EditInput patches the credential and the profile, possibly switching the
// seller kind. Empty Email or Password means unchanged.
type EditInput struct {
	Email        string
	Password     string
	Kind         domain.ProfileKind
	Individual   *IndividualInput
	Organization *OrganizationInput
}

// AccountService orchestrates registration, login, profile edit and removal,
// and the verification-token flows.
type AccountService struct {
	credentials repository.CredentialRepository
	profiles    repository.ProfileRepository
	sessions    *SessionProjector
	hasher      auth.Hasher
	minter      auth.Minter
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	minPassword int
	baseURL     string
	dummyHash   string
}

// AccountDependencies encapsulates collaborator requirements.
type AccountDependencies struct {
	CredentialRepo repository.CredentialRepository
	ProfileRepo    repository.ProfileRepository
	Sessions       *SessionProjector
	Hasher         auth.Hasher
	Minter         auth.Minter
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	// Hashed once so authenticate can burn a compare on unknown emails and
	// keep failure timing independent of account existence.
	dummyHash, err := deps.Hasher.Hash("timing-equalizer")
	if err != nil {
		dummyHash = ""
	}

	return &AccountService{
		credentials: deps.CredentialRepo,
		profiles:    deps.ProfileRepo,
		sessions:    deps.Sessions,
		hasher:      deps.Hasher,
		minter:      deps.Minter,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		minPassword: cfg.Auth.MinPasswordLength,
		baseURL:     cfg.Links.BaseURL,
		dummyHash:   dummyHash,
	}
}

// Register creates the credential and the chosen profile variant as one
// logical unit, logs the account in, and triggers the verification mail.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.SessionView, error) {
	input.Email = auth.NormalizeEmail(input.Email)

	errs := validation.New()
	errs.Email("email", input.Email)
	errs.Password("password", input.Password, s.minPassword)
	s.validateVariant(errs, input.Kind, input.Individual, input.Organization)
	if !errs.Empty() {
		return nil, errorutil.NewValidationFailed("registration form has errors", errs.Details())
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, errorutil.NewStorageFault(err)
	}

	credential := &domain.Credential{
		Email:        input.Email,
		PasswordHash: hash,
		Verified:     false,
	}
	// The unique constraint on email resolves racing registrations; no
	// check-then-act here.
	if err := s.credentials.Create(ctx, credential); err != nil {
		return nil, errorutil.MapError(err)
	}

	profile, err := s.createVariant(ctx, credential.ID, input.Kind, input.Individual, input.Organization)
	if err != nil {
		// Roll the credential back so a failed registration leaves no
		// orphaned unverified record behind.
		if rollbackErr := s.credentials.Delete(ctx, credential.ID); rollbackErr != nil {
			s.logger.Error("credential rollback failed",
				zap.String("credential_id", credential.ID),
				zap.Error(rollbackErr))
		}
		return nil, errorutil.MapError(err)
	}

	view, err := s.sessions.Project(ctx, credential, *profile)
	if err != nil {
		return nil, err
	}

	s.publishVerification(ctx, events.EventAccountRegistered, credential)
	return view, nil
}

// Authenticate checks the email/password pair and materializes a session.
// UnknownEmail and WrongPassword are distinguished in the typed error only;
// both paths perform exactly one hash comparison so response timing does not
// leak account existence.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.SessionView, error) {
	email = auth.NormalizeEmail(email)

	credential, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, errorutil.NewUnknownEmail()
		}
		return nil, errorutil.NewStorageFault(err)
	}

	if err := s.hasher.Compare(credential.PasswordHash, password); err != nil {
		return nil, errorutil.NewWrongPassword()
	}

	profile, err := s.profiles.GetByCredentialID(ctx, credential.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("profile")
		}
		return nil, errorutil.NewStorageFault(err)
	}

	return s.sessions.Project(ctx, credential, *profile)
}

// Logout clears the session view.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Invalidate(ctx, sessionID)
}

// EditProfile applies a credential patch and a profile patch, switching the
// seller kind when the requested kind differs from the session's current one.
// Every branch ends by refreshing the SessionView from the just-written
// records.
func (s *AccountService) EditProfile(ctx context.Context, view *domain.SessionView, input EditInput) (*domain.SessionView, error) {
	input.Email = auth.NormalizeEmail(input.Email)

	errs := validation.New()
	if input.Email != "" {
		errs.Email("email", input.Email)
	}
	if input.Password != "" {
		errs.Password("password", input.Password, s.minPassword)
	}
	s.validateVariant(errs, input.Kind, input.Individual, input.Organization)
	if !errs.Empty() {
		return nil, errorutil.NewValidationFailed("profile form has errors", errs.Details())
	}

	credential, err := s.credentials.GetByID(ctx, view.CredentialID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("credential")
		}
		return nil, errorutil.NewStorageFault(err)
	}

	emailChanged := input.Email != "" && input.Email != credential.Email
	if emailChanged {
		credential.Email = input.Email
		// A changed address must be verified again.
		credential.Verified = false
	}
	if input.Password != "" {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return nil, errorutil.NewStorageFault(err)
		}
		credential.PasswordHash = hash
	}
	if emailChanged || input.Password != "" {
		if err := s.credentials.Update(ctx, credential); err != nil {
			return nil, errorutil.MapError(err)
		}
	}

	var profile *domain.Profile
	if input.Kind == view.Profile.Kind {
		profile, err = s.updateVariant(ctx, credential.ID, input)
	} else {
		profile, err = s.switchVariant(ctx, credential.ID, view.Profile.Kind, input)
	}
	if err != nil {
		return nil, err
	}

	refreshed, err := s.sessions.Refresh(ctx, view, credential, *profile)
	if err != nil {
		return nil, err
	}

	if emailChanged {
		s.publishVerification(ctx, events.EventEmailChanged, credential)
	}
	return refreshed, nil
}

// RemoveProfile deletes the active profile variant, then the credential, then
// clears the session. Profile first: the reversed order would strand a
// profile if the second delete failed.
func (s *AccountService) RemoveProfile(ctx context.Context, view *domain.SessionView) error {
	if err := s.profiles.DeleteByCredentialID(ctx, view.CredentialID, view.Profile.Kind); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewStorageFault(err)
		}
		s.logger.Warn("profile already gone during removal", zap.String("credential_id", view.CredentialID))
	}

	if err := s.credentials.Delete(ctx, view.CredentialID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewStorageFault(err)
		}
	}

	if err := s.sessions.Invalidate(ctx, view.SessionID); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventAccountRemoved,
		CredentialID: view.CredentialID,
		Email:        view.Email,
		Payload:      events.AccountRemovedPayload{ProfileKind: string(view.Profile.Kind)},
	})
	return nil
}

// RequestPasswordReset mints a reset link for the address. UnknownEmail is
// reported to the caller; the HTTP boundary masks it so the response shape
// does not reveal account existence.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)

	credential, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Burn a mint so the response takes as long as the known-address
			// path and timing cannot reveal account existence.
			_, _ = s.minter.Mint(email)
			return errorutil.NewUnknownEmail()
		}
		return errorutil.NewStorageFault(err)
	}

	token, err := s.minter.Mint(credential.Email)
	if err != nil {
		return errorutil.NewStorageFault(err)
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPasswordResetRequested,
		CredentialID: credential.ID,
		Email:        credential.Email,
		Payload: events.PasswordResetPayload{
			Link: fmt.Sprintf("%s/password/reset?email=%s&token=%s",
				s.baseURL, url.QueryEscape(credential.Email), token),
		},
	})
	return nil
}

// ResetPassword verifies the emailed token and stores a new password hash.
// The account deliberately ends logged out; the caller shows the login form.
func (s *AccountService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = auth.NormalizeEmail(email)

	if !s.minter.Verify(email, token) {
		return errorutil.NewInvalidToken()
	}

	errs := validation.New()
	errs.Password("password", newPassword, s.minPassword)
	if !errs.Empty() {
		return errorutil.NewValidationFailed("new password rejected", errs.Details())
	}

	credential, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewUnknownEmail()
		}
		return errorutil.NewStorageFault(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errorutil.NewStorageFault(err)
	}
	credential.PasswordHash = hash
	if err := s.credentials.Update(ctx, credential); err != nil {
		return errorutil.MapError(err)
	}

	if err := s.sessions.InvalidateByCredential(ctx, credential.ID); err != nil {
		s.logger.Warn("session invalidation after reset failed",
			zap.String("credential_id", credential.ID), zap.Error(err))
	}
	return nil
}

// VerifyEmailAddress confirms the emailed token and flips the verified flag.
// A live session for the credential is refreshed in the same operation so the
// user does not have to log in again to see verified status.
func (s *AccountService) VerifyEmailAddress(ctx context.Context, email, token string) error {
	email = auth.NormalizeEmail(email)

	if !s.minter.Verify(email, token) {
		return errorutil.NewInvalidToken()
	}

	credential, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewUnknownEmail()
		}
		return errorutil.NewStorageFault(err)
	}

	if !credential.Verified {
		credential.Verified = true
		if err := s.credentials.Update(ctx, credential); err != nil {
			return errorutil.MapError(err)
		}
	}

	view, err := s.sessions.LookupByCredential(ctx, credential.ID)
	if err != nil {
		return err
	}
	if view != nil {
		profile, err := s.profiles.GetByCredentialID(ctx, credential.ID)
		if err != nil {
			return errorutil.MapError(err)
		}
		if _, err := s.sessions.Refresh(ctx, view, credential, *profile); err != nil {
			return err
		}
	}
	return nil
}

// ResendVerification re-mints the verification link for a still-unverified
// logged-in account.
func (s *AccountService) ResendVerification(ctx context.Context, view *domain.SessionView) error {
	if view.Verified {
		return errorutil.NewValidationFailed("email address is already verified", map[string]any{
			"email": map[string]any{"message": "already verified", "severity": "warning"},
		})
	}

	credential, err := s.credentials.GetByID(ctx, view.CredentialID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("credential")
		}
		return errorutil.NewStorageFault(err)
	}

	s.publishVerification(ctx, events.EventVerificationResent, credential)
	return nil
}

func (s *AccountService) validateVariant(errs validation.Errors, kind domain.ProfileKind, individual *IndividualInput, organization *OrganizationInput) {
	switch kind {
	case domain.ProfileKindIndividual:
		if individual == nil {
			errs.Add("seller_kind", "individual details are required")
			return
		}
		errs.Required("first_name", individual.FirstName, "first name")
		errs.Required("last_name", individual.LastName, "last name")
		errs.Phones("phone", individual.Phone, individual.PhoneAlt)
		errs.Required("town", individual.Town, "town")
		errs.Required("province", individual.Province, "province")
	case domain.ProfileKindOrganization:
		if organization == nil {
			errs.Add("seller_kind", "dealership details are required")
			return
		}
		errs.Required("name", organization.Name, "dealership name")
		errs.Required("contact_first", organization.ContactFirst, "contact first name")
		errs.Required("contact_last", organization.ContactLast, "contact last name")
		errs.Required("street_address", organization.StreetAddress, "street address")
		errs.Phones("phone", organization.Phone, organization.PhoneAlt)
		errs.Required("town", organization.Town, "town")
		errs.Required("province", organization.Province, "province")
	default:
		errs.Add("seller_kind", "choose private seller or dealership")
	}
}

func (s *AccountService) createVariant(ctx context.Context, credentialID string, kind domain.ProfileKind, individual *IndividualInput, organization *OrganizationInput) (*domain.Profile, error) {
	switch kind {
	case domain.ProfileKindIndividual:
		record := &domain.IndividualProfile{
			CredentialID: credentialID,
			FirstName:    individual.FirstName,
			LastName:     individual.LastName,
			Phone:        individual.Phone,
			PhoneAlt:     individual.PhoneAlt,
			Town:         individual.Town,
			Province:     individual.Province,
		}
		if err := s.profiles.CreateIndividual(ctx, record); err != nil {
			return nil, err
		}
		profile := domain.NewIndividual(record)
		return &profile, nil
	default:
		record := &domain.OrganizationProfile{
			CredentialID:  credentialID,
			Name:          organization.Name,
			ContactFirst:  organization.ContactFirst,
			ContactLast:   organization.ContactLast,
			StreetAddress: organization.StreetAddress,
			StreetExtra:   organization.StreetExtra,
			Town:          organization.Town,
			Province:      organization.Province,
			Phone:         organization.Phone,
			PhoneAlt:      organization.PhoneAlt,
		}
		if err := s.profiles.CreateOrganization(ctx, record); err != nil {
			return nil, err
		}
		profile := domain.NewOrganization(record)
		return &profile, nil
	}
}

func (s *AccountService) updateVariant(ctx context.Context, credentialID string, input EditInput) (*domain.Profile, error) {
	switch input.Kind {
	case domain.ProfileKindIndividual:
		record := &domain.IndividualProfile{
			CredentialID: credentialID,
			FirstName:    input.Individual.FirstName,
			LastName:     input.Individual.LastName,
			Phone:        input.Individual.Phone,
			PhoneAlt:     input.Individual.PhoneAlt,
			Town:         input.Individual.Town,
			Province:     input.Individual.Province,
		}
		if err := s.profiles.UpdateIndividual(ctx, record); err != nil {
			return nil, errorutil.MapError(err)
		}
	default:
		record := &domain.OrganizationProfile{
			CredentialID:  credentialID,
			Name:          input.Organization.Name,
			ContactFirst:  input.Organization.ContactFirst,
			ContactLast:   input.Organization.ContactLast,
			StreetAddress: input.Organization.StreetAddress,
			StreetExtra:   input.Organization.StreetExtra,
			Town:          input.Organization.Town,
			Province:      input.Organization.Province,
			Phone:         input.Organization.Phone,
			PhoneAlt:      input.Organization.PhoneAlt,
		}
		if err := s.profiles.UpdateOrganization(ctx, record); err != nil {
			return nil, errorutil.MapError(err)
		}
	}

	profile, err := s.profiles.GetByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return profile, nil
}

// switchVariant replaces the profile with the other kind. Create before
// delete: if the create fails the old profile is untouched, and if the delete
// fails the new record stays authoritative rather than losing the account's
// only profile. The surplus old row is logged for cleanup.
func (s *AccountService) switchVariant(ctx context.Context, credentialID string, oldKind domain.ProfileKind, input EditInput) (*domain.Profile, error) {
	profile, err := s.createVariant(ctx, credentialID, input.Kind, input.Individual, input.Organization)
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	if err := s.profiles.DeleteByCredentialID(ctx, credentialID, oldKind); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Error("old profile delete failed after variant switch",
			zap.String("credential_id", credentialID),
			zap.String("old_kind", string(oldKind)),
			zap.Error(err))
	}
	return profile, nil
}

func (s *AccountService) publishVerification(ctx context.Context, eventType events.EventType, credential *domain.Credential) {
	token, err := s.minter.Mint(credential.Email)
	if err != nil {
		s.logger.Error("verification token mint failed",
			zap.String("credential_id", credential.ID), zap.Error(err))
		return
	}

	s.publish(ctx, events.Event{
		Type:         eventType,
		CredentialID: credential.ID,
		Email:        credential.Email,
		Payload: events.VerificationLinkPayload{
			Link: fmt.Sprintf("%s/verify?email=%s&token=%s",
				s.baseURL, url.QueryEscape(credential.Email), token),
		},
	})
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
