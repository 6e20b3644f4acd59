package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/car-marketplace/internal/auth"
	"github.com/spec-kit/car-marketplace/internal/config"
	"github.com/spec-kit/car-marketplace/internal/domain"
	"github.com/spec-kit/car-marketplace/internal/events"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

type fakeCredentialRepo struct {
	records map[string]*domain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{records: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepo) Create(_ context.Context, credential *domain.Credential) error {
	for _, existing := range r.records {
		if existing.Email == credential.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "credentials_email_key"}
		}
	}
	credential.ID = uuid.NewString()
	now := time.Now().UTC()
	credential.CreatedAt = now
	credential.UpdatedAt = now
	stored := *credential
	r.records[credential.ID] = &stored
	return nil
}

func (r *fakeCredentialRepo) Update(_ context.Context, credential *domain.Credential) error {
	if _, ok := r.records[credential.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.records {
		if id != credential.ID && existing.Email == credential.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "credentials_email_key"}
		}
	}
	stored := *credential
	stored.UpdatedAt = time.Now().UTC()
	r.records[credential.ID] = &stored
	return nil
}

func (r *fakeCredentialRepo) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	stored, ok := r.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeCredentialRepo) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	for _, stored := range r.records {
		if stored.Email == email {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCredentialRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.records[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.records, id)
	return nil
}

type fakeProfileRepo struct {
	individuals   map[string]*domain.IndividualProfile
	organizations map[string]*domain.OrganizationProfile

	failCreateIndividual   bool
	failCreateOrganization bool
	failDelete             bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		individuals:   make(map[string]*domain.IndividualProfile),
		organizations: make(map[string]*domain.OrganizationProfile),
	}
}

func (r *fakeProfileRepo) CreateIndividual(_ context.Context, profile *domain.IndividualProfile) error {
	if r.failCreateIndividual {
		return errors.New("insert failed")
	}
	if _, ok := r.individuals[profile.CredentialID]; ok {
		return &pgconn.PgError{Code: "23505", ConstraintName: "individual_profiles_credential_id_key"}
	}
	profile.ID = uuid.NewString()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	stored := *profile
	r.individuals[profile.CredentialID] = &stored
	return nil
}

func (r *fakeProfileRepo) CreateOrganization(_ context.Context, profile *domain.OrganizationProfile) error {
	if r.failCreateOrganization {
		return errors.New("insert failed")
	}
	if _, ok := r.organizations[profile.CredentialID]; ok {
		return &pgconn.PgError{Code: "23505", ConstraintName: "organization_profiles_credential_id_key"}
	}
	profile.ID = uuid.NewString()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	stored := *profile
	r.organizations[profile.CredentialID] = &stored
	return nil
}

func (r *fakeProfileRepo) UpdateIndividual(_ context.Context, profile *domain.IndividualProfile) error {
	stored, ok := r.individuals[profile.CredentialID]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.ID = stored.ID
	profile.CreatedAt = stored.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	clone := *profile
	r.individuals[profile.CredentialID] = &clone
	return nil
}

func (r *fakeProfileRepo) UpdateOrganization(_ context.Context, profile *domain.OrganizationProfile) error {
	stored, ok := r.organizations[profile.CredentialID]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.ID = stored.ID
	profile.CreatedAt = stored.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	clone := *profile
	r.organizations[profile.CredentialID] = &clone
	return nil
}

func (r *fakeProfileRepo) GetByCredentialID(_ context.Context, credentialID string) (*domain.Profile, error) {
	individual, hasIndividual := r.individuals[credentialID]
	organization, hasOrganization := r.organizations[credentialID]

	// Matches the Postgres repository: when a failed switch delete left a row
	// in each table, the newer row wins.
	switch {
	case hasIndividual && (!hasOrganization || individual.UpdatedAt.After(organization.UpdatedAt)):
		clone := *individual
		profile := domain.NewIndividual(&clone)
		return &profile, nil
	case hasOrganization:
		clone := *organization
		profile := domain.NewOrganization(&clone)
		return &profile, nil
	default:
		return nil, pgx.ErrNoRows
	}
}

func (r *fakeProfileRepo) DeleteByCredentialID(_ context.Context, credentialID string, kind domain.ProfileKind) error {
	if r.failDelete {
		return errors.New("delete failed")
	}
	if kind == domain.ProfileKindOrganization {
		if _, ok := r.organizations[credentialID]; !ok {
			return pgx.ErrNoRows
		}
		delete(r.organizations, credentialID)
		return nil
	}
	if _, ok := r.individuals[credentialID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.individuals, credentialID)
	return nil
}

type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) lastOfType(eventType events.EventType) (events.Event, bool) {
	for i := len(d.published) - 1; i >= 0; i-- {
		if d.published[i].Type == eventType {
			return d.published[i], true
		}
	}
	return events.Event{}, false
}

// countingHasher tracks Compare calls so the login tests can assert that the
// unknown-email and wrong-password paths burn exactly one comparison each.
type countingHasher struct {
	inner    *auth.BcryptHasher
	compares int
}

func (h *countingHasher) Hash(plain string) (string, error) {
	return h.inner.Hash(plain)
}

func (h *countingHasher) Compare(hashed, plain string) error {
	h.compares++
	return h.inner.Compare(hashed, plain)
}

// countingMinter tracks Mint calls so the forgot-password tests can assert
// that the known-address and unknown-address paths burn exactly one mint
// each.
type countingMinter struct {
	inner *auth.TokenMinter
	mints int
}

func (m *countingMinter) Mint(email string) (string, error) {
	m.mints++
	return m.inner.Mint(email)
}

func (m *countingMinter) Verify(email, token string) bool {
	return m.inner.Verify(email, token)
}

type accountFixture struct {
	service    *AccountService
	creds      *fakeCredentialRepo
	profiles   *fakeProfileRepo
	sessions   *SessionProjector
	dispatcher *captureDispatcher
	hasher     *countingHasher
	minter     *countingMinter
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	creds := newFakeCredentialRepo()
	profiles := newFakeProfileRepo()
	dispatcher := &captureDispatcher{}
	hasher := &countingHasher{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
	minter := &countingMinter{inner: auth.NewTokenMinter(bcrypt.MinCost)}
	sessions := NewSessionProjector(client, time.Hour)

	cfg := config.Config{
		Auth:  config.AuthConfig{BcryptCost: bcrypt.MinCost, MinPasswordLength: 8},
		Links: config.LinksConfig{BaseURL: "http://test"},
	}

	service := NewAccountService(cfg, AccountDependencies{
		CredentialRepo: creds,
		ProfileRepo:    profiles,
		Sessions:       sessions,
		Hasher:         hasher,
		Minter:         minter,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
	})

	return &accountFixture{
		service:    service,
		creds:      creds,
		profiles:   profiles,
		sessions:   sessions,
		dispatcher: dispatcher,
		hasher:     hasher,
		minter:     minter,
	}
}

func individualRegistration(email string) RegisterInput {
	return RegisterInput{
		Email:    email,
		Password: "hunter2hunter2",
		Kind:     domain.ProfileKindIndividual,
		Individual: &IndividualInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Phone:     "0821234567",
			Town:      "Cape Town",
			Province:  "Western Cape",
		},
	}
}

func organizationDetails() *OrganizationInput {
	return &OrganizationInput{
		Name:          "Lovelace Motors",
		ContactFirst:  "Ada",
		ContactLast:   "Lovelace",
		StreetAddress: "1 Analytical Way",
		Town:          "Cape Town",
		Province:      "Western Cape",
		Phone:         "0217654321",
	}
}

func linkParams(t *testing.T, link string) (email, token string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	query := parsed.Query()
	return query.Get("email"), query.Get("token")
}

func TestRegisterIndividual(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, "seller@example.com", view.Email)
	assert.False(t, view.Verified)
	assert.True(t, view.LoggedIn)
	assert.Equal(t, domain.ProfileKindIndividual, view.Profile.Kind)
	assert.Equal(t, "Ada Lovelace", view.Profile.DisplayName())

	require.Len(t, fx.creds.records, 1)
	require.Len(t, fx.profiles.individuals, 1)

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	event, ok := fx.dispatcher.lastOfType(events.EventAccountRegistered)
	require.True(t, ok)
	payload, ok := event.Payload.(events.VerificationLinkPayload)
	require.True(t, ok)

	email, token := linkParams(t, payload.Link)
	assert.Equal(t, "seller@example.com", email)
	assert.True(t, fx.minter.Verify(email, token))
}

func TestRegisterNormalizesEmail(t *testing.T) {
	fx := newAccountFixture(t)

	view, err := fx.service.Register(context.Background(), individualRegistration("  Seller@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", view.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	input := individualRegistration("seller@example.com")
	input.Kind = domain.ProfileKindOrganization
	input.Individual = nil
	input.Organization = organizationDetails()

	_, err = fx.service.Register(ctx, input)
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeDuplicateKey))

	// The conflicting attempt must leave no partial state behind.
	assert.Len(t, fx.creds.records, 1)
	assert.Len(t, fx.profiles.organizations, 0)
}

func TestRegisterRollsBackCredentialOnProfileFailure(t *testing.T) {
	fx := newAccountFixture(t)
	fx.profiles.failCreateIndividual = true

	_, err := fx.service.Register(context.Background(), individualRegistration("seller@example.com"))
	require.Error(t, err)

	assert.Len(t, fx.creds.records, 0)
	assert.Len(t, fx.profiles.individuals, 0)
}

func TestRegisterValidationFailures(t *testing.T) {
	fx := newAccountFixture(t)

	input := RegisterInput{
		Email:      "not-an-address",
		Password:   "short",
		Kind:       domain.ProfileKindIndividual,
		Individual: &IndividualInput{},
	}

	_, err := fx.service.Register(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidationFailed))

	var domainErr *errorutil.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Details, "email")
	assert.Contains(t, domainErr.Details, "password")
	assert.Contains(t, domainErr.Details, "first_name")
	assert.Contains(t, domainErr.Details, "phone")

	assert.Len(t, fx.creds.records, 0)
}

func TestRegisterRejectsMissingVariant(t *testing.T) {
	fx := newAccountFixture(t)

	input := individualRegistration("seller@example.com")
	input.Individual = nil

	_, err := fx.service.Register(context.Background(), input)
	require.Error(t, err)

	var domainErr *errorutil.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Details, "seller_kind")
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	fx := newAccountFixture(t)

	_, err := fx.service.Authenticate(context.Background(), "nobody@example.com", "whatever-password")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnknownEmail))

	// The dummy comparison keeps the miss path at one hash check.
	assert.Equal(t, 1, fx.hasher.compares)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)
	fx.hasher.compares = 0

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeWrongPassword))
	assert.Equal(t, 1, fx.hasher.compares)
}

func TestAuthenticateSuccess(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	view, err := fx.service.Authenticate(ctx, "Seller@Example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "seller@example.com", view.Email)
	assert.Equal(t, domain.ProfileKindIndividual, view.Profile.Kind)

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	require.NoError(t, fx.service.Logout(ctx, view.SessionID))

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestEditProfileSameKind(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	refreshed, err := fx.service.EditProfile(ctx, view, EditInput{
		Kind: domain.ProfileKindIndividual,
		Individual: &IndividualInput{
			FirstName: "Grace",
			LastName:  "Hopper",
			Phone:     "0839876543",
			Town:      "Durban",
			Province:  "KwaZulu-Natal",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, view.SessionID, refreshed.SessionID)
	assert.Equal(t, "Grace Hopper", refreshed.Profile.DisplayName())

	stored := fx.profiles.individuals[view.CredentialID]
	require.NotNil(t, stored)
	assert.Equal(t, "Durban", stored.Town)
}

func TestEditProfileSwitchesVariant(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	refreshed, err := fx.service.EditProfile(ctx, view, EditInput{
		Kind:         domain.ProfileKindOrganization,
		Organization: organizationDetails(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileKindOrganization, refreshed.Profile.Kind)
	assert.Equal(t, "Lovelace Motors", refreshed.Profile.DisplayName())

	// The old variant row is gone and the new one owns the credential.
	assert.Len(t, fx.profiles.individuals, 0)
	assert.Len(t, fx.profiles.organizations, 1)

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ProfileKindOrganization, stored.Profile.Kind)
}

func TestEditProfileSwitchSurvivesDeleteFailure(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	fx.profiles.failDelete = true

	refreshed, err := fx.service.EditProfile(ctx, view, EditInput{
		Kind:         domain.ProfileKindOrganization,
		Organization: organizationDetails(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileKindOrganization, refreshed.Profile.Kind)

	// The new record is authoritative even though the old row lingers.
	assert.Len(t, fx.profiles.organizations, 1)
	assert.Len(t, fx.profiles.individuals, 1)

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ProfileKindOrganization, stored.Profile.Kind)
}

func TestAuthenticateAfterSwitchDeleteFailureUsesNewVariant(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	view, err := fx.service.Authenticate(ctx, "seller@example.com", "hunter2hunter2")
	require.NoError(t, err)

	fx.profiles.failDelete = true
	_, err = fx.service.EditProfile(ctx, view, EditInput{
		Kind:         domain.ProfileKindOrganization,
		Organization: organizationDetails(),
	})
	require.NoError(t, err)
	require.Len(t, fx.profiles.individuals, 1)

	// The next login must project the switch target, not the stale row the
	// failed delete left behind.
	next, err := fx.service.Authenticate(ctx, "seller@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileKindOrganization, next.Profile.Kind)
	assert.Equal(t, "Lovelace Motors", next.Profile.DisplayName())
}

func TestEditProfileEmailChangeResetsVerified(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	// Simulate a completed verification before the address changes.
	fx.creds.records[view.CredentialID].Verified = true

	refreshed, err := fx.service.EditProfile(ctx, view, EditInput{
		Email: "new@example.com",
		Kind:  domain.ProfileKindIndividual,
		Individual: &IndividualInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Phone:     "0821234567",
			Town:      "Cape Town",
			Province:  "Western Cape",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", refreshed.Email)
	assert.False(t, refreshed.Verified)

	assert.False(t, fx.creds.records[view.CredentialID].Verified)

	event, ok := fx.dispatcher.lastOfType(events.EventEmailChanged)
	require.True(t, ok)
	payload, ok := event.Payload.(events.VerificationLinkPayload)
	require.True(t, ok)

	email, token := linkParams(t, payload.Link)
	assert.Equal(t, "new@example.com", email)
	assert.True(t, fx.minter.Verify(email, token))
}

func TestEditProfileChangesPassword(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	input := EditInput{
		Password: "new-password-123",
		Kind:     domain.ProfileKindIndividual,
		Individual: &IndividualInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Phone:     "0821234567",
			Town:      "Cape Town",
			Province:  "Western Cape",
		},
	}
	_, err = fx.service.EditProfile(ctx, view, input)
	require.NoError(t, err)

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "hunter2hunter2")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeWrongPassword))

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "new-password-123")
	assert.NoError(t, err)
}

func TestRemoveProfile(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	require.NoError(t, fx.service.RemoveProfile(ctx, view))

	assert.Len(t, fx.creds.records, 0)
	assert.Len(t, fx.profiles.individuals, 0)

	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	event, ok := fx.dispatcher.lastOfType(events.EventAccountRemoved)
	require.True(t, ok)
	payload, ok := event.Payload.(events.AccountRemovedPayload)
	require.True(t, ok)
	assert.Equal(t, string(domain.ProfileKindIndividual), payload.ProfileKind)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	require.NoError(t, fx.service.RequestPasswordReset(ctx, "seller@example.com"))

	event, ok := fx.dispatcher.lastOfType(events.EventPasswordResetRequested)
	require.True(t, ok)
	payload, ok := event.Payload.(events.PasswordResetPayload)
	require.True(t, ok)

	email, token := linkParams(t, payload.Link)
	require.NoError(t, fx.service.ResetPassword(ctx, email, token, "brand-new-password"))

	// The reset ends every live session for the credential.
	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "hunter2hunter2")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeWrongPassword))

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "brand-new-password")
	assert.NoError(t, err)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	fx := newAccountFixture(t)

	err := fx.service.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnknownEmail))
	assert.Empty(t, fx.dispatcher.published)
}

func TestRequestPasswordResetMintsOnceOnEitherPath(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	// Both paths must burn exactly one mint, so response time cannot tell a
	// known address from an unknown one.
	fx.minter.mints = 0
	require.NoError(t, fx.service.RequestPasswordReset(ctx, "seller@example.com"))
	assert.Equal(t, 1, fx.minter.mints)

	fx.minter.mints = 0
	err = fx.service.RequestPasswordReset(ctx, "nobody@example.com")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnknownEmail))
	assert.Equal(t, 1, fx.minter.mints)
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	err = fx.service.ResetPassword(ctx, "seller@example.com", "garbage-token", "brand-new-password")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidToken))

	_, err = fx.service.Authenticate(ctx, "seller@example.com", "hunter2hunter2")
	assert.NoError(t, err)
}

func TestResetPasswordRejectsWeakReplacement(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	token, err := fx.minter.Mint("seller@example.com")
	require.NoError(t, err)

	err = fx.service.ResetPassword(ctx, "seller@example.com", token, "short")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidationFailed))
}

func TestVerifyEmailAddress(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	token, err := fx.minter.Mint("seller@example.com")
	require.NoError(t, err)

	require.NoError(t, fx.service.VerifyEmailAddress(ctx, "seller@example.com", token))

	assert.True(t, fx.creds.records[view.CredentialID].Verified)

	// The live session reflects verified status without a fresh login.
	stored, err := fx.sessions.Lookup(ctx, view.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Verified)
}

func TestVerifyEmailAddressRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	err = fx.service.VerifyEmailAddress(ctx, "seller@example.com", "garbage-token")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidToken))
	assert.False(t, fx.creds.records[view.CredentialID].Verified)
}

func TestVerifyEmailAddressTokenSurvivesReissue(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	_, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	first, err := fx.minter.Mint("seller@example.com")
	require.NoError(t, err)
	second, err := fx.minter.Mint("seller@example.com")
	require.NoError(t, err)

	// Either outstanding link verifies; minting again revokes nothing.
	require.NoError(t, fx.service.VerifyEmailAddress(ctx, "seller@example.com", second))
	require.NoError(t, fx.service.VerifyEmailAddress(ctx, "seller@example.com", first))
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)

	require.NoError(t, fx.service.ResendVerification(ctx, view))

	event, ok := fx.dispatcher.lastOfType(events.EventVerificationResent)
	require.True(t, ok)
	payload, ok := event.Payload.(events.VerificationLinkPayload)
	require.True(t, ok)

	email, token := linkParams(t, payload.Link)
	assert.True(t, fx.minter.Verify(email, token))
}

func TestResendVerificationOnVerifiedAccount(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)

	view, err := fx.service.Register(ctx, individualRegistration("seller@example.com"))
	require.NoError(t, err)
	view.Verified = true

	err = fx.service.ResendVerification(ctx, view)
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidationFailed))
}
