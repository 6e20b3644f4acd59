package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/car-marketplace/internal/domain"
)

// ProfileRepository defines persistence access for the two seller-kind
// variants. Each variant table carries UNIQUE(credential_id), so a credential
// can hold at most one row per table. The service's switch protocol aims for a
// cross-table count of one but tolerates a leftover row when the delete half
// of a switch fails; reads resolve that state in favor of the newer row.
type ProfileRepository interface {
	CreateIndividual(ctx context.Context, profile *domain.IndividualProfile) error
	CreateOrganization(ctx context.Context, profile *domain.OrganizationProfile) error
	UpdateIndividual(ctx context.Context, profile *domain.IndividualProfile) error
	UpdateOrganization(ctx context.Context, profile *domain.OrganizationProfile) error
	GetByCredentialID(ctx context.Context, credentialID string) (*domain.Profile, error)
	DeleteByCredentialID(ctx context.Context, credentialID string, kind domain.ProfileKind) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) CreateIndividual(ctx context.Context, profile *domain.IndividualProfile) error {
	const query = `
        INSERT INTO individual_profiles (credential_id, first_name, last_name, phone, phone_alt, town, province)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.CredentialID,
		profile.FirstName,
		profile.LastName,
		profile.Phone,
		profile.PhoneAlt,
		profile.Town,
		profile.Province,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) CreateOrganization(ctx context.Context, profile *domain.OrganizationProfile) error {
	const query = `
        INSERT INTO organization_profiles
            (credential_id, name, contact_first, contact_last, street_address, street_extra, town, province, phone, phone_alt)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.CredentialID,
		profile.Name,
		profile.ContactFirst,
		profile.ContactLast,
		profile.StreetAddress,
		profile.StreetExtra,
		profile.Town,
		profile.Province,
		profile.Phone,
		profile.PhoneAlt,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) UpdateIndividual(ctx context.Context, profile *domain.IndividualProfile) error {
	const query = `
        UPDATE individual_profiles
        SET first_name=$1, last_name=$2, phone=$3, phone_alt=$4, town=$5, province=$6, updated_at=NOW()
        WHERE credential_id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		profile.FirstName,
		profile.LastName,
		profile.Phone,
		profile.PhoneAlt,
		profile.Town,
		profile.Province,
		profile.CredentialID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) UpdateOrganization(ctx context.Context, profile *domain.OrganizationProfile) error {
	const query = `
        UPDATE organization_profiles
        SET name=$1, contact_first=$2, contact_last=$3, street_address=$4, street_extra=$5,
            town=$6, province=$7, phone=$8, phone_alt=$9, updated_at=NOW()
        WHERE credential_id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		profile.Name,
		profile.ContactFirst,
		profile.ContactLast,
		profile.StreetAddress,
		profile.StreetExtra,
		profile.Town,
		profile.Province,
		profile.Phone,
		profile.PhoneAlt,
		profile.CredentialID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByCredentialID reads both variant tables and returns the tagged union.
// A failed switch delete can leave a row in each table; the newer row is the
// switch target and wins. pgx.ErrNoRows means the credential owns no profile
// in either table.
func (r *profileRepository) GetByCredentialID(ctx context.Context, credentialID string) (*domain.Profile, error) {
	individual, err := r.individualByCredential(ctx, credentialID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	organization, err := r.organizationByCredential(ctx, credentialID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	switch {
	case individual == nil && organization == nil:
		return nil, pgx.ErrNoRows
	case individual == nil:
		profile := domain.NewOrganization(organization)
		return &profile, nil
	case organization == nil:
		profile := domain.NewIndividual(individual)
		return &profile, nil
	case individual.UpdatedAt.After(organization.UpdatedAt):
		profile := domain.NewIndividual(individual)
		return &profile, nil
	default:
		profile := domain.NewOrganization(organization)
		return &profile, nil
	}
}

func (r *profileRepository) individualByCredential(ctx context.Context, credentialID string) (*domain.IndividualProfile, error) {
	const query = `
        SELECT id, credential_id, first_name, last_name, phone, phone_alt, town, province, created_at, updated_at
        FROM individual_profiles WHERE credential_id=$1`

	var individual domain.IndividualProfile
	err := r.pool.QueryRow(ctx, query, credentialID).Scan(
		&individual.ID,
		&individual.CredentialID,
		&individual.FirstName,
		&individual.LastName,
		&individual.Phone,
		&individual.PhoneAlt,
		&individual.Town,
		&individual.Province,
		&individual.CreatedAt,
		&individual.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &individual, nil
}

func (r *profileRepository) organizationByCredential(ctx context.Context, credentialID string) (*domain.OrganizationProfile, error) {
	const query = `
        SELECT id, credential_id, name, contact_first, contact_last, street_address, street_extra,
               town, province, phone, phone_alt, created_at, updated_at
        FROM organization_profiles WHERE credential_id=$1`

	var organization domain.OrganizationProfile
	err := r.pool.QueryRow(ctx, query, credentialID).Scan(
		&organization.ID,
		&organization.CredentialID,
		&organization.Name,
		&organization.ContactFirst,
		&organization.ContactLast,
		&organization.StreetAddress,
		&organization.StreetExtra,
		&organization.Town,
		&organization.Province,
		&organization.Phone,
		&organization.PhoneAlt,
		&organization.CreatedAt,
		&organization.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &organization, nil
}

func (r *profileRepository) DeleteByCredentialID(ctx context.Context, credentialID string, kind domain.ProfileKind) error {
	query := `DELETE FROM individual_profiles WHERE credential_id=$1`
	if kind == domain.ProfileKindOrganization {
		query = `DELETE FROM organization_profiles WHERE credential_id=$1`
	}

	cmd, err := r.pool.Exec(ctx, query, credentialID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
