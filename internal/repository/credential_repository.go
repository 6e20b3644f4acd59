package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/car-marketplace/internal/domain"
)

// CredentialRepository defines persistence access for authentication roots.
type CredentialRepository interface {
	Create(ctx context.Context, credential *domain.Credential) error
	Update(ctx context.Context, credential *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	Delete(ctx context.Context, id string) error
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	const query = `
        INSERT INTO credentials (email, password_hash, verified)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		credential.Email,
		credential.PasswordHash,
		credential.Verified,
	).Scan(&credential.ID, &credential.CreatedAt, &credential.UpdatedAt)
}

func (r *credentialRepository) Update(ctx context.Context, credential *domain.Credential) error {
	const query = `
        UPDATE credentials SET email=$1, password_hash=$2, verified=$3, updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query,
		credential.Email,
		credential.PasswordHash,
		credential.Verified,
		credential.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	const query = `
        SELECT id, email, password_hash, verified, created_at, updated_at
        FROM credentials WHERE id=$1`

	var credential domain.Credential
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&credential.ID,
		&credential.Email,
		&credential.PasswordHash,
		&credential.Verified,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &credential, nil
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	const query = `
        SELECT id, email, password_hash, verified, created_at, updated_at
        FROM credentials WHERE email=$1`

	var credential domain.Credential
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&credential.ID,
		&credential.Email,
		&credential.PasswordHash,
		&credential.Verified,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &credential, nil
}

func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM credentials WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
