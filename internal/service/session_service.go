package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/car-marketplace/internal/domain"
	"github.com/spec-kit/car-marketplace/pkg/util/errorutil"
)

const (
	sessionKeyPrefix    = "sess:view:"
	credentialKeyPrefix = "sess:cred:"
)

// SessionProjector materializes, refreshes and clears the server-held
// SessionView. Views live in Redis keyed by session id, with a secondary
// credential-id index so a live session can be refreshed when the account is
// verified out of band.
type SessionProjector struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionProjector builds a projector with the configured session TTL.
func NewSessionProjector(client *redis.Client, ttl time.Duration) *SessionProjector {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionProjector{client: client, ttl: ttl}
}

// Project materializes a fresh SessionView at login or registration. A
// credential holds at most one live session, so any previously indexed
// session is evicted before the new one is stored.
func (p *SessionProjector) Project(ctx context.Context, credential *domain.Credential, profile domain.Profile) (*domain.SessionView, error) {
	previous, err := p.client.Get(ctx, credentialKeyPrefix+credential.ID).Result()
	if err == nil {
		if err := p.client.Del(ctx, sessionKeyPrefix+previous).Err(); err != nil {
			return nil, errorutil.NewStorageFault(err)
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, errorutil.NewStorageFault(err)
	}

	now := time.Now().UTC()
	view := &domain.SessionView{
		SessionID:    uuid.NewString(),
		CredentialID: credential.ID,
		Email:        credential.Email,
		Verified:     credential.Verified,
		Profile:      profile,
		LoggedIn:     true,
		CreatedAt:    now,
		RefreshedAt:  now,
	}
	if err := p.store(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// Refresh rebuilds an existing view from the just-written records, keeping
// the session id and creation time.
func (p *SessionProjector) Refresh(ctx context.Context, view *domain.SessionView, credential *domain.Credential, profile domain.Profile) (*domain.SessionView, error) {
	refreshed := &domain.SessionView{
		SessionID:    view.SessionID,
		CredentialID: credential.ID,
		Email:        credential.Email,
		Verified:     credential.Verified,
		Profile:      profile,
		LoggedIn:     true,
		CreatedAt:    view.CreatedAt,
		RefreshedAt:  time.Now().UTC(),
	}
	if err := p.store(ctx, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Lookup resolves a session id; (nil, nil) means no live session.
func (p *SessionProjector) Lookup(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	raw, err := p.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errorutil.NewStorageFault(err)
	}

	var view domain.SessionView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, errorutil.NewStorageFault(err)
	}
	return &view, nil
}

// LookupByCredential resolves the live session for a credential, if any.
func (p *SessionProjector) LookupByCredential(ctx context.Context, credentialID string) (*domain.SessionView, error) {
	sessionID, err := p.client.Get(ctx, credentialKeyPrefix+credentialID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errorutil.NewStorageFault(err)
	}
	return p.Lookup(ctx, sessionID)
}

// Invalidate destroys the view at logout or account removal.
func (p *SessionProjector) Invalidate(ctx context.Context, sessionID string) error {
	view, err := p.Lookup(ctx, sessionID)
	if err != nil {
		return err
	}

	keys := []string{sessionKeyPrefix + sessionID}
	if view != nil {
		keys = append(keys, credentialKeyPrefix+view.CredentialID)
	}
	if err := p.client.Del(ctx, keys...).Err(); err != nil {
		return errorutil.NewStorageFault(err)
	}
	return nil
}

// InvalidateByCredential destroys the credential's live session, if any.
func (p *SessionProjector) InvalidateByCredential(ctx context.Context, credentialID string) error {
	view, err := p.LookupByCredential(ctx, credentialID)
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	return p.Invalidate(ctx, view.SessionID)
}

func (p *SessionProjector) store(ctx context.Context, view *domain.SessionView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return errorutil.NewStorageFault(err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+view.SessionID, raw, p.ttl)
	pipe.Set(ctx, credentialKeyPrefix+view.CredentialID, view.SessionID, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errorutil.NewStorageFault(err)
	}
	return nil
}
