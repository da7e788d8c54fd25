package services

import (
	"context"
	"errors"
	"time"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
)

type SessionManager struct {
	config  core.SessionConfig
	storage core.SessionStorage
	cache   core.Cache // optional, can be nil if caching is disabled
}

func NewSessionManager(config core.SessionConfig, storage core.SessionStorage, cache core.Cache) *SessionManager {
	if config.MaxAge <= 0 {
		config = core.DefaultSessionConfig()
	}
	return &SessionManager{config: config, storage: storage, cache: cache}
}

func (sm *SessionManager) Create(ctx context.Context, userID, ip, userAgent string) (*core.CreateSessionResult, error) {
	token, err := crypto.NewSessionToken()
	if err != nil {
		return nil, err
	}

	sessionID, err := crypto.NewID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &core.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: token.Hash,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(sm.config.MaxAge),
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	// We don't fail the request if caching fails
	if sm.cache != nil {
		_ = sm.cache.Set(token.Hash, session)
	}

	return &core.CreateSessionResult{Session: session, Token: token.Raw}, nil
}

func (sm *SessionManager) Verify(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil {
			if time.Now().After(session.ExpiresAt) {
				_ = sm.cache.Delete(tokenHash)
				return nil, core.ErrSessionExpired
			}
			return session, nil
		}
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrInvalidToken
		}
		return nil, err
	}
	if session == nil {
		return nil, core.ErrInvalidToken
	}

	if time.Now().After(session.ExpiresAt) {
		_ = sm.storage.DeleteSessionByID(ctx, session.ID)
		return nil, core.ErrSessionExpired
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if err := sm.storage.DeleteSessionByHash(ctx, tokenHash); err != nil {
		return err
	}

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	return nil
}

// Rotate replaces the session behind token with a new one for the same user.
func (sm *SessionManager) Rotate(ctx context.Context, token string) (*core.CreateSessionResult, error) {
	current, err := sm.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	next, err := sm.Create(ctx, current.UserID, current.IPAddress, current.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := sm.Destroy(ctx, token); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return nil, err
	}
	return next, nil
}

// PurgeExpired removes expired sessions from storage.
func (sm *SessionManager) PurgeExpired(ctx context.Context) (int, error) {
	return sm.storage.DeleteExpiredSessions(ctx)
}
