package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
)

const credentialProviderID = "credential"

// CredentialProvider is an email/password identity provider. State
// changes are published only after the operation's own writes, and for
// registration only after the caller's prepare hook has returned.
type CredentialProvider struct {
	db        core.AuthStorage
	passwords crypto.PasswordHandler
	sessions  *SessionManager
	events    *Emitter[core.AuthState]
}

// Ensure CredentialProvider implements IdentityProvider
var _ core.IdentityProvider = (*CredentialProvider)(nil)

func NewCredentialProvider(db core.AuthStorage, passwords crypto.PasswordHandler, sessions *SessionManager) *CredentialProvider {
	return &CredentialProvider{
		db:        db,
		passwords: passwords,
		sessions:  sessions,
		events:    NewEmitter[core.AuthState](),
	}
}

// CreateIdentity registers a new user with email and password
func (p *CredentialProvider) CreateIdentity(ctx context.Context, input core.SignUpInput, prepare core.PrepareFunc) (*core.SignInResult, error) {
	// Step 1: Check if user already exists
	existing, err := p.db.GetUserByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, core.ErrUserExists
	}

	// Step 2: Hash the password
	hashed, err := p.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 3: Create the user and its credential account
	userID, err := crypto.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}
	user := &core.User{
		ID:    userID,
		Email: input.Email,
		Name:  input.Name,
		Image: input.Image,
	}
	if err := p.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	accountID, err := crypto.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}
	account := &core.Account{
		ID:         accountID,
		UserID:     user.ID,
		ProviderID: credentialProviderID,
		AccountID:  user.ID, // For credential provider, account ID = user ID
		Password:   &hashed,
	}
	if err := p.db.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// Step 4: First session
	session, err := p.sessions.Create(ctx, user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pu := toProviderUser(user)
	if prepare != nil {
		prepare(pu)
	}
	p.events.Publish(core.AuthState{Event: core.EventRegistered, User: &pu})

	return &core.SignInResult{User: &pu, Session: session.Session, Token: session.Token}, nil
}

// SignIn authenticates a user with email and password
func (p *CredentialProvider) SignIn(ctx context.Context, input core.SignInInput) (*core.SignInResult, error) {
	user, err := p.db.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	accounts, err := p.db.GetAccountByUserAndProvider(ctx, user.ID, credentialProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if len(accounts) == 0 || accounts[0].Password == nil {
		return nil, core.ErrInvalidCredentials
	}

	valid, err := p.passwords.Verify(input.Password, *accounts[0].Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	session, err := p.sessions.Create(ctx, user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pu := toProviderUser(user)
	p.events.Publish(core.AuthState{Event: core.EventSignedIn, User: &pu})

	return &core.SignInResult{User: &pu, Session: session.Session, Token: session.Token}, nil
}

// SignOut invalidates the session behind token
func (p *CredentialProvider) SignOut(ctx context.Context, token string) error {
	if err := p.sessions.Destroy(ctx, token); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return core.ErrInvalidToken
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	p.events.Publish(core.AuthState{Event: core.EventSignedOut})
	return nil
}

// Refresh rotates the session token for the same identity
func (p *CredentialProvider) Refresh(ctx context.Context, token string) (*core.SignInResult, error) {
	session, err := p.sessions.Rotate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := p.db.GetUserByID(ctx, session.Session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	pu := toProviderUser(user)
	p.events.Publish(core.AuthState{Event: core.EventTokenRefreshed, User: &pu})

	return &core.SignInResult{User: &pu, Session: session.Session, Token: session.Token}, nil
}

// CurrentUser returns the identity behind a session token
func (p *CredentialProvider) CurrentUser(ctx context.Context, token string) (*core.ProviderUser, error) {
	session, err := p.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := p.db.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	pu := toProviderUser(user)
	return &pu, nil
}

func (p *CredentialProvider) Subscribe(fn func(core.AuthState)) func() {
	return p.events.Subscribe(fn)
}

// Close stops delivering state changes.
func (p *CredentialProvider) Close() {
	p.events.Close()
}

func toProviderUser(u *core.User) core.ProviderUser {
	pu := core.ProviderUser{
		Identity:    u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
	}
	if u.Image != nil {
		pu.AvatarURI = *u.Image
	}
	return pu
}
