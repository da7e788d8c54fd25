package core

import "context"

type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error

	// Query methods
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	GetUserSessions(ctx context.Context, userID string) ([]*Session, error)

	// Update
	UpdateSession(ctx context.Context, session *Session) error

	// Delete methods
	DeleteSessionByID(ctx context.Context, id string) error
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)

	// Cleanup
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	UpdateUser(ctx context.Context, u *User) error

	DeleteUser(ctx context.Context, id string) error
}

type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error

	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByUserAndProvider(ctx context.Context, userID, providerID string) ([]*Account, error)

	UpdateAccount(ctx context.Context, a *Account) error

	DeleteAccount(ctx context.Context, id string) error
}

// AuthStorage backs the credential identity provider.
type AuthStorage interface {
	UserStorage
	AccountStorage
	SessionStorage
}

// ProfileStore holds the authoritative user profile documents.
type ProfileStore interface {
	// GetProfile returns ErrProfileNotFound when no document exists.
	GetProfile(ctx context.Context, id Identity) (*UserProfile, error)
	SetProfile(ctx context.Context, profile *UserProfile) error
	UpdateRole(ctx context.Context, id Identity, role AccessRole) error
	// ListProfiles returns every profile ordered by name.
	ListProfiles(ctx context.Context) ([]UserProfile, error)
}

type ContentStore interface {
	// ListContent returns every item ordered by date, newest first.
	ListContent(ctx context.Context) ([]ContentItem, error)
	SaveContent(ctx context.Context, item *ContentItem) error
}

type SubscriberStore interface {
	SubscriberExists(ctx context.Context, email string) (bool, error)
	AddSubscriber(ctx context.Context, s *Subscriber) error
	// ListSubscribers returns every subscriber, newest first.
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
}

// DocumentStore is the remote store: slow, occasionally unreachable.
type DocumentStore interface {
	ProfileStore
	ContentStore
	SubscriberStore
}
