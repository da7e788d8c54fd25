package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// CACHE PORTS
// ============================================

// Cache defines session caching operations
type Cache interface {
	Get(tokenHash string) (*Session, error)
	Set(tokenHash string, session *Session) error
	Delete(tokenHash string) error
	Clear() error
}

// LocalStore is a synchronous key-value store on the local device.
// A Set must be visible to the next Get on the same key. Missing keys
// return ErrCacheNotFound.
type LocalStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// StoreWithStats extends a store with statistics tracking
type StoreWithStats interface {
	Stats() CacheStats
}

// AuthorityCache remembers the last known role per identity and whether it
// was written by this client moments ago.
type AuthorityCache interface {
	Role(id Identity) (AccessRole, bool)
	SetRole(id Identity, role AccessRole) error
	MarkFresh(id Identity) error
	IsFresh(id Identity) bool
	ClearFreshness(id Identity) error
}

// ContentSnapshotStore keeps the last good content list.
type ContentSnapshotStore interface {
	// Load returns ErrCacheNotFound when nothing has been stored.
	Load(ctx context.Context) (*CacheEntry[[]ContentItem], error)
	Save(ctx context.Context, entry CacheEntry[[]ContentItem]) error
}

// ============================================
// IDENTITY PROVIDER PORT
// ============================================

// PrepareFunc runs after an identity is created and before the provider
// announces it. It must not block for long.
type PrepareFunc func(user ProviderUser)

type IdentityProvider interface {
	CreateIdentity(ctx context.Context, input SignUpInput, prepare PrepareFunc) (*SignInResult, error)
	SignIn(ctx context.Context, input SignInInput) (*SignInResult, error)
	SignOut(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*SignInResult, error)
	CurrentUser(ctx context.Context, token string) (*ProviderUser, error)

	// Subscribe registers fn for state changes and returns its unsubscribe func.
	Subscribe(fn func(AuthState)) func()
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides the operations HTTP adapters expose
type AuthHandler interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input SignInInput) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*AuthResult, error)
	Session(ctx context.Context, token string) (*UserProfile, error)
	ChangeRole(ctx context.Context, id Identity, role AccessRole) (*UserProfile, error)
	ListProfiles(ctx context.Context) ([]UserProfile, error)
	LoadContent(ctx context.Context) ([]ContentItem, error)
	Subscribe(ctx context.Context, email string, language Language) (*Subscriber, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, basePath string) error
}
