package bantay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/cache"
	"github.com/lborres/bantay/pkg/crypto"
	"github.com/lborres/bantay/pkg/metrics"
	"github.com/lborres/bantay/services"
)

// interfaces
type (
	AuthStorage          = core.AuthStorage
	DocumentStore        = core.DocumentStore
	LocalStore           = core.LocalStore
	ContentSnapshotStore = core.ContentSnapshotStore
	Cache                = core.Cache
	HTTPAdapter          = core.HTTPAdapter

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	SessionConfig = core.SessionConfig
	CacheConfig   = core.CacheConfig
	Bounds        = core.Bounds
)

type (
	UserProfile   = core.UserProfile
	AccessRole    = core.AccessRole
	ContentItem   = core.ContentItem
	RegisterInput = core.RegisterInput
	SignInInput   = core.SignInInput
	AuthResult    = core.AuthResult
	Session       = core.Session
)

const (
	RoleReader = core.RoleReader
	RoleEditor = core.RoleEditor
	RoleAdmin  = core.RoleAdmin
)

const (
	defaultBasePath      = "/api"
	defaultLocalCapacity = 10000
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
	DefaultBounds        = core.DefaultBounds
)

var (
	ErrUserExists         = core.ErrUserExists
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrForbidden          = core.ErrForbidden
	ErrInvalidToken       = core.ErrInvalidToken
	ErrSessionExpired     = core.ErrSessionExpired
	ErrRemoteUnavailable  = core.ErrRemoteUnavailable
)

var (
	ErrDBAdapterRequired     = core.ErrDBAdapterRequired
	ErrDocumentStoreRequired = core.ErrDocumentStoreRequired
	ErrInvalidBound          = core.ErrInvalidBound
)

type Config struct {
	// Database holds identities and sessions. Required.
	Database AuthStorage
	// Documents is the remote store for profiles, content and subscribers. Required.
	Documents DocumentStore

	// LocalStore backs the authority cache. Defaults to an in-memory store.
	LocalStore LocalStore
	// Snapshot keeps the last good content list. Defaults to memory.
	Snapshot ContentSnapshotStore
	// HTTP, when set, gets the routes registered under BasePath.
	HTTP HTTPAdapter

	SessionCache   Cache
	DisableCache   bool
	SessionConfig  *SessionConfig
	PasswordHasher PasswordHandler

	Bounds          Bounds
	FreshnessWindow time.Duration
	BasePath        string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Bantay wires the identity provider, session resolver and content cache
// behind the AuthService surface.
type Bantay struct {
	*services.AuthService

	Provider  *services.CredentialProvider
	Resolver  *services.SessionResolver
	Sessions  *services.SessionManager
	Authority *services.LocalAuthorityCache
	BasePath  string
}

func New(config Config) (*Bantay, error) {
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.Documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if err := config.Bounds.Validate(); err != nil {
		return nil, err
	}

	// Set Defaults

	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	local := config.LocalStore
	if local == nil {
		local = cache.NewMemoryStore(CacheConfig{MaxSize: defaultLocalCapacity})
	}

	snapshot := config.Snapshot
	if snapshot == nil {
		snapshot = cache.NewMemorySnapshot()
	}

	sessionCache := config.SessionCache
	if sessionCache == nil && !config.DisableCache {
		sessionCache = cache.NewSessionCache(CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 500,
		})
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := DefaultSessionConfig()
		sessionConfig = &defaults
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	basePath := strings.TrimRight(config.BasePath, "/")
	if basePath == "" {
		basePath = defaultBasePath
	}

	bounds := config.Bounds.WithDefaults()

	sessions := services.NewSessionManager(*sessionConfig, config.Database, sessionCache)
	provider := services.NewCredentialProvider(config.Database, passwordHasher, sessions)
	authority := services.NewLocalAuthorityCache(local)

	resolver := services.NewSessionResolver(services.ResolverConfig{
		Provider:  provider,
		Profiles:  config.Documents,
		Authority: authority,
		RoleRead:  bounds.RoleRead,
		Logger:    log,
		Metrics:   config.Metrics,
	})

	content := services.NewContentListCache(services.ContentConfig{
		Remote:   config.Documents,
		Snapshot: snapshot,
		Window:   config.FreshnessWindow,
		Bound:    bounds.ContentRead,
		Logger:   log,
		Metrics:  config.Metrics,
	})

	b := &Bantay{
		AuthService: services.NewAuthService(services.AuthServiceConfig{
			Provider:    provider,
			Profiles:    config.Documents,
			Subscribers: config.Documents,
			Authority:   authority,
			Resolver:    resolver,
			Content:     content,
			Bounds:      bounds,
			Logger:      log,
			Metrics:     config.Metrics,
		}),
		Provider:  provider,
		Resolver:  resolver,
		Sessions:  sessions,
		Authority: authority,
		BasePath:  basePath,
	}

	resolver.Start(context.Background())

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(b.AuthService, basePath); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to register routes: %w", err)
		}
	}

	return b, nil
}

// Close drains detached remote writes, stops the resolver and releases
// provider subscribers.
func (b *Bantay) Close() {
	b.AuthService.Close()
	b.Resolver.Stop()
	b.Provider.Close()
}
