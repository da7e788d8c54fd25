package bantay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fiberadapter "github.com/lborres/bantay/adapters/fiber"
	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
	"github.com/lborres/bantay/pkg/logger"
	"github.com/lborres/bantay/services"
)

type recordingHTTP struct {
	handler  core.AuthHandler
	basePath string
	err      error
}

func (r *recordingHTTP) RegisterRoutes(handler core.AuthHandler, basePath string) error {
	r.handler = handler
	r.basePath = basePath
	return r.err
}

func testConfig(docs *services.FakeDocumentStore) Config {
	return Config{
		Database:  services.NewFakeStorageProvider(),
		Documents: docs,
		PasswordHasher: &crypto.Argon2{
			Memory:      1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Bounds: Bounds{
			RegistrationWrite: 100 * time.Millisecond,
			RoleRead:          50 * time.Millisecond,
			ContentRead:       50 * time.Millisecond,
			SubscriberCheck:   50 * time.Millisecond,
		},
		Logger: logger.Discard(),
	}
}

func newTestBantay(t *testing.T, cfg Config) *Bantay {
	t.Helper()
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

// Requirement: New rejects a configuration missing required adapters.
func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Database = nil },
			wantErr: ErrDBAdapterRequired,
		},
		{
			name:    "missing document store",
			mutate:  func(c *Config) { c.Documents = nil },
			wantErr: ErrDocumentStoreRequired,
		},
		{
			name:    "negative bound",
			mutate:  func(c *Config) { c.Bounds.RoleRead = -time.Second },
			wantErr: ErrInvalidBound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			cfg := testConfig(services.NewFakeDocumentStore())
			test.mutate(&cfg)

			// Act
			b, err := New(cfg)

			// Assert
			assert.Nil(t, b)
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestNew_BasePath(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		want     string
	}{
		{name: "default", basePath: "", want: "/api"},
		{name: "custom", basePath: "/v1", want: "/v1"},
		{name: "trailing slash", basePath: "/v1/", want: "/v1"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			http := &recordingHTTP{}
			cfg := testConfig(services.NewFakeDocumentStore())
			cfg.BasePath = test.basePath
			cfg.HTTP = http

			b := newTestBantay(t, cfg)

			assert.Equal(t, test.want, b.BasePath)
			assert.Equal(t, test.want, http.basePath)
			assert.Same(t, b.AuthService, http.handler)
		})
	}
}

func TestNew_RouteRegistrationFailure(t *testing.T) {
	cfg := testConfig(services.NewFakeDocumentStore())
	cfg.HTTP = &recordingHTTP{err: errors.New("duplicate route")}

	b, err := New(cfg)

	assert.Nil(t, b)
	assert.ErrorContains(t, err, "duplicate route")
}

// Requirement: a new EDITOR is reported as EDITOR even while the remote
// profile store has not answered.
func TestBantay_RegisteredRoleSurvivesSlowRemote(t *testing.T) {
	// Arrange
	docs := services.NewFakeDocumentStore()
	release := docs.Block()
	defer release()
	b := newTestBantay(t, testConfig(docs))

	var mu sync.Mutex
	var last *core.UserProfile
	unsubscribe := b.CheckAuthState(func(p *core.UserProfile) {
		mu.Lock()
		defer mu.Unlock()
		last = p
	})
	defer unsubscribe()

	// Act
	res, err := b.Register(context.Background(), RegisterInput{
		Name:     "Editor",
		Email:    "editor@example.com",
		Password: "SecurePass123!",
		Role:     RoleEditor,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, res.Profile.Role)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last != nil && last.ID == res.Profile.ID
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, RoleEditor, last.Role)
	mu.Unlock()

	role, ok := b.Authority.Role(res.Profile.ID)
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, role)
}

func TestBantay_LoadContentNeverEmpty(t *testing.T) {
	docs := services.NewFakeDocumentStore()
	docs.SetError(errors.New("offline"))
	b := newTestBantay(t, testConfig(docs))

	items, err := b.LoadContent(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestBantay_LoginResolvesStoredRole(t *testing.T) {
	docs := services.NewFakeDocumentStore()
	b := newTestBantay(t, testConfig(docs))
	ctx := context.Background()

	reg, err := b.Register(ctx, RegisterInput{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "SecurePass123!",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)
	b.AuthService.Close()

	res, err := b.Login(ctx, SignInInput{Email: "admin@example.com", Password: "SecurePass123!"})

	require.NoError(t, err)
	assert.Equal(t, reg.Profile.ID, res.Profile.ID)
	assert.Equal(t, RoleAdmin, res.Profile.Role)
	assert.NotEmpty(t, res.Token)
}

func signUp(t *testing.T, app *fiber.App, body, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

// Requirement: anonymous sign-up over HTTP cannot mint an ADMIN account.
func TestBantay_HTTPSignUpCannotSelfPromote(t *testing.T) {
	// Arrange
	docs := services.NewFakeDocumentStore()
	cfg := testConfig(docs)
	app := fiber.New()
	cfg.HTTP = fiberadapter.New(app)
	b := newTestBantay(t, cfg)
	ctx := context.Background()

	admin, err := b.Register(ctx, RegisterInput{
		Name:     "Admin",
		Email:    "root@example.com",
		Password: "SecurePass123!",
		Role:     RoleAdmin,
	})
	require.NoError(t, err)

	// Act
	anonymous := signUp(t, app, `{"email":"mallory@example.com","password":"SecurePass123!","role":"ADMIN"}`, "")
	byAdmin := signUp(t, app, `{"email":"ops@example.com","password":"SecurePass123!","role":"ADMIN"}`, admin.Token)

	// Assert
	assert.Equal(t, http.StatusForbidden, anonymous)
	assert.Equal(t, http.StatusCreated, byAdmin)

	_, err = b.Login(ctx, SignInInput{Email: "mallory@example.com", Password: "SecurePass123!"})
	assert.Error(t, err)
}
