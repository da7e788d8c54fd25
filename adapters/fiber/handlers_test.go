package fiber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/bantay/core"
)

// mockAuthHandler is a test fake implementing core.AuthHandler
type mockAuthHandler struct {
	registerInput core.RegisterInput
	registerErr   error

	loginErr error

	logoutToken string
	logoutErr   error

	sessionProfiles map[string]*core.UserProfile
	sessionCalls    int

	refreshToken string

	changeID   string
	changeRole core.AccessRole
	changeErr  error

	profiles    []core.UserProfile
	profilesErr error

	content    []core.ContentItem
	contentErr error

	subscribers    []core.Subscriber
	subscribersErr error

	subscribeEmail    string
	subscribeLanguage core.Language
	subscribeErr      error
}

var _ core.AuthHandler = (*mockAuthHandler)(nil)

func (m *mockAuthHandler) Register(_ context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	m.registerInput = input
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	role := input.Role
	if role == "" {
		role = core.DefaultRole
	}
	return &core.AuthResult{
		Profile: &core.UserProfile{ID: "u1", Email: input.Email, Role: role},
		Token:   "new-token",
	}, nil
}

func (m *mockAuthHandler) Login(_ context.Context, input core.SignInInput) (*core.AuthResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &core.AuthResult{Profile: &core.UserProfile{ID: "u1", Email: input.Email, Role: core.RoleReader}, Token: "login-token"}, nil
}

func (m *mockAuthHandler) Logout(_ context.Context, token string) error {
	m.logoutToken = token
	return m.logoutErr
}

func (m *mockAuthHandler) Refresh(_ context.Context, token string) (*core.AuthResult, error) {
	m.refreshToken = token
	return &core.AuthResult{Profile: m.sessionProfiles[token], Token: "rotated"}, nil
}

func (m *mockAuthHandler) Session(_ context.Context, token string) (*core.UserProfile, error) {
	m.sessionCalls++
	p, ok := m.sessionProfiles[token]
	if !ok {
		return nil, core.ErrInvalidToken
	}
	return p, nil
}

func (m *mockAuthHandler) ChangeRole(_ context.Context, id core.Identity, role core.AccessRole) (*core.UserProfile, error) {
	m.changeID, m.changeRole = id, role
	if m.changeErr != nil {
		return nil, m.changeErr
	}
	return &core.UserProfile{ID: id, Role: role}, nil
}

func (m *mockAuthHandler) ListProfiles(context.Context) ([]core.UserProfile, error) {
	return m.profiles, m.profilesErr
}

func (m *mockAuthHandler) ListSubscribers(context.Context) ([]core.Subscriber, error) {
	return m.subscribers, m.subscribersErr
}

func (m *mockAuthHandler) LoadContent(context.Context) ([]core.ContentItem, error) {
	return m.content, m.contentErr
}

func (m *mockAuthHandler) Subscribe(_ context.Context, email string, language core.Language) (*core.Subscriber, error) {
	m.subscribeEmail, m.subscribeLanguage = email, language
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	return &core.Subscriber{Email: email, Language: language, Date: "2024-05-20"}, nil
}

func newMockAuthHandler() *mockAuthHandler {
	return &mockAuthHandler{
		sessionProfiles: map[string]*core.UserProfile{
			"reader-token": {ID: "reader", Role: core.RoleReader},
			"admin-token":  {ID: "admin", Role: core.RoleAdmin},
		},
	}
}

func newTestApp(t *testing.T, auth core.AuthHandler) *fiber.App {
	t.Helper()
	app := fiber.New()
	require.NoError(t, New(app).RegisterRoutes(auth, "/api"))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

// Requirement: every base operation has a Fiber handler factory.
func TestHandlerFactories_CoverBaseEndpoints(t *testing.T) {
	a := New(fiber.New())

	for _, ep := range a.Registry().Endpoints() {
		factory, ok := handlerFactories[ep.Metadata.OperationID]
		if !ok {
			t.Errorf("no handler factory for %s", ep.Metadata.OperationID)
			continue
		}
		if factory(newMockAuthHandler()) == nil {
			t.Errorf("factory for %s returned nil", ep.Metadata.OperationID)
		}
	}
}

func TestRegisterRoutes_RejectsPluginWithoutHandler(t *testing.T) {
	a := New(fiber.New())
	require.NoError(t, a.Registry().RegisterPlugin([]core.Endpoint{
		{Path: "/custom", Method: "GET", Metadata: core.EndpointMetadata{OperationID: "custom"}},
	}))

	err := a.RegisterRoutes(newMockAuthHandler(), "/api")

	assert.Error(t, err)
}

func TestRegisterRoutes_MountsPluginHandler(t *testing.T) {
	app := fiber.New()
	a := New(app)
	require.NoError(t, a.Registry().RegisterPlugin([]core.Endpoint{{
		Path:   "/ping",
		Method: "GET",
		Handler: func(rc *core.RequestContext) error {
			return rc.Request.(fiber.Ctx).SendString("pong")
		},
		Metadata: core.EndpointMetadata{OperationID: "ping"},
	}}))
	require.NoError(t, a.RegisterRoutes(newMockAuthHandler(), "/api"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleRegisterFiber(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantRole   core.AccessRole
	}{
		{
			name:       "creates user with normalized role",
			body:       `{"email":"ana@example.com","password":"SecurePass123!","role":"editor"}`,
			wantStatus: http.StatusCreated,
			wantRole:   core.RoleEditor,
		},
		{
			name:       "unknown role",
			body:       `{"email":"ana@example.com","password":"SecurePass123!","role":"owner"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate user",
			body:       `{"email":"ana@example.com","password":"SecurePass123!"}`,
			serviceErr: core.ErrUserExists,
			wantStatus: http.StatusConflict,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			mock := newMockAuthHandler()
			mock.registerErr = test.serviceErr
			app := newTestApp(t, mock)

			// Act
			resp, body := doRequest(t, app, http.MethodPost, "/api/auth/sign-up", test.body, "")

			// Assert
			assert.Equal(t, test.wantStatus, resp.StatusCode)
			if test.wantStatus == http.StatusCreated {
				assert.Equal(t, test.wantRole, mock.registerInput.Role)
				assert.Equal(t, "new-token", body["token"])
				user, _ := body["user"].(map[string]any)
				assert.Equal(t, string(test.wantRole), user["role"])
			}
		})
	}
}

// Requirement: only self-service roles are open to anonymous sign-up;
// anything else needs an ADMIN session.
func TestHandleRegisterFiber_GuardsPrivilegedRoles(t *testing.T) {
	const adminBody = `{"email":"ana@example.com","password":"SecurePass123!","role":"ADMIN"}`
	const editorBody = `{"email":"ana@example.com","password":"SecurePass123!","role":"editor"}`

	tests := []struct {
		name         string
		opts         []Option
		body         string
		token        string
		wantStatus   int
		wantRegister bool
	}{
		{name: "anonymous admin", body: adminBody, wantStatus: http.StatusForbidden},
		{name: "reader session asks for admin", body: adminBody, token: "reader-token", wantStatus: http.StatusForbidden},
		{name: "unknown session asks for admin", body: adminBody, token: "stale-token", wantStatus: http.StatusUnauthorized},
		{name: "admin session creates admin", body: adminBody, token: "admin-token", wantStatus: http.StatusCreated, wantRegister: true},
		{name: "anonymous editor by default", body: editorBody, wantStatus: http.StatusCreated, wantRegister: true},
		{
			name:       "anonymous editor outside allow-list",
			opts:       []Option{WithSelfServiceRoles(core.RoleReader)},
			body:       editorBody,
			wantStatus: http.StatusForbidden,
		},
		{
			name:         "allow-list opened to admin",
			opts:         []Option{WithSelfServiceRoles(core.RoleReader, core.RoleAdmin)},
			body:         adminBody,
			wantStatus:   http.StatusCreated,
			wantRegister: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			mock := newMockAuthHandler()
			app := fiber.New()
			require.NoError(t, New(app, test.opts...).RegisterRoutes(mock, "/api"))

			// Act
			resp, _ := doRequest(t, app, http.MethodPost, "/api/auth/sign-up", test.body, test.token)

			// Assert
			assert.Equal(t, test.wantStatus, resp.StatusCode)
			if test.wantRegister {
				assert.Equal(t, "ana@example.com", mock.registerInput.Email)
			} else {
				assert.Empty(t, mock.registerInput.Email, "Register must not be reached")
			}
		})
	}
}

func TestHandleLoginFiber(t *testing.T) {
	mock := newMockAuthHandler()
	app := newTestApp(t, mock)

	resp, body := doRequest(t, app, http.MethodPost, "/api/auth/sign-in", `{"email":"ana@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "login-token", body["token"])

	mock.loginErr = core.ErrInvalidCredentials
	resp, body = doRequest(t, app, http.MethodPost, "/api/auth/sign-in", `{"email":"ana@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, core.ErrInvalidCredentials.Error(), body["error"])
}

// Requirement: protected routes need a token and enforce the minimum role.
func TestProtectedRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{name: "session without token", method: http.MethodGet, path: "/api/auth/session", wantStatus: http.StatusUnauthorized},
		{name: "session with unknown token", method: http.MethodGet, path: "/api/auth/session", token: "bogus", wantStatus: http.StatusUnauthorized},
		{name: "session with valid token", method: http.MethodGet, path: "/api/auth/session", token: "reader-token", wantStatus: http.StatusOK},
		{name: "sign-out with valid token", method: http.MethodPost, path: "/api/auth/sign-out", token: "reader-token", wantStatus: http.StatusOK},
		{name: "refresh with valid token", method: http.MethodPost, path: "/api/auth/refresh", token: "reader-token", wantStatus: http.StatusOK},
		{name: "role change by reader", method: http.MethodPut, path: "/api/users/u9/role", body: `{"role":"EDITOR"}`, token: "reader-token", wantStatus: http.StatusForbidden},
		{name: "role change by admin", method: http.MethodPut, path: "/api/users/u9/role", body: `{"role":"EDITOR"}`, token: "admin-token", wantStatus: http.StatusOK},
		{name: "role change to unknown role", method: http.MethodPut, path: "/api/users/u9/role", body: `{"role":"ROOT"}`, token: "admin-token", wantStatus: http.StatusBadRequest},
		{name: "user listing anonymous", method: http.MethodGet, path: "/api/users", wantStatus: http.StatusUnauthorized},
		{name: "user listing by reader", method: http.MethodGet, path: "/api/users", token: "reader-token", wantStatus: http.StatusForbidden},
		{name: "user listing by admin", method: http.MethodGet, path: "/api/users", token: "admin-token", wantStatus: http.StatusOK},
		{name: "subscriber listing by reader", method: http.MethodGet, path: "/api/subscribers", token: "reader-token", wantStatus: http.StatusForbidden},
		{name: "subscriber listing by admin", method: http.MethodGet, path: "/api/subscribers", token: "admin-token", wantStatus: http.StatusOK},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			app := newTestApp(t, newMockAuthHandler())

			// Act
			resp, _ := doRequest(t, app, test.method, test.path, test.body, test.token)

			// Assert
			assert.Equal(t, test.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandleSessionFiber_ReturnsResolvedProfileOnce(t *testing.T) {
	mock := newMockAuthHandler()
	app := newTestApp(t, mock)

	resp, body := doRequest(t, app, http.MethodGet, "/api/auth/session", "", "admin-token")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ADMIN", body["role"])
	assert.Equal(t, 1, mock.sessionCalls)
}

func TestProtectedRoutes_CookieToken(t *testing.T) {
	mock := newMockAuthHandler()
	app := newTestApp(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "reader-token"})
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reader-token", mock.logoutToken)
}

func TestHandleUpdateRoleFiber_PassesIdentityAndRole(t *testing.T) {
	mock := newMockAuthHandler()
	app := newTestApp(t, mock)

	resp, _ := doRequest(t, app, http.MethodPut, "/api/users/u42/role", `{"role":"editor"}`, "admin-token")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u42", mock.changeID)
	assert.Equal(t, core.RoleEditor, mock.changeRole)
}

func TestHandleLoadContentFiber(t *testing.T) {
	mock := newMockAuthHandler()
	mock.content = []core.ContentItem{{ID: "c1", Type: core.ContentArticle, Date: "2024-05-01"}}
	app := newTestApp(t, mock)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/content", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var items []core.ContentItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID)
}

func TestHandleListUsersFiber(t *testing.T) {
	mock := newMockAuthHandler()
	mock.profiles = []core.UserProfile{{ID: "u1", Name: "Ana", Role: core.RoleEditor}}
	app := newTestApp(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var profiles []core.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profiles))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, profiles, 1)
	assert.Equal(t, core.RoleEditor, profiles[0].Role)
}

func TestHandleListSubscribersFiber_RemoteUnavailable(t *testing.T) {
	mock := newMockAuthHandler()
	mock.subscribersErr = core.ErrRemoteUnavailable
	app := newTestApp(t, mock)

	resp, body := doRequest(t, app, http.MethodGet, "/api/subscribers", "", "admin-token")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, core.ErrRemoteUnavailable.Error(), body["error"])
}

func TestHandleAddSubscriberFiber(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "subscribes", body: `{"email":"ana@example.com","language":" EN "}`, wantStatus: http.StatusCreated},
		{name: "already subscribed", body: `{"email":"ana@example.com"}`, serviceErr: core.ErrSubscriberExists, wantStatus: http.StatusConflict},
		{name: "remote unavailable", body: `{"email":"ana@example.com"}`, serviceErr: core.ErrRemoteUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "bad language", body: `{"email":"ana@example.com","language":"de"}`, serviceErr: core.ErrInvalidLanguage, wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mock := newMockAuthHandler()
			mock.subscribeErr = test.serviceErr
			app := newTestApp(t, mock)

			resp, _ := doRequest(t, app, http.MethodPost, "/api/subscribers", test.body, "")

			assert.Equal(t, test.wantStatus, resp.StatusCode)
			if test.wantStatus == http.StatusCreated {
				assert.Equal(t, core.LanguageEN, mock.subscribeLanguage)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "cookie fallback", cookie: "from-cookie", want: "from-cookie"},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "from-cookie", want: "abc"},
		{name: "non-bearer header ignored", header: "Basic abc", want: ""},
		{name: "nothing", want: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c fiber.Ctx) error {
				return c.SendString(extractToken(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: test.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			raw, _ := io.ReadAll(resp.Body)

			assert.Equal(t, test.want, string(raw))
		})
	}
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: core.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: core.ErrSessionExpired, want: http.StatusUnauthorized},
		{err: core.ErrPasswordTooShort, want: http.StatusBadRequest},
		{err: core.ErrInvalidRole, want: http.StatusBadRequest},
		{err: core.ErrForbidden, want: http.StatusForbidden},
		{err: core.ErrProfileNotFound, want: http.StatusNotFound},
		{err: core.ErrUserExists, want: http.StatusConflict},
		{err: core.ErrRemoteUnavailable, want: http.StatusServiceUnavailable},
		{err: fmt.Errorf("failed to update role: %w", core.ErrProfileNotFound), want: http.StatusNotFound},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, test := range tests {
		name := "nil"
		if test.err != nil {
			name = test.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, mapErrorToStatus(test.err))
		})
	}
}
