package fiber

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
)

type handlerFactory func(core.AuthHandler) func(*core.RequestContext) error

// handlerFactories maps operation IDs to handler factories
var handlerFactories = map[string]handlerFactory{
	"registerUser":    handleRegisterFiber,
	"loginUser":       handleLoginFiber,
	"logoutUser":      handleLogoutFiber,
	"checkAuthState":  handleSessionFiber,
	"refreshToken":    handleRefreshFiber,
	"updateUserRole":  handleUpdateRoleFiber,
	"listUsers":       handleListUsersFiber,
	"loadContent":     handleLoadContentFiber,
	"addSubscriber":   handleAddSubscriberFiber,
	"listSubscribers": handleListSubscribersFiber,
}

// handleRegisterFiber returns a handler for the sign-up endpoint
func handleRegisterFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		var input core.RegisterInput
		if err := fctx.Bind().Body(&input); err != nil {
			return invalidBody(fctx)
		}
		if input.Role != "" {
			role, err := core.ParseAccessRole(string(input.Role))
			if err != nil {
				return handleAuthError(fctx, err)
			}
			input.Role = role
		}

		input.IPAddress = fctx.IP()
		input.UserAgent = fctx.Get(fiber.HeaderUserAgent)

		result, err := auth.Register(fctx.Context(), input)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusCreated).JSON(result)
	}
}

// handleLoginFiber returns a handler for the sign-in endpoint
func handleLoginFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		var input core.SignInInput
		if err := fctx.Bind().Body(&input); err != nil {
			return invalidBody(fctx)
		}

		input.IPAddress = fctx.IP()
		input.UserAgent = fctx.Get(fiber.HeaderUserAgent)

		result, err := auth.Login(fctx.Context(), input)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(result)
	}
}

// handleLogoutFiber returns a handler for the sign-out endpoint
func handleLogoutFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		if err := auth.Logout(fctx.Context(), ctx.Token); err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(map[string]string{
			"message": "signed out successfully",
		})
	}
}

// handleSessionFiber returns the profile resolved by requireAuth
func handleSessionFiber(_ core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)
		if ctx.Profile == nil {
			return handleAuthError(fctx, core.ErrInvalidToken)
		}
		return fctx.Status(http.StatusOK).JSON(ctx.Profile)
	}
}

// handleRefreshFiber returns a handler for the refresh endpoint
func handleRefreshFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		result, err := auth.Refresh(fctx.Context(), ctx.Token)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(result)
	}
}

type roleChange struct {
	Role string `json:"role"`
}

func handleUpdateRoleFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		var body roleChange
		if err := fctx.Bind().Body(&body); err != nil {
			return invalidBody(fctx)
		}
		role, err := core.ParseAccessRole(body.Role)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		profile, err := auth.ChangeRole(fctx.Context(), fctx.Params("id"), role)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(profile)
	}
}

func handleListUsersFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		profiles, err := auth.ListProfiles(fctx.Context())
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(profiles)
	}
}

func handleLoadContentFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		items, err := auth.LoadContent(fctx.Context())
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(items)
	}
}

type subscription struct {
	Email    string `json:"email"`
	Language string `json:"language"`
}

func handleAddSubscriberFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		var body subscription
		if err := fctx.Bind().Body(&body); err != nil {
			return invalidBody(fctx)
		}

		language := core.Language(strings.ToLower(strings.TrimSpace(body.Language)))
		sub, err := auth.Subscribe(fctx.Context(), body.Email, language)
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusCreated).JSON(sub)
	}
}

func handleListSubscribersFiber(auth core.AuthHandler) func(*core.RequestContext) error {
	return func(ctx *core.RequestContext) error {
		fctx := ctx.Request.(fiber.Ctx)

		subs, err := auth.ListSubscribers(fctx.Context())
		if err != nil {
			return handleAuthError(fctx, err)
		}

		return fctx.Status(http.StatusOK).JSON(subs)
	}
}

// extractToken extracts the authentication token from the request.
// Checks Authorization header (Bearer token) first, then falls back to cookie.
func extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return c.Cookies("auth_token")
}

func invalidBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
	})
}

// handleAuthError maps service errors to appropriate HTTP responses
func handleAuthError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	return c.Status(status).JSON(core.ErrorResponse{
		Error: err.Error(),
		Code:  status,
	})
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrSessionExpired),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrInvalidLanguage):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrProfileNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrSubscriberExists):
		return http.StatusConflict

	case errors.Is(err, core.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
