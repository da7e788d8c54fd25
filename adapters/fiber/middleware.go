package fiber

import (
	"slices"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
)

const (
	localProfile = "profile"
	localToken   = "token"
)

// requireAuth resolves the session behind the request token and stores
// the profile in the context for downstream handlers. A non-empty
// minRole is enforced against the resolved role.
func requireAuth(auth core.AuthHandler, minRole core.AccessRole) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Error: core.ErrMissingAuthHeader.Error(),
			})
		}

		profile, err := auth.Session(c.Context(), token)
		if err != nil {
			return handleAuthError(c, err)
		}

		if minRole != "" && !profile.Role.AtLeast(minRole) {
			return handleAuthError(c, core.ErrForbidden)
		}

		c.Locals(localProfile, profile)
		c.Locals(localToken, token)

		return c.Next()
	}
}

// guardSignUpRole lets a sign-up through when the requested role is empty
// or self-service. Any other role requires the caller to hold an ADMIN
// session. Malformed bodies pass through for the handler to reject.
func guardSignUpRole(auth core.AuthHandler, allowed []core.AccessRole) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body struct {
			Role string `json:"role"`
		}
		if err := c.Bind().Body(&body); err != nil || body.Role == "" {
			return c.Next()
		}

		role, err := core.ParseAccessRole(body.Role)
		if err != nil || slices.Contains(allowed, role) {
			return c.Next()
		}

		token := extractToken(c)
		if token == "" {
			return handleAuthError(c, core.ErrForbidden)
		}
		profile, err := auth.Session(c.Context(), token)
		if err != nil {
			return handleAuthError(c, err)
		}
		if !profile.Role.AtLeast(core.RoleAdmin) {
			return handleAuthError(c, core.ErrForbidden)
		}

		return c.Next()
	}
}
