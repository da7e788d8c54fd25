package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/services"
)

type Adapter struct {
	app       *fiber.App
	registry  *services.EndpointRegistry
	selfRoles []core.AccessRole
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithSelfServiceRoles sets the roles an anonymous caller may pick at
// sign-up. Any other requested role needs an ADMIN session.
func WithSelfServiceRoles(roles ...core.AccessRole) Option {
	return func(a *Adapter) {
		a.selfRoles = append([]core.AccessRole(nil), roles...)
	}
}

// DefaultSelfServiceRoles never includes ADMIN.
func DefaultSelfServiceRoles() []core.AccessRole {
	return []core.AccessRole{core.RoleReader, core.RoleEditor}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{
		app:       app,
		registry:  services.NewEndpointRegistry(),
		selfRoles: DefaultSelfServiceRoles(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry exposes the endpoint set so plugins can add routes before
// RegisterRoutes is called.
func (a *Adapter) Registry() *services.EndpointRegistry {
	return a.registry
}

// RegisterRoutes mounts every registered endpoint under basePath. Base
// endpoints get their Fiber handler from the operation ID; plugin
// endpoints must bring their own.
func (a *Adapter) RegisterRoutes(handler core.AuthHandler, basePath string) error {
	api := a.app.Group(basePath)

	for _, ep := range a.registry.Endpoints() {
		h := ep.Handler
		if h == nil {
			factory, ok := handlerFactories[ep.Metadata.OperationID]
			if !ok {
				return fmt.Errorf("no handler for %s %s (%s)", ep.Method, ep.Path, ep.Metadata.OperationID)
			}
			h = factory(handler)
		}

		route := toFiberHandler(handler, h)
		if ep.Metadata.OperationID == "registerUser" {
			api.Add([]string{ep.Method}, ep.Path, guardSignUpRole(handler, a.selfRoles), route)
			continue
		}
		if ep.Metadata.Protected {
			api.Add([]string{ep.Method}, ep.Path, requireAuth(handler, ep.Metadata.MinRole), route)
			continue
		}
		api.Add([]string{ep.Method}, ep.Path, route)
	}

	return nil
}

// toFiberHandler adapts a framework-agnostic handler, passing along the
// profile and token stored by requireAuth.
func toFiberHandler(auth core.AuthHandler, h func(*core.RequestContext) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		rc := &core.RequestContext{Request: c, Auth: auth}
		if p, ok := c.Locals(localProfile).(*core.UserProfile); ok {
			rc.Profile = p
		}
		if token, ok := c.Locals(localToken).(string); ok {
			rc.Token = token
		}
		return h(rc)
	}
}
