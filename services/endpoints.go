package services

import (
	"fmt"
	"sort"

	"github.com/lborres/bantay/core"
)

// BaseEndpoints returns framework-agnostic endpoint specifications
// for every operation the service exposes.
//
// Each endpoint is a template:
// - Path and Method are set
// - Handler is nil (provided by adapters)
// - Metadata contains OpenAPI information
//
// This allows multiple adapters (Fiber, Gin, Echo) to share the same
// endpoint definitions while providing their own framework-specific handlers.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:    "/auth/sign-up",
			Method:  "POST",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "registerUser",
				Description: "Register a user with email, password and access role",
			},
		},
		{
			Path:    "/auth/sign-in",
			Method:  "POST",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "loginUser",
				Description: "Sign in a user using email and password",
			},
		},
		{
			Path:    "/auth/sign-out",
			Method:  "POST",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "logoutUser",
				Description: "Sign out the current user and invalidate the session",
				Protected:   true,
			},
		},
		{
			Path:    "/auth/session",
			Method:  "GET",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "checkAuthState",
				Description: "Get the resolved profile of the current user",
				Protected:   true,
			},
		},
		{
			Path:    "/auth/refresh",
			Method:  "POST",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "refreshToken",
				Description: "Rotate the session token and re-resolve the profile",
				Protected:   true,
			},
		},
		{
			Path:    "/users/:id/role",
			Method:  "PUT",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "updateUserRole",
				Description: "Change the access role of a user",
				Protected:   true,
				MinRole:     core.RoleAdmin,
			},
		},
		{
			Path:    "/users",
			Method:  "GET",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "listUsers",
				Description: "List every user profile",
				Protected:   true,
				MinRole:     core.RoleAdmin,
			},
		},
		{
			Path:    "/content",
			Method:  "GET",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "loadContent",
				Description: "List articles and comics, newest first",
			},
		},
		{
			Path:    "/subscribers",
			Method:  "POST",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "addSubscriber",
				Description: "Subscribe an email address to the newsletter",
			},
		},
		{
			Path:    "/subscribers",
			Method:  "GET",
			Handler: nil,
			Metadata: core.EndpointMetadata{
				OperationID: "listSubscribers",
				Description: "List newsletter subscribers, newest first",
				Protected:   true,
				MinRole:     core.RoleAdmin,
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
//
// It starts with the base endpoints and supports registration of
// additional plugin endpoints with automatic conflict detection.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		// base paths are unique, see TestBaseEndpoints_RoutesAreUnique
		_ = reg.register(&base[i])
	}

	return reg
}

// register adds a single endpoint to the registry with conflict detection.
// Returns error if an endpoint with the same METHOD:PATH already exists.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// RegisterPlugin registers additional plugin endpoints to the registry.
// Returns error if any plugin endpoint conflicts with existing endpoints
// or with other plugin endpoints in the same batch.
//
// If an error occurs, no endpoints from the plugin are registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	// First, check for conflicts with existing endpoints
	for i := range endpoints {
		ep := &endpoints[i]
		key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
	}

	// Check for conflicts within the plugin set itself
	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	// No conflicts found, register all plugin endpoints
	for i := range endpoints {
		ep := &endpoints[i]
		r.endpoints[fmt.Sprintf("%s:%s", ep.Method, ep.Path)] = ep
	}

	return nil
}

// Endpoints returns all registered endpoints (both base and plugin),
// ordered by path then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}

// Lookup returns the endpoint with the given OperationID.
func (r *EndpointRegistry) Lookup(operationID string) (*core.Endpoint, bool) {
	for _, ep := range r.endpoints {
		if ep.Metadata.OperationID == operationID {
			return ep, true
		}
	}
	return nil, false
}
