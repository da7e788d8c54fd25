package core

// Endpoint is a framework-agnostic route. A nil Handler lets the HTTP
// adapter supply its own implementation for Metadata.OperationID.
type Endpoint struct {
	Path     string
	Method   string
	Handler  func(ctx *RequestContext) error
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string

	// Protected endpoints require a valid session token.
	Protected bool
	// MinRole is checked against the resolved profile when set.
	MinRole AccessRole
}

// RequestContext is what a handler sees. Profile and Token are filled in
// for protected endpoints only.
type RequestContext struct {
	Request any // the adapter's native request, e.g. fiber.Ctx
	Auth    AuthHandler
	Profile *UserProfile
	Token   string
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
