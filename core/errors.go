package core

import "errors"

// Authentication Related Errors
var (
	// User errors
	ErrUserExists         = errors.New("user already exists")       // 409 Conflict
	ErrUserNotFound       = errors.New("user not found")            // 404 Not Found
	ErrInvalidCredentials = errors.New("invalid email or password") // 401 Unauthorized
	ErrForbidden          = errors.New("insufficient role")         // 403 Forbidden
	ErrAccountNotFound    = errors.New("account not found")         // 404 Not Found
)

// Session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidToken      = errors.New("invalid session token")        // 401
	ErrSessionNotFound   = errors.New("session not found")            // 401
	ErrSessionExpired    = errors.New("session expired")              // 401
	ErrCacheNotFound     = errors.New("entry not found in cache")
)

// Validation errors (client input)
var (
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrEmailRequired     = errors.New("email is required")                                       // 400
	ErrPasswordRequired  = errors.New("password is required")                                    // 400
	ErrPasswordTooShort  = errors.New("password is too short")                                   // 400
	ErrPasswordTooLong   = errors.New("password is too long")                                    // 400
	ErrInvalidEmail      = errors.New("invalid email format")                                    // 400
	ErrInvalidRole       = errors.New("invalid access role")                                     // 400
	ErrInvalidLanguage   = errors.New("unsupported language")                                    // 400
)

// Document store errors
var (
	ErrProfileNotFound   = errors.New("profile not found")           // 404
	ErrSubscriberExists  = errors.New("email already subscribed")    // 409
	ErrRemoteUnavailable = errors.New("remote store did not answer") // 503
	ErrOperationPanicked = errors.New("remote operation panicked")
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired     = errors.New("database adapter is required")      // 500
	ErrHTTPAdapterRequired   = errors.New("adapter is required")               // 500
	ErrDocumentStoreRequired = errors.New("document store is required")        // 500
	ErrLocalStoreRequired    = errors.New("local store is required")           // 500
	ErrInvalidBound          = errors.New("bounds must be positive durations") // 500
)

var (
	ErrNotImplemented = errors.New("not implemented") // 501
)
