package core

// SignUpInput contains the data needed to create a new identity
type SignUpInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Image    *string `json:"image,omitempty"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// SignInInput contains email/password credentials
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// SignInResult is what the identity provider returns for a new session
type SignInResult struct {
	User    *ProviderUser `json:"user"`
	Session *Session      `json:"session"`
	Token   string        `json:"token"` // The raw token (not the hash)
}

// RegisterInput is a sign-up carrying the role chosen at registration.
// An empty Role means DefaultRole.
type RegisterInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     AccessRole `json:"role,omitempty"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	Profile *UserProfile `json:"user"`
	Session *Session     `json:"session"`
	Token   string       `json:"token"`
}
