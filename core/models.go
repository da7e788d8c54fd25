package core

import (
	"sort"
	"strings"
	"time"
)

// User represents a user account in the system
//
// This is the "identity" - who someone is
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Name          string    `json:"name"`
	Image         *string   `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Account represents an authentication method
//
// This is the "credential" - how someone proves who they are
type Account struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	ProviderID   string     `json:"providerId"` // "credential", "google", "github"
	AccountID    string     `json:"accountId"`
	Password     *string    `json:"-"` // Never expose in JSON
	AccessToken  *string    `json:"-"` // Never expose in JSON
	RefreshToken *string    `json:"-"` // Never expose in JSON
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Session represents an active login session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the opaque identifier issued by the identity provider.
type Identity = string

// AccessRole is the authorization level attached to an identity.
type AccessRole string

const (
	RoleReader AccessRole = "READER"
	RoleEditor AccessRole = "EDITOR"
	RoleAdmin  AccessRole = "ADMIN"

	// DefaultRole is assigned whenever no authoritative role can be found.
	DefaultRole = RoleReader
)

// ParseAccessRole accepts any casing and surrounding whitespace.
func ParseAccessRole(s string) (AccessRole, error) {
	r := AccessRole(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r AccessRole) Valid() bool {
	switch r {
	case RoleReader, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

func (r AccessRole) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleReader:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants every permission of other.
func (r AccessRole) AtLeast(other AccessRole) bool {
	return r.rank() >= other.rank() && r.rank() > 0
}

// ProviderUser is what the identity provider knows about a signed-in user.
type ProviderUser struct {
	Identity    Identity `json:"id"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	AvatarURI   string   `json:"avatar,omitempty"`
}

// AuthEvent names the kind of state change the identity provider observed.
type AuthEvent string

const (
	EventRegistered     AuthEvent = "registered"
	EventSignedIn       AuthEvent = "signed_in"
	EventTokenRefreshed AuthEvent = "token_refreshed"
	EventSignedOut      AuthEvent = "signed_out"
)

// AuthState is published by the identity provider. User is nil when signed out.
type AuthState struct {
	Event AuthEvent
	User  *ProviderUser
}

// UserProfile is the resolved view of the current user.
type UserProfile struct {
	ID     Identity   `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Avatar string     `json:"avatar"`
	Role   AccessRole `json:"role"`
	Bio    string     `json:"bio,omitempty"`
}

// ContentType tags the variant carried by a ContentItem.
type ContentType string

const (
	ContentArticle ContentType = "ARTICLE"
	ContentComic   ContentType = "COMIC"
)

type Language string

const (
	LanguageFR Language = "fr"
	LanguageEN Language = "en"
	LanguageES Language = "es"

	DefaultLanguage = LanguageFR
)

func (l Language) Valid() bool {
	switch l {
	case LanguageFR, LanguageEN, LanguageES:
		return true
	}
	return false
}

type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	ID     string `json:"id,omitempty"`
}

// ContentItem is either an article (Content set) or a comic (Pages set).
type ContentItem struct {
	ID               string      `json:"id"`
	Type             ContentType `json:"type"`
	Title            string      `json:"title"`
	Excerpt          string      `json:"excerpt"`
	CoverImage       string      `json:"coverImage"`
	Date             string      `json:"date"` // YYYY-MM-DD
	Author           Author      `json:"author"`
	Tags             []string    `json:"tags"`
	Likes            int         `json:"likes"`
	OriginalLanguage Language    `json:"originalLanguage"`

	Content string   `json:"content,omitempty"`
	Pages   []string `json:"pages,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared cache entries.
func (c ContentItem) Clone() ContentItem {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	out.Pages = append([]string(nil), c.Pages...)
	return out
}

// CloneContent deep-copies a content list, preserving order.
func CloneContent(items []ContentItem) []ContentItem {
	if items == nil {
		return nil
	}
	out := make([]ContentItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// SortByDateDesc orders items newest first. Ties keep their relative order.
func SortByDateDesc(items []ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date > items[j].Date
	})
}

type Subscriber struct {
	Email    string   `json:"email"`
	Date     string   `json:"date"` // YYYY-MM-DD
	Language Language `json:"language"`
}

// SessionData combines user and session info
// The model returned to clients
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}
