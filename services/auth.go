package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/metrics"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	defaultBio = "New member of the community."
)

var validate = validator.New()

type AuthServiceConfig struct {
	Provider    core.IdentityProvider
	Profiles    core.ProfileStore
	Subscribers core.SubscriberStore
	Authority   core.AuthorityCache
	Resolver    *SessionResolver
	Content     *ContentListCache
	Bounds      core.Bounds
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// AuthService is the surface exposed to callers and HTTP adapters.
type AuthService struct {
	provider    core.IdentityProvider
	profiles    core.ProfileStore
	subscribers core.SubscriberStore
	authority   core.AuthorityCache
	resolver    *SessionResolver
	content     *ContentListCache
	bounds      core.Bounds
	log         *slog.Logger
	metrics     *metrics.Metrics

	// detached remote writes still running
	pending sync.WaitGroup
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		provider:    cfg.Provider,
		profiles:    cfg.Profiles,
		subscribers: cfg.Subscribers,
		authority:   cfg.Authority,
		resolver:    cfg.Resolver,
		content:     cfg.Content,
		bounds:      cfg.Bounds.WithDefaults(),
		log:         log.With("component", "auth_service"),
		metrics:     cfg.Metrics,
	}
}

// CheckAuthState subscribes fn to resolved session states.
func (s *AuthService) CheckAuthState(fn func(*core.UserProfile)) func() {
	return s.resolver.Subscribe(fn)
}

// Register creates the identity, then records the chosen role locally
// before the provider announces the new identity. The remote profile
// write runs detached and never fails the registration.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	if err := validateCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = core.DefaultRole
	}
	if !role.Valid() {
		return nil, core.ErrInvalidRole
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.SplitN(input.Email, "@", 2)[0]
	}
	avatar := DefaultAvatar(name)

	var profile *core.UserProfile
	prepare := func(u core.ProviderUser) {
		s.recordLocalRole(ctx, u.Identity, role)
		profile = &core.UserProfile{
			ID:     u.Identity,
			Name:   name,
			Email:  u.Email,
			Avatar: avatar,
			Role:   role,
			Bio:    defaultBio,
		}
	}

	res, err := s.provider.CreateIdentity(ctx, core.SignUpInput{
		Email:     input.Email,
		Password:  input.Password,
		Name:      name,
		Image:     &avatar,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	}, prepare)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		// provider skipped the hook
		prepare(*res.User)
	}

	s.writeProfile(ctx, *profile)

	return &core.AuthResult{Profile: profile, Session: res.Session, Token: res.Token}, nil
}

func (s *AuthService) recordLocalRole(ctx context.Context, id core.Identity, role core.AccessRole) {
	if err := s.authority.SetRole(id, role); err != nil {
		s.log.ErrorContext(ctx, "failed to cache role locally", "identity", id, "role", role, "error", err)
		return
	}
	if err := s.authority.MarkFresh(id); err != nil {
		s.log.ErrorContext(ctx, "failed to mark role fresh", "identity", id, "error", err)
	}
}

func (s *AuthService) writeProfile(ctx context.Context, doc core.UserProfile) {
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		res := core.CallWithBound(ctx, s.bounds.RegistrationWrite, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.profiles.SetProfile(ctx, &doc)
		})
		s.metrics.ObserveBoundedCall("registration_write", res.Outcome.String(), res.Elapsed)
		s.metrics.ObserveRegistration(res.Outcome.String())

		switch res.Outcome {
		case core.OutcomeOK:
			s.log.InfoContext(ctx, "profile stored", "identity", doc.ID, "elapsed", res.Elapsed)
		case core.OutcomeTimeout:
			s.log.WarnContext(ctx, "profile write exceeded its bound, it may still land",
				"identity", doc.ID, "bound", s.bounds.RegistrationWrite)
		default:
			s.log.ErrorContext(ctx, "profile write failed, relying on local role",
				"identity", doc.ID, "error", res.Err)
		}
	}()
}

// Login signs in and returns the resolved profile.
func (s *AuthService) Login(ctx context.Context, input core.SignInInput) (*core.AuthResult, error) {
	if input.Email == "" {
		return nil, core.ErrEmailRequired
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	res, err := s.provider.SignIn(ctx, input)
	if err != nil {
		return nil, err
	}

	return &core.AuthResult{
		Profile: s.resolver.Resolve(ctx, *res.User),
		Session: res.Session,
		Token:   res.Token,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.provider.SignOut(ctx, token)
}

func (s *AuthService) Refresh(ctx context.Context, token string) (*core.AuthResult, error) {
	res, err := s.provider.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	return &core.AuthResult{
		Profile: s.resolver.Resolve(ctx, *res.User),
		Session: res.Session,
		Token:   res.Token,
	}, nil
}

// Session resolves the profile behind a session token.
func (s *AuthService) Session(ctx context.Context, token string) (*core.UserProfile, error) {
	user, err := s.provider.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, *user), nil
}

// ChangeRole writes role remotely under the registration bound. The
// local cache is only updated once the remote store has accepted it.
func (s *AuthService) ChangeRole(ctx context.Context, id core.Identity, role core.AccessRole) (*core.UserProfile, error) {
	if !role.Valid() {
		return nil, core.ErrInvalidRole
	}

	res := core.CallWithBound(ctx, s.bounds.RegistrationWrite, func(ctx context.Context) (*core.UserProfile, error) {
		if err := s.profiles.UpdateRole(ctx, id, role); err != nil {
			return nil, err
		}
		return s.profiles.GetProfile(ctx, id)
	})
	s.metrics.ObserveBoundedCall("role_write", res.Outcome.String(), res.Elapsed)

	switch res.Outcome {
	case core.OutcomeTimeout:
		return nil, core.ErrRemoteUnavailable
	case core.OutcomeFailed:
		return nil, fmt.Errorf("failed to update role: %w", res.Err)
	}

	if err := s.authority.SetRole(id, role); err != nil {
		s.log.WarnContext(ctx, "failed to cache updated role", "identity", id, "error", err)
	}
	return res.Value, nil
}

// ListProfiles reads every profile from the remote store under the
// content read bound. There is no local fallback.
func (s *AuthService) ListProfiles(ctx context.Context) ([]core.UserProfile, error) {
	res := core.CallWithBound(ctx, s.bounds.ContentRead, s.profiles.ListProfiles)
	s.metrics.ObserveBoundedCall("profile_list", res.Outcome.String(), res.Elapsed)

	switch res.Outcome {
	case core.OutcomeTimeout:
		return nil, core.ErrRemoteUnavailable
	case core.OutcomeFailed:
		return nil, fmt.Errorf("failed to list profiles: %w", res.Err)
	}
	if res.Value == nil {
		return []core.UserProfile{}, nil
	}
	return res.Value, nil
}

func (s *AuthService) LoadContent(ctx context.Context) ([]core.ContentItem, error) {
	return s.content.Load(ctx)
}

// Close waits for detached profile writes and content refreshes.
func (s *AuthService) Close() {
	s.pending.Wait()
	s.content.Wait()
}

func validEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return core.ErrEmailRequired
	}
	if !validEmail(email) {
		return core.ErrInvalidEmail
	}
	if password == "" {
		return core.ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return core.ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return core.ErrPasswordTooLong
	}
	return nil
}
