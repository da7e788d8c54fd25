package services

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/metrics"
)

// RoleSource records where a resolved role came from.
type RoleSource string

const (
	RoleSourceFresh   RoleSource = "fresh"
	RoleSourceRemote  RoleSource = "remote"
	RoleSourceLocal   RoleSource = "local"
	RoleSourceDefault RoleSource = "default"
)

type ResolverState int

const (
	StateSignedOut ResolverState = iota
	StateResolving
	StateResolved
)

func (s ResolverState) String() string {
	switch s {
	case StateSignedOut:
		return "signed_out"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	}
	return "unknown"
}

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// DefaultAvatar derives a deterministic avatar URI from seed.
func DefaultAvatar(seed string) string {
	return avatarBaseURL + url.QueryEscape(seed)
}

type ResolverConfig struct {
	Provider  core.IdentityProvider
	Profiles  core.ProfileStore
	Authority core.AuthorityCache
	RoleRead  time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// SessionResolver turns identity provider state changes into resolved
// profiles. Each change is resolved on its own goroutine; results that
// were overtaken by a later change are dropped, so subscribers always see
// states in the order the provider produced them.
type SessionResolver struct {
	provider  core.IdentityProvider
	profiles  core.ProfileStore
	authority core.AuthorityCache
	roleRead  time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics

	out *Emitter[*core.UserProfile]

	mu          sync.Mutex
	ctx         context.Context
	gen         uint64
	state       ResolverState
	current     *core.UserProfile
	settled     bool
	stopped     bool
	unsubscribe func()

	// held across the generation check and the publish
	emitMu   sync.Mutex
	inflight sync.WaitGroup
}

func NewSessionResolver(cfg ResolverConfig) *SessionResolver {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	roleRead := cfg.RoleRead
	if roleRead == 0 {
		roleRead = core.DefaultBounds().RoleRead
	}

	return &SessionResolver{
		provider:  cfg.Provider,
		profiles:  cfg.Profiles,
		authority: cfg.Authority,
		roleRead:  roleRead,
		log:       log.With("component", "session_resolver"),
		metrics:   cfg.Metrics,
		out:       NewEmitter[*core.UserProfile](),
		ctx:       context.Background(),
	}
}

// Start subscribes to the identity provider. Calling it twice is a no-op.
// ctx supplies values to resolutions; its cancellation does not stop them.
func (r *SessionResolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.unsubscribe != nil || r.stopped {
		r.mu.Unlock()
		return
	}
	r.ctx = context.WithoutCancel(ctx)
	r.mu.Unlock()

	unsubscribe := r.provider.Subscribe(r.onAuthState)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Stop unsubscribes from the provider, waits for in-flight resolutions and
// releases all subscribers.
func (r *SessionResolver) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.inflight.Wait()
	r.out.Close()
}

// Subscribe registers fn for every settled state. A nil profile means
// signed out. If a state has already settled, fn receives it right away.
// fn must not call Subscribe.
func (r *SessionResolver) Subscribe(fn func(*core.UserProfile)) func() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	current, settled := r.current, r.settled
	r.mu.Unlock()

	if settled {
		fn(current)
	}
	return r.out.Subscribe(fn)
}

func (r *SessionResolver) State() ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the last settled profile, nil when signed out.
func (r *SessionResolver) Current() *core.UserProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	p := *r.current
	return &p
}

func (r *SessionResolver) onAuthState(s core.AuthState) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	if s.User != nil {
		r.state = StateResolving
	}
	ctx := r.ctx
	r.inflight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inflight.Done()

		var profile *core.UserProfile
		if s.User != nil {
			profile = r.Resolve(ctx, *s.User)
		}
		r.publish(gen, profile)
	}()
}

func (r *SessionResolver) publish(gen uint64, profile *core.UserProfile) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		r.log.Debug("dropping superseded resolution", "generation", gen)
		return
	}
	r.current = profile
	r.settled = true
	if profile == nil {
		r.state = StateSignedOut
	} else {
		r.state = StateResolved
	}
	r.mu.Unlock()

	r.out.Publish(profile)
}

// Resolve assembles the profile for user without publishing it.
// It never fails: any panic along the way degrades to the local or
// default role.
func (r *SessionResolver) Resolve(ctx context.Context, user core.ProviderUser) (profile *core.UserProfile) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.ErrorContext(ctx, "role resolution panicked", "identity", user.Identity, "panic", rec)
			profile = assembleProfile(user, r.fallbackRole(user.Identity), nil)
		}
	}()

	role, _, doc := r.resolveRole(ctx, user.Identity)
	return assembleProfile(user, role, doc)
}

// ResolveRole applies the resolution priority for id: a fresh local role,
// then the remote profile, then the local role, then the default.
func (r *SessionResolver) ResolveRole(ctx context.Context, id core.Identity) (core.AccessRole, RoleSource) {
	role, source, _ := r.resolveRole(ctx, id)
	return role, source
}

func (r *SessionResolver) resolveRole(ctx context.Context, id core.Identity) (core.AccessRole, RoleSource, *core.UserProfile) {
	if r.authority.IsFresh(id) {
		if role, ok := r.authority.Role(id); ok {
			if err := r.authority.ClearFreshness(id); err != nil {
				r.log.WarnContext(ctx, "failed to clear freshness flag", "identity", id, "error", err)
			}
			r.metrics.ObserveRoleResolution(string(RoleSourceFresh))
			return role, RoleSourceFresh, nil
		}
	}

	res := core.CallWithBound(ctx, r.roleRead, func(ctx context.Context) (*core.UserProfile, error) {
		return r.profiles.GetProfile(ctx, id)
	})
	r.metrics.ObserveBoundedCall("role_read", res.Outcome.String(), res.Elapsed)

	doc, ok := res.Get()
	if ok && doc != nil && doc.Role.Valid() {
		if err := r.authority.SetRole(id, doc.Role); err != nil {
			r.log.WarnContext(ctx, "failed to refresh local role", "identity", id, "error", err)
		}
		r.metrics.ObserveRoleResolution(string(RoleSourceRemote))
		return doc.Role, RoleSourceRemote, doc
	}

	r.log.WarnContext(ctx, "remote role unavailable, falling back",
		"identity", id,
		"outcome", res.Outcome.String(),
		"elapsed", res.Elapsed,
		"error", res.Err,
	)

	if role, ok := r.authority.Role(id); ok {
		r.metrics.ObserveRoleResolution(string(RoleSourceLocal))
		return role, RoleSourceLocal, doc
	}
	r.metrics.ObserveRoleResolution(string(RoleSourceDefault))
	return core.DefaultRole, RoleSourceDefault, doc
}

func (r *SessionResolver) fallbackRole(id core.Identity) (role core.AccessRole) {
	defer func() {
		if recover() != nil {
			role = core.DefaultRole
		}
	}()
	if cached, ok := r.authority.Role(id); ok {
		return cached
	}
	return core.DefaultRole
}

// assembleProfile prefers the provider's display fields and fills gaps
// from the stored document.
func assembleProfile(user core.ProviderUser, role core.AccessRole, doc *core.UserProfile) *core.UserProfile {
	p := &core.UserProfile{
		ID:     user.Identity,
		Name:   user.DisplayName,
		Email:  user.Email,
		Avatar: user.AvatarURI,
		Role:   role,
	}
	if doc != nil {
		if p.Name == "" {
			p.Name = doc.Name
		}
		if p.Email == "" {
			p.Email = doc.Email
		}
		if p.Avatar == "" {
			p.Avatar = doc.Avatar
		}
		p.Bio = doc.Bio
	}
	if p.Name == "" {
		p.Name = "User"
	}
	if p.Avatar == "" {
		p.Avatar = DefaultAvatar(user.Identity)
	}
	return p
}
