package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/bantay/core"
)

// FakeSessionStorage is a test-only fake implementing core.SessionStorage.
// It stores sessions in a map and exposes error fields for behavior injection.
type FakeSessionStorage struct {
	sessions  map[string]*core.Session
	mu        sync.RWMutex
	createErr error
	getErr    error
	deleteErr error
}

func NewFakeSessionStorage() *FakeSessionStorage {
	return &FakeSessionStorage{
		sessions: make(map[string]*core.Session),
	}
}

func (f *FakeSessionStorage) CreateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeSessionStorage) GetSessionByHash(_ context.Context, tokenHash string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

func (f *FakeSessionStorage) GetSessionByID(_ context.Context, id string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, core.ErrSessionNotFound
}

func (f *FakeSessionStorage) GetUserSessions(_ context.Context, userID string) ([]*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var sessions []*core.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (f *FakeSessionStorage) UpdateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.TokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeSessionStorage) DeleteSessionByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for k, s := range f.sessions {
		if s.ID == id {
			delete(f.sessions, k)
			return nil
		}
	}
	return core.ErrSessionNotFound
}

func (f *FakeSessionStorage) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.sessions[tokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeSessionStorage) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for k, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeSessionStorage) DeleteExpiredSessions(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	count := 0
	for k, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeSessionStorage) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}

// FakeStorageProvider is a test-only fake implementing core.AuthStorage.
// It combines session, user, and account storage fakes.
type FakeStorageProvider struct {
	*FakeSessionStorage
	users    map[string]*core.User
	accounts map[string]*core.Account
}

func NewFakeStorageProvider() *FakeStorageProvider {
	return &FakeStorageProvider{
		FakeSessionStorage: NewFakeSessionStorage(),
		users:              make(map[string]*core.User),
		accounts:           make(map[string]*core.Account),
	}
}

func (f *FakeStorageProvider) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[u.ID]; exists {
		return core.ErrUserExists
	}
	f.users[u.ID] = u
	return nil
}

func (f *FakeStorageProvider) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorageProvider) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorageProvider) UpdateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[u.ID]; !exists {
		return core.ErrUserNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *FakeStorageProvider) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[id]; !exists {
		return core.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *FakeStorageProvider) CreateAccount(_ context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[a.ID] = a
	return nil
}

func (f *FakeStorageProvider) GetAccountByID(_ context.Context, id string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeStorageProvider) GetAccountByUserAndProvider(_ context.Context, userID, providerID string) ([]*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var accounts []*core.Account
	for _, a := range f.accounts {
		if a.UserID == userID && a.ProviderID == providerID {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

func (f *FakeStorageProvider) UpdateAccount(_ context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[a.ID]; !exists {
		return core.ErrAccountNotFound
	}
	f.accounts[a.ID] = a
	return nil
}

func (f *FakeStorageProvider) DeleteAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[id]; !exists {
		return core.ErrAccountNotFound
	}
	delete(f.accounts, id)
	return nil
}

// FakeCache is a test-only fake implementing core.Cache.
type FakeCache struct {
	cache  map[string]*core.Session
	mu     sync.RWMutex
	getErr error
	setErr error
	delErr error
}

func NewFakeCache() *FakeCache {
	return &FakeCache{cache: make(map[string]*core.Session)}
}

func (f *FakeCache) Get(tokenHash string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.cache[tokenHash]
	if !ok {
		return nil, core.ErrCacheNotFound
	}
	return s, nil
}

func (f *FakeCache) Set(tokenHash string, session *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.cache[tokenHash] = session
	return nil
}

func (f *FakeCache) Delete(tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.cache, tokenHash)
	return nil
}

func (f *FakeCache) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]*core.Session)
	return nil
}

func (f *FakeCache) SetSetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

func (f *FakeCache) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

// FakeLocalStore is a test-only fake implementing core.LocalStore.
type FakeLocalStore struct {
	mu     sync.RWMutex
	data   map[string]string
	setErr error
}

func NewFakeLocalStore() *FakeLocalStore {
	return &FakeLocalStore{data: make(map[string]string)}
}

func (f *FakeLocalStore) Get(key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	if !ok {
		return "", core.ErrCacheNotFound
	}
	return v, nil
}

func (f *FakeLocalStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *FakeLocalStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return core.ErrCacheNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *FakeLocalStore) SetSetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

// FakeDocumentStore is a test-only fake implementing core.DocumentStore.
// Delay, Err and Panic apply to every call; Gate, when set, blocks each
// call until it is closed or the call's context is done.
type FakeDocumentStore struct {
	mu          sync.RWMutex
	profiles    map[string]*core.UserProfile
	content     []core.ContentItem
	subscribers map[string]*core.Subscriber

	delay  time.Duration
	err    error
	panics bool
	gate   chan struct{}

	calls     atomic.Int64
	listCalls atomic.Int64
	writes    atomic.Int64
}

func NewFakeDocumentStore() *FakeDocumentStore {
	return &FakeDocumentStore{
		profiles:    make(map[string]*core.UserProfile),
		subscribers: make(map[string]*core.Subscriber),
	}
}

func (f *FakeDocumentStore) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *FakeDocumentStore) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeDocumentStore) SetPanic(p bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = p
}

// Block makes every call wait until the returned release func runs.
func (f *FakeDocumentStore) Block() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *FakeDocumentStore) SetContent(items []core.ContentItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = core.CloneContent(items)
}

func (f *FakeDocumentStore) PutProfile(p core.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = &p
}

func (f *FakeDocumentStore) Profile(id string) (core.UserProfile, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.profiles[id]
	if !ok {
		return core.UserProfile{}, false
	}
	return *p, true
}

func (f *FakeDocumentStore) Calls() int64     { return f.calls.Load() }
func (f *FakeDocumentStore) ListCalls() int64 { return f.listCalls.Load() }
func (f *FakeDocumentStore) Writes() int64    { return f.writes.Load() }

func (f *FakeDocumentStore) enter(ctx context.Context) error {
	f.calls.Add(1)

	f.mu.RLock()
	delay, err, panics, gate := f.delay, f.err, f.panics, f.gate
	f.mu.RUnlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panics {
		panic("document store exploded")
	}
	return err
}

func (f *FakeDocumentStore) GetProfile(ctx context.Context, id core.Identity) (*core.UserProfile, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, core.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeDocumentStore) SetProfile(ctx context.Context, p *core.UserProfile) error {
	if err := f.enter(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.ID] = &cp
	f.writes.Add(1)
	return nil
}

func (f *FakeDocumentStore) UpdateRole(ctx context.Context, id core.Identity, role core.AccessRole) error {
	if err := f.enter(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return core.ErrProfileNotFound
	}
	p.Role = role
	f.writes.Add(1)
	return nil
}

func (f *FakeDocumentStore) ListProfiles(ctx context.Context) ([]core.UserProfile, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.UserProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *FakeDocumentStore) ListContent(ctx context.Context) ([]core.ContentItem, error) {
	f.listCalls.Add(1)
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return core.CloneContent(f.content), nil
}

func (f *FakeDocumentStore) SaveContent(ctx context.Context, item *core.ContentItem) error {
	if err := f.enter(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = append(f.content, item.Clone())
	return nil
}

func (f *FakeDocumentStore) SubscriberExists(ctx context.Context, email string) (bool, error) {
	if err := f.enter(ctx); err != nil {
		return false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.subscribers[email]
	return ok, nil
}

func (f *FakeDocumentStore) AddSubscriber(ctx context.Context, s *core.Subscriber) error {
	if err := f.enter(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[s.Email]; ok {
		return core.ErrSubscriberExists
	}
	cp := *s
	f.subscribers[s.Email] = &cp
	return nil
}

func (f *FakeDocumentStore) ListSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.Subscriber, 0, len(f.subscribers))
	for _, s := range f.subscribers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// FakeIdentityProvider is a test-only fake implementing core.IdentityProvider.
// It only drives state changes; credentials are not checked.
type FakeIdentityProvider struct {
	events *Emitter[core.AuthState]

	mu      sync.Mutex
	users   map[string]core.ProviderUser
	signErr error
}

func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		events: NewEmitter[core.AuthState](),
		users:  make(map[string]core.ProviderUser),
	}
}

func (f *FakeIdentityProvider) Emit(s core.AuthState) {
	f.events.Publish(s)
}

func (f *FakeIdentityProvider) AddUser(token string, u core.ProviderUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = u
}

func (f *FakeIdentityProvider) CreateIdentity(_ context.Context, input core.SignUpInput, prepare core.PrepareFunc) (*core.SignInResult, error) {
	f.mu.Lock()
	err := f.signErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	u := core.ProviderUser{Identity: "id-" + input.Email, DisplayName: input.Name, Email: input.Email}
	if input.Image != nil {
		u.AvatarURI = *input.Image
	}
	f.AddUser("token-"+u.Identity, u)

	if prepare != nil {
		prepare(u)
	}
	f.events.Publish(core.AuthState{Event: core.EventRegistered, User: &u})
	return &core.SignInResult{User: &u, Token: "token-" + u.Identity}, nil
}

func (f *FakeIdentityProvider) SignIn(_ context.Context, input core.SignInInput) (*core.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, u := range f.users {
		if u.Email == input.Email {
			u := u
			return &core.SignInResult{User: &u, Token: token}, nil
		}
	}
	return nil, core.ErrInvalidCredentials
}

func (f *FakeIdentityProvider) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[token]; !ok {
		return core.ErrInvalidToken
	}
	delete(f.users, token)
	return nil
}

func (f *FakeIdentityProvider) Refresh(ctx context.Context, token string) (*core.SignInResult, error) {
	u, err := f.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &core.SignInResult{User: u, Token: token}, nil
}

func (f *FakeIdentityProvider) CurrentUser(_ context.Context, token string) (*core.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, core.ErrInvalidToken
	}
	return &u, nil
}

func (f *FakeIdentityProvider) Subscribe(fn func(core.AuthState)) func() {
	return f.events.Subscribe(fn)
}

var errFakeStore = errors.New("document store unavailable")
