package services

import (
	"errors"

	"github.com/lborres/bantay/core"
)

const (
	roleKeyPrefix  = "authority:role:"
	freshKeyPrefix = "authority:fresh:"
	freshMarker    = "1"
)

// LocalAuthorityCache stores the last known role per identity, plus a
// freshness flag meaning "this client wrote the role itself moments ago".
// It is only as durable as the LocalStore underneath.
type LocalAuthorityCache struct {
	store core.LocalStore
}

var _ core.AuthorityCache = (*LocalAuthorityCache)(nil)

func NewLocalAuthorityCache(store core.LocalStore) *LocalAuthorityCache {
	return &LocalAuthorityCache{store: store}
}

// Role returns the cached role. Missing or unparseable values are absent.
func (c *LocalAuthorityCache) Role(id core.Identity) (core.AccessRole, bool) {
	raw, err := c.store.Get(roleKeyPrefix + id)
	if err != nil {
		return "", false
	}
	role, err := core.ParseAccessRole(raw)
	if err != nil {
		return "", false
	}
	return role, true
}

func (c *LocalAuthorityCache) SetRole(id core.Identity, role core.AccessRole) error {
	if !role.Valid() {
		return core.ErrInvalidRole
	}
	return c.store.Set(roleKeyPrefix+id, string(role))
}

func (c *LocalAuthorityCache) MarkFresh(id core.Identity) error {
	return c.store.Set(freshKeyPrefix+id, freshMarker)
}

func (c *LocalAuthorityCache) IsFresh(id core.Identity) bool {
	v, err := c.store.Get(freshKeyPrefix + id)
	return err == nil && v == freshMarker
}

func (c *LocalAuthorityCache) ClearFreshness(id core.Identity) error {
	err := c.store.Delete(freshKeyPrefix + id)
	if errors.Is(err, core.ErrCacheNotFound) {
		return nil
	}
	return err
}
