package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ErrMissingCredentials is returned when the provider has no username or password
var ErrMissingCredentials = errors.New("loan system credentials are not configured")

const cacheKey = "loan-system"

// Credentials authenticate against the loan management system
type Credentials struct {
	Username string
	Password string
}

// Provider fetches credentials from their source of truth
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// EnvProvider reads credentials from two environment variables
type EnvProvider struct {
	UserKey string
	PassKey string
}

// Credentials implements Provider
func (p EnvProvider) Credentials(context.Context) (Credentials, error) {
	c := Credentials{Username: os.Getenv(p.UserKey), Password: os.Getenv(p.PassKey)}
	if c.Username == "" || c.Password == "" {
		return Credentials{}, fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, p.UserKey, p.PassKey)
	}
	return c, nil
}

// Cache keeps provider credentials for a limited time
type Cache struct {
	provider Provider
	store    *cache.Cache
	mu       sync.Mutex
	log      *logrus.Logger
}

// NewCache creates a cache refreshing from provider after ttl
func NewCache(provider Provider, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{
		provider: provider,
		store:    cache.New(ttl, 2*ttl),
		log:      log,
	}
}

// Get returns cached credentials, fetching them from the provider when absent or expired
func (c *Cache) Get(ctx context.Context) (Credentials, error) {
	if v, ok := c.store.Get(cacheKey); ok {
		return v.(Credentials), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.store.Get(cacheKey); ok {
		return v.(Credentials), nil
	}

	creds, err := c.provider.Credentials(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to fetch credentials: %w", err)
	}
	c.store.Set(cacheKey, creds, cache.DefaultExpiration)
	c.log.Debug("Loan system credentials refreshed")
	return creds, nil
}

// Invalidate drops cached credentials so the next Get refetches them
func (c *Cache) Invalidate() {
	c.store.Delete(cacheKey)
	c.log.Info("Loan system credentials invalidated")
}
