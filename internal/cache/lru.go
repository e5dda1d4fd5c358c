// Package cache provides caching utilities for the service client.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Token is a signed authorization value and the instant it stops being valid.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenCache provides thread-safe LRU caching for signed tokens. Keys are
// chosen by the caller and must identify both the signer and the resource.
type TokenCache struct {
	cache *lru.Cache[string, Token]
	now   func() time.Time
}

// NewTokenCache creates a new LRU cache with the specified maximum number of items.
func NewTokenCache(maxItems int) (*TokenCache, error) {
	c, err := lru.New[string, Token](maxItems)
	if err != nil {
		return nil, err
	}
	return &TokenCache{cache: c, now: time.Now}, nil
}

// Get returns the token for key if it remains valid for at least
// margin. Tokens closer to expiry are evicted.
func (c *TokenCache) Get(key string, margin time.Duration) (Token, bool) {
	tok, ok := c.cache.Get(key)
	if !ok {
		return Token{}, false
	}
	if c.now().Add(margin).Before(tok.ExpiresAt) {
		return tok, true
	}
	c.cache.Remove(key)
	return Token{}, false
}

// Put adds or replaces the token for key.
func (c *TokenCache) Put(key string, tok Token) {
	c.cache.Add(key, tok)
}

// Len returns the current number of items in the cache.
func (c *TokenCache) Len() int {
	return c.cache.Len()
}
