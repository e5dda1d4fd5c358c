package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/usestring/iothub-service/internal/cache"
)

// Authorizer returns the Authorization header value for requests to resource.
type Authorizer interface {
	Authorize(ctx context.Context, resource string) (string, error)
}

// StaticAuthorizer always returns the same SharedAccessSignature.
type StaticAuthorizer string

// Authorize implements Authorizer.
func (s StaticAuthorizer) Authorize(context.Context, string) (string, error) {
	return string(s), nil
}

// Defaults for SASAuthorizer.
const (
	DefaultSASTTL        = time.Hour
	DefaultRenewMargin   = 5 * time.Minute
	DefaultTokenCacheCap = 64
)

// TokenCache holds signed tokens. One cache may be shared by several
// authorizers; entries are keyed by policy, key and resource.
type TokenCache = cache.TokenCache

// NewTokenCache creates a token cache holding up to maxItems tokens.
func NewTokenCache(maxItems int) (*TokenCache, error) {
	return cache.NewTokenCache(maxItems)
}

// SASAuthorizer signs shared access signatures from a policy key and caches
// them until they are about to expire.
type SASAuthorizer struct {
	keyName string
	key     []byte
	ttl     time.Duration
	margin  time.Duration
	keyID   string
	tokens  *TokenCache
	now     func() time.Time
	group   singleflight.Group
}

// SASOption configures a SASAuthorizer.
type SASOption func(*SASAuthorizer)

// WithTokenTTL sets the lifetime of signed tokens.
func WithTokenTTL(d time.Duration) SASOption {
	return func(a *SASAuthorizer) {
		a.ttl = d
	}
}

// WithTokenCache shares a token cache between authorizers.
func WithTokenCache(c *TokenCache) SASOption {
	return func(a *SASAuthorizer) {
		a.tokens = c
	}
}

// NewSASAuthorizer creates an authorizer for the named policy. key is the
// base64 encoded policy key.
func NewSASAuthorizer(keyName, key string, opts ...SASOption) (*SASAuthorizer, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decoding shared access key: %w", err)
	}
	a := &SASAuthorizer{
		keyName: keyName,
		key:     raw,
		keyID:   keyFingerprint(raw),
		ttl:     DefaultSASTTL,
		margin:  DefaultRenewMargin,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tokens == nil {
		a.tokens, err = cache.NewTokenCache(DefaultTokenCacheCap)
		if err != nil {
			return nil, err
		}
	}
	if a.ttl <= a.margin {
		return nil, fmt.Errorf("token ttl %s must exceed renew margin %s", a.ttl, a.margin)
	}
	return a, nil
}

// Authorize returns a cached token for resource or signs a new one.
func (a *SASAuthorizer) Authorize(_ context.Context, resource string) (string, error) {
	ck := a.cacheKey(resource)
	if tok, ok := a.tokens.Get(ck, a.margin); ok {
		return tok.Value, nil
	}

	v, err, _ := a.group.Do(resource, func() (any, error) {
		tok := a.sign(resource, a.now().Add(a.ttl))
		a.tokens.Put(ck, tok)
		return tok.Value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *SASAuthorizer) cacheKey(resource string) string {
	return a.keyName + "/" + a.keyID + "@" + resource
}

// keyFingerprint identifies a policy key without exposing it.
func keyFingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}

// sign builds SharedAccessSignature sr=&sig=&se=&skn= for resource.
func (a *SASAuthorizer) sign(resource string, expiry time.Time) cache.Token {
	sr := url.QueryEscape(resource)
	se := strconv.FormatInt(expiry.Unix(), 10)

	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(sr + "\n" + se))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return cache.Token{
		Value: fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s&skn=%s",
			sr, url.QueryEscape(sig), se, url.QueryEscape(a.keyName)),
		ExpiresAt: expiry,
	}
}
