package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSASAuthorizer_Signs(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("policy-secret"))
	a, err := NewSASAuthorizer("iothubowner", key)
	require.NoError(t, err)

	now := time.Now()
	a.now = func() time.Time { return now }

	tok, err := a.Authorize(context.Background(), testHost)
	require.NoError(t, err)

	rest, ok := strings.CutPrefix(tok, "SharedAccessSignature ")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(rest, "sr="), "fields start with sr: %s", rest)

	fields, err := url.ParseQuery(rest)
	require.NoError(t, err)
	assert.Equal(t, testHost, fields.Get("sr"))
	assert.Equal(t, "iothubowner", fields.Get("skn"))

	se := strconv.FormatInt(now.Add(DefaultSASTTL).Unix(), 10)
	assert.Equal(t, se, fields.Get("se"))

	mac := hmac.New(sha256.New, []byte("policy-secret"))
	mac.Write([]byte(url.QueryEscape(testHost) + "\n" + se))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), fields.Get("sig"))
}

func TestSASAuthorizer_CachesUntilRenewMargin(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("k"))
	a, err := NewSASAuthorizer("svc", key)
	require.NoError(t, err)

	first, err := a.Authorize(context.Background(), "cache.example.net")
	require.NoError(t, err)
	again, err := a.Authorize(context.Background(), "cache.example.net")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Tokens signed an hour in the past expire now, inside the margin.
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := a.Authorize(context.Background(), "stale.example.net")
	require.NoError(t, err)
	fresh, err := a.Authorize(context.Background(), "stale.example.net")
	require.NoError(t, err)
	assert.NotEmpty(t, stale)
	assert.NotEmpty(t, fresh)
	assert.Equal(t, 2, a.tokens.Len())
}

func TestSASAuthorizer_SharedCacheKeepsSignersApart(t *testing.T) {
	tokens, err := NewTokenCache(8)
	require.NoError(t, err)

	read, err := NewSASAuthorizer("registryRead", base64.StdEncoding.EncodeToString([]byte("read-key")), WithTokenCache(tokens))
	require.NoError(t, err)
	write, err := NewSASAuthorizer("serviceWrite", base64.StdEncoding.EncodeToString([]byte("write-key")), WithTokenCache(tokens))
	require.NoError(t, err)
	secondary, err := NewSASAuthorizer("registryRead", base64.StdEncoding.EncodeToString([]byte("secondary-key")), WithTokenCache(tokens))
	require.NoError(t, err)

	skn := func(tok string) string {
		fields, err := url.ParseQuery(strings.TrimPrefix(tok, "SharedAccessSignature "))
		require.NoError(t, err)
		return fields.Get("skn")
	}

	readTok, err := read.Authorize(context.Background(), testHost)
	require.NoError(t, err)
	writeTok, err := write.Authorize(context.Background(), testHost)
	require.NoError(t, err)
	secondaryTok, err := secondary.Authorize(context.Background(), testHost)
	require.NoError(t, err)

	assert.Equal(t, "registryRead", skn(readTok))
	assert.Equal(t, "serviceWrite", skn(writeTok))
	assert.Equal(t, "registryRead", skn(secondaryTok))
	assert.NotEqual(t, readTok, secondaryTok, "different keys must not share a token")
	assert.Equal(t, 3, tokens.Len())

	again, err := read.Authorize(context.Background(), testHost)
	require.NoError(t, err)
	assert.Equal(t, readTok, again)
}

func TestNewSASAuthorizer_Invalid(t *testing.T) {
	_, err := NewSASAuthorizer("svc", "not base64!")
	assert.Error(t, err)

	_, err = NewSASAuthorizer("svc", base64.StdEncoding.EncodeToString([]byte("k")), WithTokenTTL(time.Minute))
	assert.Error(t, err)
}
