package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/iothub-service/pkg/query"
)

const testHost = "hub.example.net"

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL(srv.URL),
		WithAuthorizer(StaticAuthorizer("SharedAccessSignature sr=test")),
		WithBaseTimeout(5 * time.Second),
	}
	return New(testHost, append(base, opts...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (o *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method)
	o.codes = append(o.codes, status)
}

func TestFetch_SetsServiceHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]string{"deviceId": "d1"})
	})

	req := &query.HTTPRequest{
		Method: http.MethodPost,
		URL:    c.url("/devices/query", nil),
		Header: http.Header{query.HeaderPageSize: []string{"10"}},
		Body:   []byte(`{"query":"select * from devices"}`),
	}
	resp, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SharedAccessSignature sr=test", got.Get("Authorization"))
	assert.Equal(t, "10", got.Get(query.HeaderPageSize))
	assert.NotEmpty(t, got.Get(headerRequestID))
	assert.Equal(t, "application/json; charset=utf-8", got.Get("Content-Type"))
	assert.Equal(t, userAgent, got.Get("User-Agent"))
}

func TestFetch_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"Message":          "ErrorCode:DeviceNotFound;Device d9 is not registered",
			"ExceptionMessage": "tracking id",
		})
	})

	_, err := c.GetTwin(context.Background(), "d9", "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "DeviceNotFound", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.True(t, IsNotFound(err))
}

func TestFetch_PlainTextError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetJob(context.Background(), "j1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Too Many Requests", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestFetch_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetTwin(ctx, "d1", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_ReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/twins/missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"Message": "gone"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deviceId": "d1"})
	}, WithObserver(obs))

	_, err := c.GetTwin(context.Background(), "d1", "")
	require.NoError(t, err)
	_, err = c.GetTwin(context.Background(), "missing", "")
	require.Error(t, err)

	assert.Equal(t, []string{http.MethodGet, http.MethodGet}, obs.calls)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.codes)
}

func TestURL_AppendsAPIVersion(t *testing.T) {
	c := New(testHost, WithAPIVersion("2020-09-30"))
	assert.Equal(t, "https://hub.example.net/devices/query?api-version=2020-09-30", c.url(pathDeviceQuery, nil))
	assert.Equal(t, "/twins/a%2Fb/modules/m1", twinPath("a/b", "m1"))
}

func TestNewFromConnectionString(t *testing.T) {
	c, err := NewFromConnectionString("HostName=myhub.azure-devices.net;SharedAccessSignature=SharedAccessSignature sr=x&sig=y&se=1&skn=z")
	require.NoError(t, err)
	assert.Equal(t, "myhub.azure-devices.net", c.Host())

	tok, err := c.auth.Authorize(context.Background(), c.Host())
	require.NoError(t, err)
	assert.Equal(t, "SharedAccessSignature sr=x&sig=y&se=1&skn=z", tok)

	_, err = NewFromConnectionString("SharedAccessKey=abc")
	assert.ErrorIs(t, err, ErrInvalidConnectionString)
}
