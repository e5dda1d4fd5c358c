package query

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("select * from devices"))
	assert.NoError(t, ValidateQuery("SELECT deviceId FROM devices WHERE status = 'enabled'"))

	for _, q := range []string{"", "   ", "from devices", "select *", "delete devices", "select \xff from devices"} {
		err := ValidateQuery(q)
		assert.ErrorIs(t, err, ErrInvalidArgument, "query %q", q)
	}
}

func TestBuildRequest_SQLWithToken(t *testing.T) {
	target := Target{Method: http.MethodPost, URL: "https://hub/devices/query", Timeout: 5 * time.Second}

	req, err := buildRequest(target, "select * from devices", true, 25, "tok1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://hub/devices/query", req.URL)
	assert.Equal(t, 5*time.Second, req.Timeout)
	assert.Equal(t, "25", req.Header.Get(HeaderPageSize))
	assert.Equal(t, "tok1", req.Header.Get(HeaderContinuation))
	assert.JSONEq(t, `{"query":"select * from devices"}`, string(req.Body))
}

func TestBuildRequest_PlainWithoutToken(t *testing.T) {
	target := Target{Method: http.MethodGet, URL: "https://hub/jobs/v2/query"}

	req, err := buildRequest(target, "", false, 100, "")
	require.NoError(t, err)

	assert.Equal(t, "100", req.Header.Get(HeaderPageSize))
	assert.Empty(t, req.Header.Values(HeaderContinuation))
	assert.Empty(t, req.Body)
}

func TestTarget_Validate(t *testing.T) {
	f := FetcherFunc(nil)
	assert.NoError(t, Target{Fetcher: f, Method: "POST", URL: "u"}.Validate())
	assert.ErrorIs(t, Target{Method: "POST", URL: "u"}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Target{Fetcher: f, URL: "u"}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Target{Fetcher: f, Method: "POST"}.Validate(), ErrInvalidArgument)
}

func TestNewOptions(t *testing.T) {
	opts, err := NewOptions("tok", 10)
	require.NoError(t, err)
	assert.Equal(t, "tok", opts.ContinuationToken)
	assert.Equal(t, 10, opts.PageSize)

	_, err = NewOptions("", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewOptions("tok", -3)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, DefaultPageSize, DefaultOptions().PageSize)
}
