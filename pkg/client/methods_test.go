package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeMethod(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/twins/d1/modules/edgeAgent/methods", r.URL.Path)

		var req MethodRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ping", req.MethodName)
		assert.Equal(t, DefaultMethodResponseTimeout, req.ResponseTimeoutInSeconds)
		assert.JSONEq(t, `{"n":1}`, string(req.Payload))

		writeJSON(w, http.StatusOK, map[string]any{"status": 200, "payload": map[string]any{"pong": true}})
	})

	res, err := c.InvokeMethod(context.Background(), "d1", "edgeAgent", MethodRequest{
		MethodName: "ping",
		Payload:    json.RawMessage(`{"n":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.JSONEq(t, `{"pong":true}`, string(res.Payload))
}

func TestInvokeMethod_DeviceOffline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"Message": "ErrorCode:DeviceNotOnline;Timed out waiting for device to connect."})
	})

	_, err := c.InvokeMethod(context.Background(), "d1", "", MethodRequest{MethodName: "ping"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invoking method "ping" on "d1"`)
}

func TestInvokeMethod_Validation(t *testing.T) {
	c := New(testHost)
	_, err := c.InvokeMethod(context.Background(), "", "", MethodRequest{MethodName: "m"})
	assert.Error(t, err)
	_, err = c.InvokeMethod(context.Background(), "d", "", MethodRequest{})
	assert.Error(t, err)
}
