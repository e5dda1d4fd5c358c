package mcpsrv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/iothub-service/internal/config"
	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:            "error",
		LogFormat:           "text",
		DefaultToolPageSize: 10,
		MaxToolItems:        50,
	}
}

func newHubServer(t *testing.T) *client.Client {
	t.Helper()
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(query.HeaderItemType, "twin")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"deviceId":"d1"}]`)
	}))
	t.Cleanup(hub.Close)
	return client.New("hub.example.net",
		client.WithBaseURL(hub.URL),
		client.WithBaseTimeout(5*time.Second),
	)
}

func TestNewServer_RequiresConnectionString(t *testing.T) {
	_, err := NewServer(WithConfig(testConfig()))
	assert.ErrorContains(t, err, "IOTHUB_CONNECTION_STRING")
}

func TestNewServer_WithClient(t *testing.T) {
	srv, err := NewServer(
		WithConfig(testConfig()),
		WithClient(newHubServer(t)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	deps := srv.Deps()
	require.NotNil(t, deps.Client)
	assert.NotNil(t, deps.JQ)
	assert.NotNil(t, deps.Schemas)
	assert.NotNil(t, deps.Metrics)
}

func TestNewServer_ToolCallRoundTrip(t *testing.T) {
	srv, err := NewServer(
		WithConfig(testConfig()),
		WithClient(newHubServer(t)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	_, err = srv.internal.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	mcpClient := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	session, err := mcpClient.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "iothub_query_twins",
		Arguments: map[string]any{"query": "SELECT * FROM devices"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"d1"`)

	rec := httptest.NewRecorder()
	srv.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `iothub_mcp_tool_calls_total{outcome="ok",tool="iothub_query_twins"} 1`)
}

func TestWithDepsTool(t *testing.T) {
	type countInput struct{}
	type countOutput struct {
		Host string `json:"host"`
	}

	srv, err := NewServer(
		WithConfig(testConfig()),
		WithClient(newHubServer(t)),
		WithoutBuiltinTools(),
		WithDepsTool(&sdkmcp.Tool{Name: "hub_host", Description: "Hub host"},
			func(d *Deps) func(context.Context, *sdkmcp.CallToolRequest, countInput) (*sdkmcp.CallToolResult, countOutput, error) {
				return func(ctx context.Context, req *sdkmcp.CallToolRequest, in countInput) (*sdkmcp.CallToolResult, countOutput, error) {
					return nil, countOutput{Host: d.Client.Host()}, nil
				}
			}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
}

func TestCheckToolOutput(t *testing.T) {
	type methodOut struct {
		Result *client.MethodResult `json:"result,omitempty"`
	}
	err := CheckToolOutput[methodOut]()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.MethodResult")

	type census struct {
		Versions map[string]int `json:"versions,omitempty"`
		Twins    []any          `json:"twins,omitzero"`
	}
	assert.NoError(t, CheckToolOutput[census]())
}

func TestWithTool_PanicsOnRawOutput(t *testing.T) {
	type rawOut struct {
		Items []json.RawMessage `json:"items,omitzero"`
	}
	handler := func(ctx context.Context, req *sdkmcp.CallToolRequest, in struct{}) (*sdkmcp.CallToolResult, rawOut, error) {
		return nil, rawOut{}, nil
	}
	assert.Panics(t, func() {
		_, _ = NewServer(
			WithConfig(testConfig()),
			WithClient(newHubServer(t)),
			WithTool(&sdkmcp.Tool{Name: "raw_items"}, handler),
		)
	})
}

func TestToAny_RawItem(t *testing.T) {
	v, err := ToAny(json.RawMessage(`{"status":"enabled","n":3}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "enabled", "n": 3.0}, v)
}
