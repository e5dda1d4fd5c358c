package mcp

import (
	"context"
	"errors"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolCall struct {
	name string
	err  error
}

type recordingToolObserver struct {
	calls []toolCall
}

func (o *recordingToolObserver) ObserveTool(tool string, err error) {
	o.calls = append(o.calls, toolCall{name: tool, err: err})
}

func callTool(name string) *sdkmcp.CallToolRequest {
	return &sdkmcp.CallToolRequest{Params: &sdkmcp.CallToolParamsRaw{Name: name}}
}

func TestToolMetricsMiddleware(t *testing.T) {
	obs := &recordingToolObserver{}
	results := []sdkmcp.Result{
		&sdkmcp.CallToolResult{},
		&sdkmcp.CallToolResult{IsError: true},
	}
	i := 0
	next := func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		r := results[i]
		i++
		return r, nil
	}
	h := ToolMetricsMiddleware(obs)(next)

	_, err := h(context.Background(), "tools/call", callTool("iothub_get_twin"))
	require.NoError(t, err)
	_, err = h(context.Background(), "tools/call", callTool("iothub_query_twins"))
	require.NoError(t, err)

	require.Len(t, obs.calls, 2)
	assert.Equal(t, "iothub_get_twin", obs.calls[0].name)
	assert.NoError(t, obs.calls[0].err)
	assert.Equal(t, "iothub_query_twins", obs.calls[1].name)
	assert.Error(t, obs.calls[1].err)
}

func TestToolMetricsMiddleware_PassesThroughErrors(t *testing.T) {
	obs := &recordingToolObserver{}
	boom := errors.New("boom")
	next := func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		return nil, boom
	}

	_, err := ToolMetricsMiddleware(obs)(next)(context.Background(), "tools/call", callTool("iothub_get_job"))
	assert.ErrorIs(t, err, boom)
	require.Len(t, obs.calls, 1)
	assert.ErrorIs(t, obs.calls[0].err, boom)
}

func TestToolMetricsMiddleware_IgnoresOtherMethods(t *testing.T) {
	obs := &recordingToolObserver{}
	next := func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		return nil, nil
	}

	_, err := ToolMetricsMiddleware(obs)(next)(context.Background(), "prompts/list", &sdkmcp.ListPromptsRequest{})
	require.NoError(t, err)
	assert.Empty(t, obs.calls)
}
