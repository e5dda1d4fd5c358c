package mcpsrv

import (
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/internal/mcp/tools"
)

// CheckToolOutput reports whether Out can be returned by a tool. It rejects
// json.RawMessage fields (client.MethodResult payloads, raw query items),
// query pages and cursors, and nil slices that would encode as null. WithTool
// and WithDepsTool run it at registration and panic on failure; call it from
// a unit test to catch the problem earlier.
func CheckToolOutput[Out any]() error {
	return tools.CheckOutputSchema[Out]()
}

// ToAny converts a service value (a client.Twin, a raw query item) to the
// generic form tool outputs carry.
func ToAny(v any) (any, error) {
	return tools.ToAny(v)
}

func addTool[In, Out any](srv *mcp.Server, t *mcp.Tool, h mcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
