// Package prompts contains MCP prompt implementations for IoT hub fleet queries.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	HubName         string
	DefaultPageSize int
	MaxItems        int
	SchemasEnabled  bool
}
