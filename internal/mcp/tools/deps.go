package tools

import (
	"github.com/usestring/iothub-service/internal/config"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/internal/schema"
	"github.com/usestring/iothub-service/pkg/client"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Client  *client.Client
	Config  *config.Config
	JQ      *jq.Engine
	Schemas *schema.ItemValidator
}

// pageSize resolves a requested tool page size against the configured
// default and cap.
func (d *Deps) pageSize(requested int) int {
	n := requested
	if n <= 0 {
		n = d.Config.DefaultToolPageSize
	}
	if d.Config.MaxToolItems > 0 && n > d.Config.MaxToolItems {
		n = d.Config.MaxToolItems
	}
	return n
}
