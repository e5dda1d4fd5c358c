package mcpsrv

import (
	"github.com/usestring/iothub-service/internal/config"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/internal/metrics"
	"github.com/usestring/iothub-service/internal/schema"
	"github.com/usestring/iothub-service/pkg/client"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Client  *client.Client
	Config  *config.Config
	JQ      *jq.Engine
	Schemas *schema.ItemValidator
	Metrics *metrics.Recorder
}
