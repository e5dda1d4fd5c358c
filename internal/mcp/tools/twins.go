package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/internal/compact"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/pkg/client"
)

// GetTwinInput is the input for iothub_get_twin.
type GetTwinInput struct {
	DeviceID string `json:"device_id" jsonschema:"Device ID"`
	ModuleID string `json:"module_id,omitempty" jsonschema:"Module ID (omit for the device twin)"`
	JQ       string `json:"jq,omitempty" jsonschema:"Optional jq expression applied to the twin"`
	Compact  bool   `json:"compact,omitempty" jsonschema:"Drop $metadata and trim long arrays and strings"`
}

// GetTwinOutput is the output for iothub_get_twin.
type GetTwinOutput struct {
	Twin any `json:"twin"`
}

// ToolGetTwin returns the iothub_get_twin handler.
func ToolGetTwin(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetTwinInput) (*sdkmcp.CallToolResult, GetTwinOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetTwinInput) (*sdkmcp.CallToolResult, GetTwinOutput, error) {
		if input.DeviceID == "" {
			return nil, GetTwinOutput{}, ErrInvalidInput("device_id is required")
		}

		twin, err := d.Client.GetTwin(ctx, input.DeviceID, input.ModuleID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, GetTwinOutput{}, ErrNotFound("twin", input.DeviceID)
			}
			return nil, GetTwinOutput{}, WrapServiceError(err)
		}

		v, err := ToAny(twin)
		if err != nil {
			return nil, GetTwinOutput{}, err
		}
		if input.JQ != "" {
			res, err := d.JQ.Apply([]any{v}, input.JQ, jq.Options{Labels: []string{input.DeviceID}})
			if err != nil {
				return nil, GetTwinOutput{}, ErrInvalidInput(err.Error())
			}
			if len(res.Errors) > 0 {
				return nil, GetTwinOutput{}, ErrInvalidInput(res.Errors[0])
			}
			if len(res.Values) == 1 {
				v = res.Values[0]
			} else {
				v = res.Values
			}
		}

		if input.Compact {
			v = compact.Value(v, compact.DefaultOptions())
		}

		return nil, GetTwinOutput{Twin: v}, nil
	}
}

// GetTwinsInput is the input for iothub_get_twins.
type GetTwinsInput struct {
	DeviceIDs []string `json:"device_ids" jsonschema:"Device IDs to fetch"`
	Compact   bool     `json:"compact,omitempty" jsonschema:"Drop $metadata and trim long arrays and strings"`
}

// GetTwinsOutput is the output for iothub_get_twins.
type GetTwinsOutput struct {
	Twins   []any    `json:"twins,omitzero"`
	Missing []string `json:"missing,omitzero"`
}

// ToolGetTwins returns the iothub_get_twins handler.
func ToolGetTwins(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetTwinsInput) (*sdkmcp.CallToolResult, GetTwinsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetTwinsInput) (*sdkmcp.CallToolResult, GetTwinsOutput, error) {
		if len(input.DeviceIDs) == 0 {
			return nil, GetTwinsOutput{}, ErrInvalidInput("device_ids is required")
		}
		if limit := d.Config.MaxToolItems; limit > 0 && len(input.DeviceIDs) > limit {
			return nil, GetTwinsOutput{}, ErrInvalidInput("too many device_ids")
		}

		twins, err := d.Client.GetTwins(ctx, input.DeviceIDs)
		if err != nil {
			return nil, GetTwinsOutput{}, WrapServiceError(err)
		}

		out := GetTwinsOutput{
			Twins:   make([]any, 0, len(twins)),
			Missing: make([]string, 0),
		}
		for i, twin := range twins {
			if twin == nil {
				out.Missing = append(out.Missing, input.DeviceIDs[i])
				continue
			}
			v, err := ToAny(twin)
			if err != nil {
				return nil, GetTwinsOutput{}, err
			}
			if input.Compact {
				v = compact.Value(v, compact.DefaultOptions())
			}
			out.Twins = append(out.Twins, v)
		}

		return nil, out, nil
	}
}
