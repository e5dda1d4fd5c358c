package tools

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/pkg/client"
)

// InvokeMethodInput is the input for iothub_invoke_method.
type InvokeMethodInput struct {
	DeviceID               string `json:"device_id" jsonschema:"Target device ID"`
	ModuleID               string `json:"module_id,omitempty" jsonschema:"Target module ID (omit to call the device)"`
	MethodName             string `json:"method_name" jsonschema:"Name of the direct method"`
	Payload                any    `json:"payload,omitempty" jsonschema:"JSON payload passed to the method"`
	ResponseTimeoutSeconds int    `json:"response_timeout_seconds,omitempty" jsonschema:"Seconds to wait for the device to answer (default: 30)"`
	ConnectTimeoutSeconds  int    `json:"connect_timeout_seconds,omitempty" jsonschema:"Seconds to wait for the device to connect (default: 0)"`
}

// InvokeMethodOutput is the output for iothub_invoke_method.
type InvokeMethodOutput struct {
	Status  int `json:"status"`
	Payload any `json:"payload,omitempty"`
}

// ToolInvokeMethod returns the iothub_invoke_method handler.
func ToolInvokeMethod(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input InvokeMethodInput) (*sdkmcp.CallToolResult, InvokeMethodOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input InvokeMethodInput) (*sdkmcp.CallToolResult, InvokeMethodOutput, error) {
		if input.DeviceID == "" || input.MethodName == "" {
			return nil, InvokeMethodOutput{}, ErrInvalidInput("device_id and method_name are required")
		}

		method := client.MethodRequest{
			MethodName:               input.MethodName,
			ResponseTimeoutInSeconds: input.ResponseTimeoutSeconds,
			ConnectTimeoutInSeconds:  input.ConnectTimeoutSeconds,
		}
		if input.Payload != nil {
			b, err := json.Marshal(input.Payload)
			if err != nil {
				return nil, InvokeMethodOutput{}, ErrInvalidInput(fmt.Sprintf("payload is not JSON: %v", err))
			}
			method.Payload = b
		}

		res, err := d.Client.InvokeMethod(ctx, input.DeviceID, input.ModuleID, method)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, InvokeMethodOutput{}, ErrNotFound("device", input.DeviceID)
			}
			return nil, InvokeMethodOutput{}, WrapServiceError(err)
		}

		payload, err := ToAny(res.Payload)
		if err != nil {
			return nil, InvokeMethodOutput{}, err
		}
		return nil, InvokeMethodOutput{Status: res.Status, Payload: payload}, nil
	}
}
