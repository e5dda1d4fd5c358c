package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Default direct method timeouts, in seconds.
const (
	DefaultMethodResponseTimeout = 30
	DefaultMethodConnectTimeout  = 0
)

// InvokeMethod calls a direct method on a device, or on a module when
// moduleID is set, and waits for the device's answer.
func (c *Client) InvokeMethod(ctx context.Context, deviceID, moduleID string, req MethodRequest) (*MethodResult, error) {
	if deviceID == "" {
		return nil, errors.New("device id cannot be empty")
	}
	if req.MethodName == "" {
		return nil, errors.New("method name cannot be empty")
	}
	if req.ResponseTimeoutInSeconds == 0 {
		req.ResponseTimeoutInSeconds = DefaultMethodResponseTimeout
	}

	timeout := time.Duration(req.ResponseTimeoutInSeconds+req.ConnectTimeoutInSeconds) * time.Second

	var res MethodResult
	err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    methodPath(deviceID, moduleID),
		in:      req,
		out:     &res,
		timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking method %q on %q: %w", req.MethodName, twinName(deviceID, moduleID), err)
	}
	return &res, nil
}
