package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeIoTHubError   = "IOTHUB_ERROR"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeProtocolError = "PROTOCOL_ERROR"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapServiceError converts client and query errors to a coded error.
func WrapServiceError(err error) error {
	if err == nil {
		return nil
	}

	coded := classify(err)

	slog.Warn("iothub service error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

func classify(err error) *CodedError {
	var apiErr *client.APIError
	var netErr net.Error

	switch {
	case errors.As(err, &apiErr):
		code := ErrCodeIoTHubError
		if apiErr.StatusCode == http.StatusNotFound {
			code = ErrCodeNotFound
		}
		return &CodedError{Code: code, Message: apiErr.Message, Cause: err}
	case errors.Is(err, query.ErrInvalidArgument):
		return &CodedError{Code: ErrCodeInvalidInput, Message: "invalid query request", Cause: err}
	case errors.Is(err, query.ErrProtocol):
		return &CodedError{Code: ErrCodeProtocolError, Message: "unexpected query response", Cause: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	default:
		return &CodedError{Code: ErrCodeIoTHubError, Message: err.Error(), Cause: err}
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
