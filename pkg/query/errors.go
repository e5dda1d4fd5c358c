package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed construction parameters
	// or per-call options. It is always raised before any network access.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProtocol is returned when a page response violates the query
	// protocol. Retrying the same request does not help.
	ErrProtocol = errors.New("query protocol error")

	// ErrTypeNotDefined is returned when the service does not declare a
	// known item type for a page.
	ErrTypeNotDefined = fmt.Errorf("%w: query response type is not defined by the service", ErrProtocol)

	// ErrTypeMismatch is returned when the declared item type differs from
	// the requested one.
	ErrTypeMismatch = fmt.Errorf("%w: query response does not match query request", ErrProtocol)

	// ErrExhausted is returned by Cursor.Next when no items remain.
	ErrExhausted = errors.New("no more items in query")

	// ErrNotExecuted is returned when a cursor is iterated before its
	// first request succeeded.
	ErrNotExecuted = errors.New("query has not been executed")
)

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func protocolf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
