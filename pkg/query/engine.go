package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ItemValidator checks one raw item of a page before it is decoded.
type ItemValidator interface {
	ValidateItem(typ Type, item json.RawMessage) error
}

// Option configures a Cursor or Collection.
type Option func(*engine)

// WithItemValidator rejects pages containing items the validator refuses.
func WithItemValidator(v ItemValidator) Option {
	return func(e *engine) {
		e.validator = v
	}
}

// engine owns the shape of one query and implements the page protocol
// shared by Cursor and Collection.
type engine struct {
	text      string
	sql       bool
	typ       Type
	validator ItemValidator
}

func newEngine(text string, sql bool, pageSize int, typ Type, opts []Option) (*engine, error) {
	if sql {
		if err := ValidateQuery(text); err != nil {
			return nil, err
		}
	}
	if pageSize <= 0 {
		return nil, invalidArgf("page size cannot be zero or negative: %d", pageSize)
	}
	if !typ.Valid() {
		return nil, invalidArgf("cannot process a query of type %q", typ)
	}

	e := &engine{text: text, sql: sql, typ: typ}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// pageResult is a validated, decoded page. Cursor state is only updated
// from a pageResult, never from a partially processed response.
type pageResult[T any] struct {
	items        []T
	token        string
	responseType Type
}

// fetchPage issues one page request and validates the response.
func fetchPage[T any](ctx context.Context, e *engine, t Target, pageSize int, token string) (*pageResult[T], error) {
	start := time.Now()

	req, err := buildRequest(t, e.text, e.sql, pageSize, token)
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}

	resp, err := t.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s page: %w", e.typ, err)
	}

	nextToken := resp.Header.Get(HeaderContinuation)
	declared := ParseType(resp.Header.Get(HeaderItemType))
	if err := checkResponseType(e.typ, declared); err != nil {
		slog.Debug("query page rejected",
			slog.String("query_type", e.typ.String()),
			slog.String("declared_type", resp.Header.Get(HeaderItemType)),
		)
		return nil, err
	}

	items, err := decodeItems[T](resp.Body, e.typ, e.validator)
	if err != nil {
		return nil, err
	}

	slog.Debug("query page fetched",
		slog.String("query_type", e.typ.String()),
		slog.Int("page_size", pageSize),
		slog.Int("items", len(items)),
		slog.Bool("has_more", nextToken != ""),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &pageResult[T]{items: items, token: nextToken, responseType: declared}, nil
}

// checkResponseType compares the type the service declared with the one
// that was requested.
func checkResponseType(requested, declared Type) error {
	if !declared.Valid() {
		return ErrTypeNotDefined
	}
	if declared != requested {
		return fmt.Errorf("%w: requested %s, got %s", ErrTypeMismatch, requested, declared)
	}
	return nil
}
