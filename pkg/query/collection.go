package query

import "context"

// Collection walks a query result page by page. Unlike Cursor it never
// fetches on its own: each Next call issues exactly one request, and the
// caller may resume from any continuation token. A Collection is not safe
// for concurrent use.
type Collection[T any] struct {
	engine   *engine
	pageSize int
	target   Target

	initial      bool
	nextToken    string
	responseType Type
}

// NewCollection creates a page-level cursor for a SQL-like query bound to
// target.
func NewCollection[T any](query string, pageSize int, typ Type, target Target, opts ...Option) (*Collection[T], error) {
	return newCollection[T](query, true, pageSize, typ, target, opts)
}

// NewPlainCollection creates a page-level cursor for a query expressed by
// the target URL alone.
func NewPlainCollection[T any](pageSize int, typ Type, target Target, opts ...Option) (*Collection[T], error) {
	return newCollection[T]("", false, pageSize, typ, target, opts)
}

func newCollection[T any](text string, sql bool, pageSize int, typ Type, target Target, opts []Option) (*Collection[T], error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	e, err := newEngine(text, sql, pageSize, typ, opts)
	if err != nil {
		return nil, err
	}
	return &Collection[T]{
		engine:       e,
		pageSize:     pageSize,
		target:       target,
		initial:      true,
		responseType: TypeUnknown,
	}, nil
}

// HasNext is true until the first page has been fetched, and afterwards
// true only if the last page carried a continuation token.
func (c *Collection[T]) HasNext() bool {
	if c.initial {
		return true
	}
	return c.nextToken != ""
}

// Next fetches the next page using the stored page size and token.
// It returns nil, nil once the query is complete.
func (c *Collection[T]) Next(ctx context.Context) (*Page[T], error) {
	return c.NextWith(ctx, Options{PageSize: c.pageSize})
}

// NextWith fetches the next page with per-call overrides. A token in opts
// takes precedence over the stored one; with neither, the query restarts
// from the beginning. It returns nil, nil once the query is complete.
func (c *Collection[T]) NextWith(ctx context.Context, opts Options) (*Page[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !c.HasNext() {
		return nil, nil
	}

	token := opts.ContinuationToken
	if token == "" {
		token = c.nextToken
	}

	res, err := fetchPage[T](ctx, c.engine, c.target, opts.PageSize, token)
	if err != nil {
		return nil, err
	}

	c.nextToken = res.token
	c.responseType = res.responseType
	c.initial = false

	return &Page[T]{items: res.items, continuationToken: res.token}, nil
}

// PageSize returns the collection's default page size.
func (c *Collection[T]) PageSize() int { return c.pageSize }

// Type returns the requested query type.
func (c *Collection[T]) Type() Type { return c.engine.typ }

// ResponseType returns the type declared by the last accepted page.
func (c *Collection[T]) ResponseType() Type { return c.responseType }

// ContinuationToken returns the token of the last accepted page.
func (c *Collection[T]) ContinuationToken() string { return c.nextToken }
