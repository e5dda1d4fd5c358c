package query

import (
	"context"
	"errors"
	"iter"
	"log/slog"
)

// Cursor walks a query result item by item and fetches the next page when
// the current one is exhausted. A Cursor is not safe for concurrent use.
type Cursor[T any] struct {
	engine   *engine
	pageSize int

	target       Target
	executed     bool
	nextToken    string
	responseType Type
	seq          *Sequence[T]
	pages        int
}

// NewCursor creates a cursor for a SQL-like query.
func NewCursor[T any](query string, pageSize int, typ Type, opts ...Option) (*Cursor[T], error) {
	e, err := newEngine(query, true, pageSize, typ, opts)
	if err != nil {
		return nil, err
	}
	return &Cursor[T]{engine: e, pageSize: pageSize, responseType: TypeUnknown}, nil
}

// NewPlainCursor creates a cursor for a query expressed by the target URL
// alone. Its requests carry no body.
func NewPlainCursor[T any](pageSize int, typ Type, opts ...Option) (*Cursor[T], error) {
	e, err := newEngine("", false, pageSize, typ, opts)
	if err != nil {
		return nil, err
	}
	return &Cursor[T]{engine: e, pageSize: pageSize, responseType: TypeUnknown}, nil
}

// Execute sends the first page request to target and remembers target so
// later pages can be fetched with the same parameters. Calling it again
// restarts the query.
func (c *Cursor[T]) Execute(ctx context.Context, target Target) error {
	if err := target.Validate(); err != nil {
		return err
	}
	return c.fetch(ctx, target, "")
}

// HasNext reports whether another item is available, fetching further pages
// while the current one is exhausted and the service announced more.
// Repeated calls without Next do not advance the cursor.
//
// Empty pages that carry a token are skipped with no fixed limit; ctx bounds
// how long the cursor keeps following them.
func (c *Cursor[T]) HasNext(ctx context.Context) (bool, error) {
	if !c.executed {
		return false, ErrNotExecuted
	}
	skipped := 0
	for !c.seq.HasNext() {
		if c.nextToken == "" {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := c.fetch(ctx, c.target, c.nextToken); err != nil {
			return false, err
		}
		if !c.seq.HasNext() && c.nextToken != "" {
			skipped++
			slog.Debug("query page empty, following continuation",
				slog.String("query_type", c.engine.typ.String()),
				slog.Int("empty_pages", skipped),
				slog.Int("pages", c.pages),
			)
		}
	}
	return true, nil
}

// Next returns the next item. It returns ErrExhausted when the query has no
// more items.
func (c *Cursor[T]) Next(ctx context.Context) (T, error) {
	var zero T
	ok, err := c.HasNext(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	return c.seq.Next()
}

// All returns an iterator over the remaining items. Iteration stops after
// the first error, which is yielded with a zero item.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := c.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// SetPageSize changes the page size used for the following page requests.
func (c *Cursor[T]) SetPageSize(pageSize int) error {
	if pageSize <= 0 {
		return invalidArgf("page size cannot be zero or negative: %d", pageSize)
	}
	c.pageSize = pageSize
	return nil
}

// PageSize returns the page size used for the next request.
func (c *Cursor[T]) PageSize() int { return c.pageSize }

// Type returns the requested query type.
func (c *Cursor[T]) Type() Type { return c.engine.typ }

// ResponseType returns the type declared by the last accepted page, or
// TypeUnknown before the first one.
func (c *Cursor[T]) ResponseType() Type { return c.responseType }

// ContinuationToken returns the token of the last accepted page.
func (c *Cursor[T]) ContinuationToken() string { return c.nextToken }

// Pages returns the number of pages fetched so far.
func (c *Cursor[T]) Pages() int { return c.pages }

// fetch requests one page and, only if it is valid, replaces the cursor's
// page state with it.
func (c *Cursor[T]) fetch(ctx context.Context, target Target, token string) error {
	res, err := fetchPage[T](ctx, c.engine, target, c.pageSize, token)
	if err != nil {
		return err
	}

	c.target = target
	c.executed = true
	c.nextToken = res.token
	c.responseType = res.responseType
	c.seq = newSequence(res.items)
	c.pages++
	return nil
}
