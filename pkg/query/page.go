package query

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is one page of a query result together with the token that resumes
// the query after it. A Page is not modified after construction.
type Page[T any] struct {
	items             []T
	continuationToken string
}

// NewPage wraps already materialized items. items must not be nil; use an
// empty slice for an empty page.
func NewPage[T any](items []T, continuationToken string) (*Page[T], error) {
	if items == nil {
		return nil, invalidArgf("page items cannot be nil")
	}
	return &Page[T]{items: items, continuationToken: continuationToken}, nil
}

// ParsePage decodes a page document (a JSON array) into items.
func ParsePage[T any](doc []byte, continuationToken string) (*Page[T], error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, invalidArgf("page document cannot be empty")
	}
	items, err := decodeItems[T](doc, TypeUnknown, nil)
	if err != nil {
		return nil, err
	}
	return &Page[T]{items: items, continuationToken: continuationToken}, nil
}

// Items returns the page's items in server order.
func (p *Page[T]) Items() []T {
	return p.items
}

// Len returns the number of items on the page.
func (p *Page[T]) Len() int {
	return len(p.items)
}

// ContinuationToken returns the token for the next page, or "" if this was
// the last one.
func (p *Page[T]) ContinuationToken() string {
	return p.continuationToken
}

// HasMore reports whether the service announced another page.
func (p *Page[T]) HasMore() bool {
	return p.continuationToken != ""
}

// Sequence is a forward-only, non-restartable walk over one page's items.
type Sequence[T any] struct {
	items []T
	pos   int
}

func newSequence[T any](items []T) *Sequence[T] {
	return &Sequence[T]{items: items}
}

// HasNext reports whether an unconsumed item remains.
func (s *Sequence[T]) HasNext() bool {
	return s.pos < len(s.items)
}

// Next returns the next item, or ErrExhausted.
func (s *Sequence[T]) Next() (T, error) {
	if !s.HasNext() {
		var zero T
		return zero, ErrExhausted
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

// Remaining returns the number of unconsumed items.
func (s *Sequence[T]) Remaining() int {
	return len(s.items) - s.pos
}

// decodeItems parses a JSON array, runs the validator over every raw item
// and decodes each into T. Any failure rejects the whole page.
func decodeItems[T any](doc []byte, typ Type, v ItemValidator) ([]T, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, protocolf("empty page document")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding page: %w", ErrProtocol, err)
	}

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		if v != nil {
			if err := v.ValidateItem(typ, r); err != nil {
				return nil, fmt.Errorf("%w: item %d: %w", ErrProtocol, i, err)
			}
		}
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("%w: decoding item %d: %w", ErrProtocol, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
