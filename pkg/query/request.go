package query

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Wire header names.
const (
	HeaderContinuation = "x-ms-continuation"
	HeaderItemType     = "x-ms-item-type"
	HeaderPageSize     = "x-ms-max-item-count"
)

// HTTPRequest is one page request handed to a Fetcher.
// Header carries everything the query layer needs on the wire; fetchers add
// their own authorization and correlation headers on top.
type HTTPRequest struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// HTTPResponse is the outcome of a successful round trip.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs one request/response round trip. Implementations return
// an error for transport failures and for server-reported failures.
type Fetcher interface {
	Fetch(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return f(ctx, req)
}

// Target is the request template a cursor replays for every page: where to
// send the request, through which fetcher, and with what timeout.
type Target struct {
	Fetcher Fetcher
	Method  string
	URL     string
	Timeout time.Duration
}

// Validate checks that the target can issue requests.
func (t Target) Validate() error {
	if t.Fetcher == nil || t.URL == "" || t.Method == "" {
		return invalidArgf("fetcher, url and method cannot be empty")
	}
	return nil
}

// queryDocument is the request body for SQL queries.
type queryDocument struct {
	Query string `json:"query"`
}

// ValidateQuery checks that text looks like a selection over a source.
func ValidateQuery(text string) error {
	if strings.TrimSpace(text) == "" || !utf8.ValidString(text) {
		return invalidArgf("the provided query is not valid")
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "select") || !strings.Contains(lower, "from") {
		return invalidArgf("query must contain select and from")
	}
	return nil
}

// buildRequest translates one page request into its wire form. An empty
// token is never sent.
func buildRequest(t Target, text string, sql bool, pageSize int, token string) (*HTTPRequest, error) {
	header := make(http.Header)
	header.Set(HeaderPageSize, strconv.Itoa(pageSize))
	if token != "" {
		header.Set(HeaderContinuation, token)
	}

	var body []byte
	if sql {
		b, err := json.Marshal(queryDocument{Query: text})
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &HTTPRequest{
		Method:  t.Method,
		URL:     t.URL,
		Header:  header,
		Body:    body,
		Timeout: t.Timeout,
	}, nil
}
