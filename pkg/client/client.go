package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/usestring/iothub-service/pkg/query"
)

// Defaults applied by New.
const (
	DefaultAPIVersion   = "2021-04-12"
	DefaultBaseTimeout  = 24 * time.Second
	DefaultQueryTimeout = 60 * time.Second
	DefaultWorkers      = 8
)

const (
	headerRequestID   = "x-ms-client-request-id"
	headerAuthz       = "Authorization"
	headerIfMatch     = "If-Match"
	headerContentType = "Content-Type"
	userAgent         = "iothub-service-go"
)

// Observer receives one call per round trip. status is 0 when the request
// never produced a response.
type Observer interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Client is an IoT hub service API client. It is safe for concurrent use.
type Client struct {
	host         string
	baseURL      string
	httpClient   *http.Client
	auth         Authorizer
	apiVersion   string
	baseTimeout  time.Duration
	queryTimeout time.Duration
	pageSize     int
	workers      int
	validator    query.ItemValidator
	observer     Observer
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL overrides the https://<host> endpoint, for emulators and tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthorizer sets the source of Authorization header values.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithAPIVersion sets the api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		c.apiVersion = v
	}
}

// WithBaseTimeout sets the allowance added to every request's own timeout.
func WithBaseTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.baseTimeout = d
	}
}

// WithQueryTimeout sets the per-page timeout of query requests.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.queryTimeout = d
	}
}

// WithPageSize sets the page size used when a query call passes 0.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithWorkers bounds the number of concurrent requests issued by batch calls.
func WithWorkers(n int) Option {
	return func(c *Client) {
		c.workers = n
	}
}

// WithItemValidator makes every query cursor run v over page items.
func WithItemValidator(v query.ItemValidator) Option {
	return func(c *Client) {
		c.validator = v
	}
}

// WithObserver reports every round trip to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the hub at host. Requests are unauthenticated
// unless WithAuthorizer is given.
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:         host,
		baseURL:      "https://" + host,
		httpClient:   http.DefaultClient,
		apiVersion:   DefaultAPIVersion,
		baseTimeout:  DefaultBaseTimeout,
		queryTimeout: DefaultQueryTimeout,
		pageSize:     query.DefaultPageSize,
		workers:      DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConnectionString parses cs and creates a client that signs its
// own SAS tokens (or uses the embedded signature).
func NewFromConnectionString(cs string, opts ...Option) (*Client, error) {
	conn, err := ParseConnectionString(cs)
	if err != nil {
		return nil, err
	}
	auth, err := conn.Authorizer()
	if err != nil {
		return nil, err
	}
	return New(conn.HostName, append([]Option{WithAuthorizer(auth)}, opts...)...), nil
}

// Host returns the hub host name.
func (c *Client) Host() string {
	return c.host
}

// Fetch performs one round trip. It implements query.Fetcher, so the same
// client serves every cursor. The effective timeout is the base allowance
// plus req.Timeout.
func (c *Client) Fetch(ctx context.Context, req *query.HTTPRequest) (*query.HTTPResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.baseTimeout+req.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if len(req.Body) > 0 && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, "application/json; charset=utf-8")
	}
	if c.auth != nil {
		token, err := c.auth.Authorize(ctx, c.host)
		if err != nil {
			return nil, fmt.Errorf("authorizing request: %w", err)
		}
		httpReq.Header.Set(headerAuthz, token)
	}

	path := httpReq.URL.Path
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req.Method, 0, start)
		slog.Debug("HTTP request failed",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	c.observe(req.Method, resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		apiErr := parseError(resp, requestID)
		slog.Debug("HTTP request returned error",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	slog.Debug("HTTP request completed",
		slog.String("method", req.Method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &query.HTTPResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, time.Since(start))
	}
}

// call is a JSON round trip: in is marshaled as the body when non-nil and
// the response is decoded into out when non-nil.
type call struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	in      any
	out     any
	timeout time.Duration
}

func (c *Client) do(ctx context.Context, cl call) error {
	req := &query.HTTPRequest{
		Method:  cl.method,
		URL:     c.url(cl.path, cl.query),
		Header:  cl.header,
		Timeout: cl.timeout,
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if cl.in != nil {
		b, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		req.Body = b
	}

	resp, err := c.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if cl.out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, cl.out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// parseError extracts an APIError from an error response.
func parseError(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}

	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		apiErr.Message = errResp.Message
		apiErr.Code = errorCode(errResp.Message)
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// errorCode pulls the ErrorCode:<code>; prefix the hub puts in messages.
func errorCode(msg string) string {
	rest, ok := strings.CutPrefix(msg, "ErrorCode:")
	if !ok {
		return ""
	}
	code, _, _ := strings.Cut(rest, ";")
	return code
}
