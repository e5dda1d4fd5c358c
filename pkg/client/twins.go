package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/usestring/iothub-service/pkg/query"
)

// GetTwin retrieves the twin of a device, or of a module when moduleID is set.
func (c *Client) GetTwin(ctx context.Context, deviceID, moduleID string) (*Twin, error) {
	if deviceID == "" {
		return nil, errors.New("device id cannot be empty")
	}
	var twin Twin
	err := c.do(ctx, call{method: http.MethodGet, path: twinPath(deviceID, moduleID), out: &twin})
	if err != nil {
		return nil, fmt.Errorf("getting twin %q: %w", twinName(deviceID, moduleID), err)
	}
	return &twin, nil
}

// GetTwins retrieves several device twins concurrently. Twins that do not
// exist are left nil; any other failure aborts the batch.
func (c *Client) GetTwins(ctx context.Context, deviceIDs []string) ([]*Twin, error) {
	twins := make([]*Twin, len(deviceIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, id := range deviceIDs {
		g.Go(func() error {
			twin, err := c.GetTwin(ctx, id, "")
			if IsNotFound(err) {
				slog.Debug("twin not found", slog.String("device_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			twins[i] = twin
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return twins, nil
}

// UpdateTwin merges patch into the twin. When etag is non-empty the update
// only succeeds if the twin has not changed since.
func (c *Client) UpdateTwin(ctx context.Context, deviceID, moduleID string, patch *Twin, etag string) (*Twin, error) {
	return c.writeTwin(ctx, http.MethodPatch, deviceID, moduleID, patch, etag)
}

// ReplaceTwin replaces tags and desired properties of the twin.
func (c *Client) ReplaceTwin(ctx context.Context, deviceID, moduleID string, twin *Twin, etag string) (*Twin, error) {
	return c.writeTwin(ctx, http.MethodPut, deviceID, moduleID, twin, etag)
}

func (c *Client) writeTwin(ctx context.Context, method, deviceID, moduleID string, in *Twin, etag string) (*Twin, error) {
	if deviceID == "" || in == nil {
		return nil, errors.New("device id and twin cannot be empty")
	}
	if etag == "" {
		etag = "*"
	}
	header := http.Header{}
	header.Set(headerIfMatch, quoteETag(etag))

	var out Twin
	err := c.do(ctx, call{method: method, path: twinPath(deviceID, moduleID), header: header, in: in, out: &out})
	if err != nil {
		return nil, fmt.Errorf("updating twin %q: %w", twinName(deviceID, moduleID), err)
	}
	return &out, nil
}

// QueryTwins runs a SQL-like query over device twins and returns a cursor
// positioned before the first result. pageSize 0 selects the client default.
func (c *Client) QueryTwins(ctx context.Context, sql string, pageSize int) (*query.Cursor[Twin], error) {
	cur, err := query.NewCursor[Twin](sql, c.resolvePageSize(pageSize), query.TypeTwin, c.queryOptions()...)
	if err != nil {
		return nil, err
	}
	if err := cur.Execute(ctx, c.deviceQueryTarget()); err != nil {
		return nil, fmt.Errorf("querying twins: %w", err)
	}
	return cur, nil
}

// QueryTwinCollection returns a page-level cursor over a twin query. No
// request is sent until the first Next.
func (c *Client) QueryTwinCollection(sql string, pageSize int) (*query.Collection[Twin], error) {
	return query.NewCollection[Twin](sql, c.resolvePageSize(pageSize), query.TypeTwin, c.deviceQueryTarget(), c.queryOptions()...)
}

// QueryRaw runs a projection or aggregation query whose items have no
// fixed shape.
func (c *Client) QueryRaw(ctx context.Context, sql string, pageSize int) (*query.Cursor[json.RawMessage], error) {
	cur, err := query.NewCursor[json.RawMessage](sql, c.resolvePageSize(pageSize), query.TypeRaw, c.queryOptions()...)
	if err != nil {
		return nil, err
	}
	if err := cur.Execute(ctx, c.deviceQueryTarget()); err != nil {
		return nil, fmt.Errorf("querying raw: %w", err)
	}
	return cur, nil
}

// QueryRawCollection is the page-level form of QueryRaw.
func (c *Client) QueryRawCollection(sql string, pageSize int) (*query.Collection[json.RawMessage], error) {
	return query.NewCollection[json.RawMessage](sql, c.resolvePageSize(pageSize), query.TypeRaw, c.deviceQueryTarget(), c.queryOptions()...)
}

func (c *Client) deviceQueryTarget() query.Target {
	return query.Target{
		Fetcher: c,
		Method:  http.MethodPost,
		URL:     c.url(pathDeviceQuery, nil),
		Timeout: c.queryTimeout,
	}
}

func (c *Client) resolvePageSize(n int) int {
	if n == 0 {
		return c.pageSize
	}
	return n
}

func (c *Client) queryOptions() []query.Option {
	if c.validator == nil {
		return nil
	}
	return []query.Option{query.WithItemValidator(c.validator)}
}

func twinName(deviceID, moduleID string) string {
	if moduleID == "" {
		return deviceID
	}
	return deviceID + "/" + moduleID
}

func quoteETag(etag string) string {
	if etag == "*" || (len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"') {
		return etag
	}
	return `"` + etag + `"`
}
