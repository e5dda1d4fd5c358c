package tools

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/internal/compact"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// QueryInput is the input for iothub_query_twins, iothub_query_raw and
// iothub_query_device_jobs.
type QueryInput struct {
	Query             string `json:"query" jsonschema:"IoT hub SQL query, e.g. SELECT * FROM devices WHERE tags.site = 'north'"`
	ContinuationToken string `json:"continuation_token,omitempty" jsonschema:"Token from a previous call's continuation_token to fetch the following page"`
	PageSize          int    `json:"page_size,omitempty" jsonschema:"Maximum items to return (default: 50, capped by the server limit)"`
	JQ                string `json:"jq,omitempty" jsonschema:"Optional jq expression applied to each item (e.g. '.properties.reported.firmware')"`
	Compact           bool   `json:"compact,omitempty" jsonschema:"Drop $metadata and trim long arrays and strings in the returned items"`
}

// QueryJobsInput is the input for iothub_query_jobs.
type QueryJobsInput struct {
	JobType           string `json:"job_type,omitempty" jsonschema:"Filter by job type: scheduleDeviceMethod or scheduleUpdateTwin"`
	JobStatus         string `json:"job_status,omitempty" jsonschema:"Filter by job status: queued, scheduled, running, completed, failed or cancelled"`
	ContinuationToken string `json:"continuation_token,omitempty" jsonschema:"Token from a previous call's continuation_token to fetch the following page"`
	PageSize          int    `json:"page_size,omitempty" jsonschema:"Maximum items to return (default: 50, capped by the server limit)"`
	JQ                string `json:"jq,omitempty" jsonschema:"Optional jq expression applied to each item"`
	Compact           bool   `json:"compact,omitempty" jsonschema:"Drop $metadata and trim long arrays and strings in the returned items"`
}

// pageParams holds the paging and projection parameters shared by the query tools.
type pageParams struct {
	token    string
	pageSize int
	jq       string
	compact  bool
}

// QueryOutput is one page of query results.
type QueryOutput struct {
	ItemType          string   `json:"item_type"`
	Items             []any    `json:"items,omitzero"`
	Count             int      `json:"count"`
	ContinuationToken string   `json:"continuation_token,omitempty"`
	HasMore           bool     `json:"has_more"`
	JQErrors          []string `json:"jq_errors,omitzero"`
}

// ToolQueryTwins returns the iothub_query_twins handler.
func ToolQueryTwins(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
		if input.Query == "" {
			return nil, QueryOutput{}, ErrInvalidInput("query is required")
		}
		col, err := d.Client.QueryTwinCollection(input.Query, d.pageSize(input.PageSize))
		if err != nil {
			return nil, QueryOutput{}, WrapServiceError(err)
		}
		out, err := fetchToolPage(ctx, d, col, input.params(), func(t client.Twin) string { return t.DeviceID })
		return nil, out, err
	}
}

// ToolQueryRaw returns the iothub_query_raw handler.
func ToolQueryRaw(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
		if input.Query == "" {
			return nil, QueryOutput{}, ErrInvalidInput("query is required")
		}
		col, err := d.Client.QueryRawCollection(input.Query, d.pageSize(input.PageSize))
		if err != nil {
			return nil, QueryOutput{}, WrapServiceError(err)
		}
		out, err := fetchToolPage(ctx, d, col, input.params(), nil)
		return nil, out, err
	}
}

// ToolQueryDeviceJobs returns the iothub_query_device_jobs handler.
func ToolQueryDeviceJobs(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
		if input.Query == "" {
			return nil, QueryOutput{}, ErrInvalidInput("query is required")
		}
		col, err := d.Client.QueryDeviceJobCollection(input.Query, d.pageSize(input.PageSize))
		if err != nil {
			return nil, QueryOutput{}, WrapServiceError(err)
		}
		out, err := fetchToolPage(ctx, d, col, input.params(), func(j client.DeviceJob) string { return j.DeviceID })
		return nil, out, err
	}
}

// ToolQueryJobs returns the iothub_query_jobs handler.
func ToolQueryJobs(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryJobsInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryJobsInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
		filter := client.JobFilter{Type: input.JobType, Status: input.JobStatus}
		col, err := d.Client.QueryJobResponseCollection(filter, d.pageSize(input.PageSize))
		if err != nil {
			return nil, QueryOutput{}, WrapServiceError(err)
		}
		out, err := fetchToolPage(ctx, d, col, input.params(), func(j client.JobResponse) string { return j.JobID })
		return nil, out, err
	}
}

func (in QueryInput) params() pageParams {
	return pageParams{token: in.ContinuationToken, pageSize: in.PageSize, jq: in.JQ, compact: in.Compact}
}

func (in QueryJobsInput) params() pageParams {
	return pageParams{token: in.ContinuationToken, pageSize: in.PageSize, jq: in.JQ, compact: in.Compact}
}

// fetchToolPage fetches one page of col and converts it to tool output.
// label names items in jq error messages and may be nil.
func fetchToolPage[T any](ctx context.Context, d *Deps, col *query.Collection[T], in pageParams, label func(T) string) (QueryOutput, error) {
	start := time.Now()

	if in.jq != "" {
		if err := d.JQ.ValidateExpression(in.jq); err != nil {
			return QueryOutput{}, ErrInvalidInput(err.Error())
		}
	}

	page, err := col.NextWith(ctx, query.Options{
		ContinuationToken: in.token,
		PageSize:          d.pageSize(in.pageSize),
	})
	if err != nil {
		return QueryOutput{}, WrapServiceError(err)
	}

	out := QueryOutput{
		ItemType: col.Type().String(),
		Items:    make([]any, 0),
	}
	if page == nil {
		return out, nil
	}

	items := page.Items()
	labels := make([]string, 0, len(items))
	for _, item := range items {
		v, err := ToAny(item)
		if err != nil {
			return QueryOutput{}, err
		}
		out.Items = append(out.Items, v)
		if label != nil {
			labels = append(labels, label(item))
		}
	}

	if in.jq != "" {
		res, err := d.JQ.Apply(out.Items, in.jq, jq.Options{
			MaxResults: d.Config.MaxToolItems,
			Labels:     labels,
		})
		if err != nil {
			return QueryOutput{}, ErrInvalidInput(err.Error())
		}
		out.Items = res.Values
		out.JQErrors = res.Errors
	}
	if in.compact {
		out.Items = compact.Values(out.Items, compact.DefaultOptions())
	}

	out.Count = len(out.Items)
	out.ContinuationToken = page.ContinuationToken()
	out.HasMore = page.HasMore()

	slog.Debug("tool query page",
		slog.String("item_type", out.ItemType),
		slog.Int("items", page.Len()),
		slog.Bool("has_more", out.HasMore),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return out, nil
}
