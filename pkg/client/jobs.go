package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/usestring/iothub-service/pkg/query"
)

// ScheduleDeviceMethod schedules a direct method on every device matching
// queryCondition.
func (c *Client) ScheduleDeviceMethod(ctx context.Context, jobID, queryCondition string, method MethodRequest, start time.Time, maxExecution time.Duration) (*JobResponse, error) {
	if method.MethodName == "" {
		return nil, errors.New("method name cannot be empty")
	}
	return c.scheduleJob(ctx, &JobRequest{
		JobID:                     jobID,
		Type:                      JobTypeDeviceMethod,
		QueryCondition:            queryCondition,
		CloudToDeviceMethod:       &method,
		StartTime:                 start.UTC(),
		MaxExecutionTimeInSeconds: int64(maxExecution / time.Second),
	})
}

// ScheduleTwinUpdate schedules a twin patch on every device matching
// queryCondition.
func (c *Client) ScheduleTwinUpdate(ctx context.Context, jobID, queryCondition string, patch *Twin, start time.Time, maxExecution time.Duration) (*JobResponse, error) {
	if patch == nil {
		return nil, errors.New("twin patch cannot be empty")
	}
	update := *patch
	if update.ETag == "" {
		update.ETag = "*"
	}
	return c.scheduleJob(ctx, &JobRequest{
		JobID:                     jobID,
		Type:                      JobTypeTwinUpdate,
		QueryCondition:            queryCondition,
		UpdateTwin:                &update,
		StartTime:                 start.UTC(),
		MaxExecutionTimeInSeconds: int64(maxExecution / time.Second),
	})
}

func (c *Client) scheduleJob(ctx context.Context, req *JobRequest) (*JobResponse, error) {
	if req.JobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	if req.MaxExecutionTimeInSeconds < 0 {
		return nil, errors.New("max execution time cannot be negative")
	}
	var res JobResponse
	if err := c.do(ctx, call{method: http.MethodPut, path: jobPath(req.JobID), in: req, out: &res}); err != nil {
		return nil, fmt.Errorf("scheduling job %q: %w", req.JobID, err)
	}
	return &res, nil
}

// GetJob retrieves the state of a scheduled job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobResponse, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	var res JobResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: jobPath(jobID), out: &res}); err != nil {
		return nil, fmt.Errorf("getting job %q: %w", jobID, err)
	}
	return &res, nil
}

// CancelJob requests cancellation of a scheduled job.
func (c *Client) CancelJob(ctx context.Context, jobID string) (*JobResponse, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	var res JobResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: jobPath(jobID) + "/cancel", out: &res}); err != nil {
		return nil, fmt.Errorf("cancelling job %q: %w", jobID, err)
	}
	return &res, nil
}

// QueryDeviceJobs runs a SQL-like query over devices.jobs.
func (c *Client) QueryDeviceJobs(ctx context.Context, sql string, pageSize int) (*query.Cursor[DeviceJob], error) {
	cur, err := query.NewCursor[DeviceJob](sql, c.resolvePageSize(pageSize), query.TypeDeviceJob, c.queryOptions()...)
	if err != nil {
		return nil, err
	}
	if err := cur.Execute(ctx, c.deviceQueryTarget()); err != nil {
		return nil, fmt.Errorf("querying device jobs: %w", err)
	}
	return cur, nil
}

// QueryDeviceJobCollection is the page-level form of QueryDeviceJobs.
func (c *Client) QueryDeviceJobCollection(sql string, pageSize int) (*query.Collection[DeviceJob], error) {
	return query.NewCollection[DeviceJob](sql, c.resolvePageSize(pageSize), query.TypeDeviceJob, c.deviceQueryTarget(), c.queryOptions()...)
}

// JobFilter narrows QueryJobResponses. Empty fields match everything.
type JobFilter struct {
	Type   string
	Status string
}

// QueryJobResponses lists scheduled jobs matching filter.
func (c *Client) QueryJobResponses(ctx context.Context, filter JobFilter, pageSize int) (*query.Cursor[JobResponse], error) {
	cur, err := query.NewPlainCursor[JobResponse](c.resolvePageSize(pageSize), query.TypeJobResponse, c.queryOptions()...)
	if err != nil {
		return nil, err
	}
	if err := cur.Execute(ctx, c.jobQueryTarget(filter)); err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	return cur, nil
}

// QueryJobResponseCollection is the page-level form of QueryJobResponses.
func (c *Client) QueryJobResponseCollection(filter JobFilter, pageSize int) (*query.Collection[JobResponse], error) {
	return query.NewPlainCollection[JobResponse](c.resolvePageSize(pageSize), query.TypeJobResponse, c.jobQueryTarget(filter), c.queryOptions()...)
}

func (c *Client) jobQueryTarget(filter JobFilter) query.Target {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("jobType", filter.Type)
	}
	if filter.Status != "" {
		q.Set("jobStatus", filter.Status)
	}
	return query.Target{
		Fetcher: c,
		Method:  http.MethodGet,
		URL:     c.url(pathJobsQuery, q),
		Timeout: c.queryTimeout,
	}
}
