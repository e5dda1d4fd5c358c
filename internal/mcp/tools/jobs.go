package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/pkg/client"
)

// JobInput is the input for iothub_get_job and iothub_cancel_job.
type JobInput struct {
	JobID string `json:"job_id" jsonschema:"Job ID"`
}

// JobOutput describes a scheduled job.
type JobOutput struct {
	JobID          string         `json:"job_id"`
	Type           string         `json:"type"`
	Status         string         `json:"status"`
	QueryCondition string         `json:"query_condition,omitempty"`
	StartTime      string         `json:"start_time,omitempty"`
	EndTime        string         `json:"end_time,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	StatusMessage  string         `json:"status_message,omitempty"`
	MethodName     string         `json:"method_name,omitempty"`
	Statistics     *JobStatistics `json:"statistics,omitempty"`
}

// JobStatistics counts device outcomes of a job.
type JobStatistics struct {
	Devices   int `json:"devices"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
}

// ToolGetJob returns the iothub_get_job handler.
func ToolGetJob(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input JobInput) (*sdkmcp.CallToolResult, JobOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input JobInput) (*sdkmcp.CallToolResult, JobOutput, error) {
		if input.JobID == "" {
			return nil, JobOutput{}, ErrInvalidInput("job_id is required")
		}
		job, err := d.Client.GetJob(ctx, input.JobID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, JobOutput{}, ErrNotFound("job", input.JobID)
			}
			return nil, JobOutput{}, WrapServiceError(err)
		}
		return nil, jobOutput(job), nil
	}
}

// ToolCancelJob returns the iothub_cancel_job handler.
func ToolCancelJob(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input JobInput) (*sdkmcp.CallToolResult, JobOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input JobInput) (*sdkmcp.CallToolResult, JobOutput, error) {
		if input.JobID == "" {
			return nil, JobOutput{}, ErrInvalidInput("job_id is required")
		}
		job, err := d.Client.CancelJob(ctx, input.JobID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, JobOutput{}, ErrNotFound("job", input.JobID)
			}
			return nil, JobOutput{}, WrapServiceError(err)
		}
		return nil, jobOutput(job), nil
	}
}

func jobOutput(job *client.JobResponse) JobOutput {
	out := JobOutput{
		JobID:          job.JobID,
		Type:           job.Type,
		Status:         job.Status,
		QueryCondition: job.QueryCondition,
		StartTime:      job.StartTime,
		EndTime:        job.EndTime,
		FailureReason:  job.FailureReason,
		StatusMessage:  job.StatusMessage,
	}
	if job.CloudToDeviceMethod != nil {
		out.MethodName = job.CloudToDeviceMethod.MethodName
	}
	if s := job.DeviceJobStatistics; s != nil {
		out.Statistics = &JobStatistics{
			Devices:   s.DeviceCount,
			Succeeded: s.SucceededCount,
			Failed:    s.FailedCount,
			Running:   s.RunningCount,
			Pending:   s.PendingCount,
		}
	}
	return out
}
