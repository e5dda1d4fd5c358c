package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleJobReport implements the job investigation workflow.
func HandleJobReport(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		jobID := ""
		if args := req.Params.Arguments; args != nil {
			jobID = args["job_id"]
		}

		var sb strings.Builder

		sb.WriteString("# Job Outcome Report\n\n")
		sb.WriteString("You are an IoT operations engineer. Summarize how a scheduled job went across the fleet ")
		sb.WriteString("and point out which devices need attention.\n\n")

		sb.WriteString("## Workflow Steps\n\n")
		if jobID == "" {
			sb.WriteString("1. **Pick the job** - `iothub_query_jobs(job_status: \"completed\")` or `job_status: \"failed\"`\n")
		} else {
			fmt.Fprintf(&sb, "1. **Load the job** - `iothub_get_job(job_id: %q)`\n", jobID)
		}
		sb.WriteString("2. **Check statistics** - compare `failed` and `succeeded` against `devices`\n")
		sb.WriteString("3. **List failures** - ")
		if jobID == "" {
			sb.WriteString("`iothub_query_device_jobs(query: \"SELECT * FROM devices.jobs WHERE devices.jobs.jobId = '<job>' AND devices.jobs.status = 'failed'\")`\n")
		} else {
			fmt.Fprintf(&sb, "`iothub_query_device_jobs(query: \"SELECT * FROM devices.jobs WHERE devices.jobs.jobId = '%s' AND devices.jobs.status = 'failed'\")`\n", jobID)
		}
		fmt.Fprintf(&sb, "   - Follow `continuation_token` while `has_more` is true (pages of up to %d)\n", cfg.MaxItems)
		sb.WriteString("   - Project with `jq: \"{id: .deviceId, code: .error.code}\"` to keep output small\n")
		sb.WriteString("4. **Inspect devices** - `iothub_get_twins(device_ids: [...])` for the failed devices; check `connectionState` and `lastActivityTime`\n\n")

		sb.WriteString("## Report Format\n\n")
		sb.WriteString("- Job id, type, status and duration\n")
		sb.WriteString("- Failure count grouped by error code\n")
		sb.WriteString("- Devices that were disconnected when the job ran\n")

		return &sdkmcp.GetPromptResult{
			Description: "Investigate the outcome of a scheduled job",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
