package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Query tools return one page per call; pass continuation_token back to continue.
	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_query_twins",
		Description: "Run an IoT hub SQL query over device twins (SELECT * FROM devices ...). Returns one page of twins plus continuation_token and has_more. Call again with the returned continuation_token to fetch the next page. Use jq to project fields (e.g. '{id: .deviceId, fw: .properties.reported.firmware}').",
	}, ToolQueryTwins(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_query_raw",
		Description: "Run an IoT hub SQL query that returns projections or aggregates (SELECT deviceId, status FROM devices, SELECT COUNT() AS n FROM devices GROUP BY status). Items are returned as-is.",
	}, ToolQueryRaw(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_query_device_jobs",
		Description: "Run an IoT hub SQL query over per-device job records (SELECT * FROM devices.jobs WHERE devices.jobs.jobId = '...').",
	}, ToolQueryDeviceJobs(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_query_jobs",
		Description: "List scheduled jobs, optionally filtered by job_type and job_status. Paged like the other query tools.",
	}, ToolQueryJobs(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_get_twin",
		Description: "Get the twin of one device or module. Optional jq expression projects the result.",
	}, ToolGetTwin(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_get_twins",
		Description: "Get the twins of several devices concurrently. Devices that do not exist are listed in missing.",
	}, ToolGetTwins(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_invoke_method",
		Description: "Invoke a direct method on a device or module and return its status and payload.",
	}, ToolInvokeMethod(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_get_job",
		Description: "Get the status and device statistics of a scheduled job.",
	}, ToolGetJob(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "iothub_cancel_job",
		Description: "Cancel a scheduled or running job.",
	}, ToolCancelJob(d))

	if d.Schemas != nil {
		AddTool(srv, &sdkmcp.Tool{
			Name:        "iothub_item_schema",
			Description: "Get the JSON schema of query items of a given type (twin, deviceJob or jobResponse). For raw projection or aggregation queries, pass the query and the schema is inferred from its first page. Useful for writing query filters and jq projections.",
		}, ToolItemSchema(d))
	}
}
