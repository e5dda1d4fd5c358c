package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleQueryGuide serves the fleet query usage guide.
// The schema row is included only when item schemas are registered.
func HandleQueryGuide(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var sb strings.Builder

		sb.WriteString("# IoT Hub Fleet Query Guide\n\n")
		if cfg.HubName != "" {
			fmt.Fprintf(&sb, "Connected hub: `%s`\n\n", cfg.HubName)
		}

		// --- Tool decision table ---
		sb.WriteString("## Which Tool\n\n")
		sb.WriteString("| Goal | Tool | Example |\n")
		sb.WriteString("|------|------|--------|\n")
		sb.WriteString("| Full twins matching a filter | `iothub_query_twins` | `query: \"SELECT * FROM devices WHERE tags.site = 'north'\"` |\n")
		sb.WriteString("| Projections and aggregates | `iothub_query_raw` | `query: \"SELECT status, COUNT() AS n FROM devices GROUP BY status\"` |\n")
		sb.WriteString("| Per-device job outcomes | `iothub_query_device_jobs` | `query: \"SELECT * FROM devices.jobs WHERE devices.jobs.jobId = 'fw-42'\"` |\n")
		sb.WriteString("| List scheduled jobs | `iothub_query_jobs` | `job_status: \"running\"` |\n")
		sb.WriteString("| One or a few known devices | `iothub_get_twin`, `iothub_get_twins` | `device_ids: [\"d1\", \"d2\"]` |\n")
		if cfg.SchemasEnabled {
			sb.WriteString("| Field names for filters and jq | `iothub_item_schema` | `item_type: \"twin\"` |\n")
		}

		// --- Paging ---
		sb.WriteString("\n## Paging\n")
		fmt.Fprintf(&sb, "- Query tools return one page per call (default %d items, at most %d)\n", cfg.DefaultPageSize, cfg.MaxItems)
		sb.WriteString("- When `has_more` is true, call the same tool again with the same query and the returned `continuation_token`\n")
		sb.WriteString("- An empty page with `has_more: true` is normal; keep going\n")
		sb.WriteString("- Prefer `iothub_query_raw` with `COUNT()` before walking a large fleet page by page\n")

		// --- Projection ---
		sb.WriteString("\n## Reducing Output\n")
		sb.WriteString("- Select only the fields you need in SQL: `SELECT deviceId, properties.reported.firmware FROM devices`\n")
		sb.WriteString("- Or project each item with `jq`: `{id: .deviceId, fw: .properties.reported.firmware}`\n")
		sb.WriteString("- `jq_errors` lists items the expression could not be applied to\n")

		// --- SQL reference ---
		sb.WriteString("\n## Query Language Quick Reference\n")
		sb.WriteString("- `SELECT * FROM devices WHERE properties.reported.connectivity.type = 'cellular'`\n")
		sb.WriteString("- `SELECT * FROM devices WHERE tags.location.region IN ['us', 'eu']`\n")
		sb.WriteString("- `SELECT * FROM devices WHERE IS_DEFINED(properties.reported.battery)`\n")
		sb.WriteString("- `SELECT * FROM devices.modules WHERE moduleId = 'edgeAgent'`\n")
		sb.WriteString("- `SELECT properties.reported.firmware AS fw, COUNT() AS n FROM devices GROUP BY properties.reported.firmware`\n")

		// --- Errors ---
		sb.WriteString("\n## Errors\n")
		sb.WriteString("- `INVALID_INPUT`: fix the query, page size or jq expression\n")
		sb.WriteString("- `PROTOCOL_ERROR`: the hub answered with a different item type; use the tool matching the FROM clause\n")
		sb.WriteString("- `IOTHUB_ERROR` with throttling: wait and retry with the same continuation_token\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for querying an IoT hub fleet efficiently",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
