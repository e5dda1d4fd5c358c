package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "fleet_query_guide",
		Description: "RECOMMENDED: Start here. Explains which query tool to use, how paging with continuation tokens works and how to keep output small.",
	}, HandleQueryGuide(cfg))

	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "job_report",
		Description: "Investigate how a scheduled job went across the fleet and list the devices that failed.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "job_id",
				Description: "Job to investigate (omit to pick one from recent jobs)",
				Required:    false,
			},
		},
	}, HandleJobReport(cfg))
}
