package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/internal/mcp/tools"
	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// Resource URI scheme: iothub://
// Supported URIs:
//   iothub://twin/{device}
//   iothub://twin/{device}/{module}
//   iothub://job/{job}
//   iothub://schema/{item_type}

const resourceScheme = "iothub://"

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "iothub://twin/{device}",
		Name:        "Device Twin",
		Description: "Full device twin including tags and desired/reported properties with $metadata. High context cost - prefer iothub_get_twin with a jq projection.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceTwin)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "iothub://twin/{device}/{module}",
		Name:        "Module Twin",
		Description: "Full module twin of a device module.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceTwin)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "iothub://job/{job}",
		Name:        "Job",
		Description: "Complete job document including the method or twin patch it applies.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceJob)

	if s.deps.Schemas != nil {
		s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
			URITemplate: "iothub://schema/{item_type}",
			Name:        "Query Item Schema",
			Description: "JSON schema of query items of one type (twin, deviceJob, jobResponse).",
			MIMEType:    tools.MimeJSON,
			Annotations: &sdkmcp.Annotations{
				Audience: []sdkmcp.Role{"assistant"},
				Priority: 0.6,
			},
		}, s.handleResourceSchema)
	}
}

// Resource handlers

func (s *Server) handleResourceTwin(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	twin, err := s.deps.Client.GetTwin(ctx, params["device"], params["module"])
	if err != nil {
		if client.IsNotFound(err) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, tools.WrapServiceError(err)
	}

	return toResourceResult(req.Params.URI, twin)
}

func (s *Server) handleResourceJob(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	job, err := s.deps.Client.GetJob(ctx, params["job"])
	if err != nil {
		if client.IsNotFound(err) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, tools.WrapServiceError(err)
	}

	return toResourceResult(req.Params.URI, job)
}

func (s *Server) handleResourceSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	schema := s.deps.Schemas.Schema(query.ParseType(params["item_type"]))
	if schema == nil {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}

	return toResourceResult(req.Params.URI, schema)
}

// Helper functions

// parseResourceURI extracts parameters from an iothub:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	path, ok := strings.CutPrefix(uri, resourceScheme)
	if !ok {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + resourceScheme)
	}

	parts := strings.Split(path, "/")
	for i, p := range parts {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			return nil, tools.ErrInvalidInput(fmt.Sprintf("invalid URI segment %q", p))
		}
		parts[i] = unescaped
	}

	params := make(map[string]string)
	resourceType := parts[0]

	switch resourceType {
	case "twin":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("twin URI requires device ID")
		}
		params["device"] = parts[1]
		if len(parts) >= 3 {
			params["module"] = parts[2]
		}

	case "job":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("job URI requires job ID")
		}
		params["job"] = parts[1]

	case "schema":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("schema URI requires item type")
		}
		params["item_type"] = parts[1]

	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", resourceType))
	}

	return params, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
