package tools

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/internal/schema"
	"github.com/usestring/iothub-service/pkg/query"
)

// ItemSchemaInput is the input for iothub_item_schema.
type ItemSchemaInput struct {
	ItemType string `json:"item_type" jsonschema:"Query item type: twin, deviceJob, jobResponse or raw"`
	Query    string `json:"query,omitempty" jsonschema:"For raw: projection or aggregation query whose first page is sampled to infer the schema"`
}

// ItemSchemaOutput is the output for iothub_item_schema.
type ItemSchemaOutput struct {
	ItemType    string         `json:"item_type"`
	Schema      map[string]any `json:"schema,omitempty"`
	Inferred    bool           `json:"inferred,omitempty"`
	SampleCount int            `json:"sample_count,omitempty"`
	Uniform     bool           `json:"uniform,omitempty"`
}

// ToolItemSchema returns the iothub_item_schema handler.
func ToolItemSchema(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ItemSchemaInput) (*sdkmcp.CallToolResult, ItemSchemaOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ItemSchemaInput) (*sdkmcp.CallToolResult, ItemSchemaOutput, error) {
		typ := query.ParseType(input.ItemType)
		if typ == query.TypeRaw {
			return inferRawSchema(ctx, d, input.Query)
		}
		s := d.Schemas.Schema(typ)
		if s == nil {
			return nil, ItemSchemaOutput{}, ErrInvalidInput(fmt.Sprintf("no schema for item type %q", input.ItemType))
		}
		return nil, ItemSchemaOutput{ItemType: typ.String(), Schema: s}, nil
	}
}

func inferRawSchema(ctx context.Context, d *Deps, sql string) (*sdkmcp.CallToolResult, ItemSchemaOutput, error) {
	if sql == "" {
		return nil, ItemSchemaOutput{}, ErrInvalidInput("raw items have no fixed schema; pass query to infer one from a sample page")
	}
	col, err := d.Client.QueryRawCollection(sql, d.pageSize(0))
	if err != nil {
		return nil, ItemSchemaOutput{}, WrapServiceError(err)
	}
	page, err := col.Next(ctx)
	if err != nil {
		return nil, ItemSchemaOutput{}, WrapServiceError(err)
	}

	out := ItemSchemaOutput{ItemType: query.TypeRaw.String(), Inferred: true}
	if page == nil {
		return nil, out, nil
	}
	items := make([]any, 0, page.Len())
	for _, raw := range page.Items() {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ItemSchemaOutput{}, fmt.Errorf("decoding item: %w", err)
		}
		items = append(items, v)
	}
	if in := schema.Infer(items); in != nil {
		out.Schema = in.Map()
		out.SampleCount = in.SampleCount
		out.Uniform = in.Uniform
	}
	return nil, out, nil
}
