package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/fitlog/internal/reports"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) dashboardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	d, err := h.ds.Dashboard(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, d)
}

func (h *handlers) recordsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rec, err := h.ds.Records(ctx, UserIDFromContext(ctx), reports.RecordsOptions{Endurance: true, Strength: true})
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, rec)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
