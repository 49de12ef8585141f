package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := h.now()
	start := end.AddDate(0, 0, -14)

	results, err := h.ds.ListResults(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
