package docstore

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/cartograph/kit"
)

// RegisterMCP registers the cartograph tools on an MCP server.
func (sv *Service) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_status",
		Description: "Report the active map, open map count, the running save or load and the last errors.",
		InputSchema: inputSchema(nil, nil),
	}, sv.StatusEndpoint(), kit.DecodeArgs[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_list_documents",
		Description: "List open maps in creation order with their file, dirty flag and which one is active.",
		InputSchema: inputSchema(nil, nil),
	}, sv.ListEndpoint(), kit.DecodeArgs[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_new_document",
		Description: "Open a new empty map and make it active. The current scene is not captured.",
		InputSchema: inputSchema(nil, nil),
	}, sv.NewEndpoint(), kit.DecodeArgs[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_switch_document",
		Description: "Make an open map active, keeping the current one's scene cached.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Document id from cartograph_list_documents"},
		}, []string{"id"}),
	}, sv.SwitchEndpoint(), kit.DecodeArgs[DocumentRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_save",
		Description: "Start saving the active map to the maps directory. Poll cartograph_status for the outcome.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Map file name (\".json\" optional). Omit to overwrite the current file."},
		}, nil),
	}, sv.SaveEndpoint(), kit.DecodeArgs[FileRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "cartograph_load",
		Description: "Start loading a map from the maps directory into the active slot. Poll cartograph_status for the outcome.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Map file name (\".json\" optional)"},
		}, []string{"name"}),
	}, sv.LoadEndpoint(), kit.DecodeArgs[FileRequest])

	if sv.recents != nil {
		kit.RegisterMCPTool(srv, &mcp.Tool{
			Name:        "cartograph_recent",
			Description: "List recently saved or loaded maps and recently opened libraries, most recent first.",
			InputSchema: inputSchema(map[string]any{
				"limit": map[string]any{"type": "integer", "description": "Max maps to list (default 10)"},
			}, nil),
		}, sv.RecentEndpoint(), kit.DecodeArgs[RecentRequest])
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
