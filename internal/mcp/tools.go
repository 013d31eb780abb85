package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolGenerate       = "gerar_xlsx"
	ToolValidate       = "validar"
	ToolHealth         = "health"
	ToolRecentActivity = "get_recent_activity"
)

func payloadSchema() map[string]any {
	micro := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "Micro activity name"},
			"hours": map[string]any{
				"type":        []string{"number", "string"},
				"description": "Duration in hours (> 0). A number, a numeric string, or H:MM:SS",
			},
			"responsible": map[string]any{"type": "string", "description": "Responsible role"},
		},
		"required": []string{"name", "hours"},
	}
	macro := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "description": "Macro activity name"},
			"responsible": map[string]any{"type": "string", "description": "Responsible role"},
			"micros": map[string]any{
				"type":        "array",
				"description": "Micro activities; a macro must always contain at least 1 micro",
				"minItems":    1,
				"items":       micro,
			},
		},
		"required": []string{"name", "micros"},
	}
	return map[string]any{
		"type":        "object",
		"description": "Schedule payload: project, macros and optional settings",
		"properties": map[string]any{
			"project": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]any{"type": "string", "description": "Project name"},
					"owner": map[string]any{"type": "string", "description": "Project owner"},
				},
				"required": []string{"name"},
			},
			"macros": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    macro,
			},
			"settings": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"max_rows":            map[string]any{"type": "integer", "description": "Row ceiling override (positive)"},
					"include_project_row": map[string]any{"type": "boolean", "description": "Render the project row (default true)"},
					"sheet_name":          map[string]any{"type": "string", "description": "Sheet name (max 31 chars, none of []:*?/\\)"},
					"format_version":      map[string]any{"type": "string", "description": "Format version echoed in the response"},
				},
			},
		},
		"required": []string{"project", "macros"},
	}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: ToolGenerate,
			Description: "Generate the project schedule as XLSX (Nome da Tarefa | Duração | Responsável). " +
				"Returns the file as base64 plus a temporary download URL. Macro totals are the sum of their micros; " +
				"the project total is the sum of the macros.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"payload": payloadSchema(),
				},
				"required": []string{"payload"},
			},
		},
		{
			Name:        ToolValidate,
			Description: "Validate a schedule payload without generating a file. Returns every issue found, or a preview with totals",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"payload": payloadSchema(),
				},
				"required": []string{"payload"},
			},
		},
		{
			Name:        ToolHealth,
			Description: "Report server status, limits and the number of active download links",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolRecentActivity,
			Description: "List recent generation, rejection, download and expiry events, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of entries (default and max 200)",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Filter by activity type",
						"enum":        []string{"schedule_generated", "schedule_rejected", "artifact_downloaded", "artifact_expired"},
					},
					"request_id": map[string]any{
						"type":        "string",
						"description": "Filter by generation request id",
					},
				},
			},
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler, logger *slog.Logger) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}

			start := time.Now()
			result, err := handler.Handle(ctx, name, args)
			if err != nil {
				apiErr := MapError(err)
				if apiErr.Code == CodeInternal {
					logger.Error("tool call failed", "tool", name, "session_id", getSessionID(ctx), "error", err)
				} else {
					logger.Info("tool call rejected", "tool", name, "session_id", getSessionID(ctx), "code", apiErr.Code)
				}
				return toolResult(apiErr.Response(), true)
			}
			logger.Debug("tool call completed", "tool", name, "session_id", getSessionID(ctx), "duration", time.Since(start))
			return toolResult(result, false)
		})
	}
}

func toolResult(body any, isError bool) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
		IsError:           isError,
	}, nil
}
