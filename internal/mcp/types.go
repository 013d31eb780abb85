package mcp

import (
	"encoding/json"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
)

// ToolDefinition describes a tool in the catalog.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// PayloadParams wraps a schedule payload. The payload may also be sent unwrapped.
type PayloadParams struct {
	Payload json.RawMessage `json:"payload,omitempty"`
}

type GetRecentActivityParams struct {
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Type      string `json:"type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type GenerateResponse struct {
	OK bool `json:"ok"`
	*schedule.GenerateResult
}

type ValidateResponse struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Preview *schedule.Preview `json:"preview"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
	schedule.HealthStatus
}

type ActivityEntryResponse struct {
	Timestamp   time.Time             `json:"timestamp"`
	Type        activity.ActivityType `json:"type"`
	RequestID   string                `json:"request_id,omitempty"`
	ProjectName string                `json:"project_name,omitempty"`
	Filename    string                `json:"filename,omitempty"`
	Summary     string                `json:"summary"`
	Details     string                `json:"details,omitempty"`
}

type ActivityResponse struct {
	OK      bool                    `json:"ok"`
	Entries []ActivityEntryResponse `json:"entries"`
}

// ErrorResponse is the body of every failed tool call and HTTP error.
type ErrorResponse struct {
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details"`
	RowCount  *int   `json:"row_count,omitempty"`
	MaxRows   *int   `json:"max_rows,omitempty"`
}
