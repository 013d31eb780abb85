package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
)

// ScheduleService defines schedule operations needed by MCP.
type ScheduleService interface {
	Generate(ctx context.Context, req *schedule.Request) (*schedule.GenerateResult, error)
	Validate(ctx context.Context, req *schedule.Request) (*schedule.Preview, error)
	Health(ctx context.Context) schedule.HealthStatus
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler dispatches MCP commands.
type Handler struct {
	schedules ScheduleService
	activity  ActivityService
}

// NewHandler creates a new MCP handler. activitySvc may be nil.
func NewHandler(schedules ScheduleService, activitySvc ActivityService) *Handler {
	return &Handler{
		schedules: schedules,
		activity:  activitySvc,
	}
}

// Handle dispatches MCP requests to domain services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case ToolGenerate:
		req, err := decodeSchedule(params)
		if err != nil {
			return nil, err
		}
		result, err := h.schedules.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return GenerateResponse{OK: true, GenerateResult: result}, nil
	case ToolValidate:
		req, err := decodeSchedule(params)
		if err != nil {
			return nil, err
		}
		preview, err := h.schedules.Validate(ctx, req)
		if err != nil {
			return nil, err
		}
		return ValidateResponse{OK: true, Message: "payload is valid", Preview: preview}, nil
	case ToolHealth:
		return HealthResponse{OK: true, HealthStatus: h.schedules.Health(ctx)}, nil
	case ToolRecentActivity:
		if h.activity == nil {
			return ActivityResponse{OK: true, Entries: []ActivityEntryResponse{}}, nil
		}
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			RequestID: req.RequestID,
			Limit:     req.Limit,
			Offset:    req.Offset,
		}
		if req.Type != "" {
			typ := activity.ActivityType(req.Type)
			opts.ActivityType = &typ
		}
		entries, err := h.activity.GetRecentActivity(ctx, opts)
		if err != nil {
			return nil, err
		}
		resp := make([]ActivityEntryResponse, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, ActivityEntryResponse{
				Timestamp:   entry.CreatedAt,
				Type:        entry.ActivityType,
				RequestID:   entry.RequestID,
				ProjectName: entry.ProjectName,
				Filename:    entry.Filename,
				Summary:     entry.Summary,
				Details:     entry.Details,
			})
		}
		return ActivityResponse{OK: true, Entries: resp}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

// decodeSchedule accepts {"payload": {...}} or the payload object itself.
func decodeSchedule(params json.RawMessage) (*schedule.Request, error) {
	var wrapper PayloadParams
	if err := decodeParams(params, &wrapper); err != nil {
		return nil, err
	}
	raw := wrapper.Payload
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = params
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	return schedule.Decode(raw)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(bytes.TrimSpace(params)) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{
			Code:    CodeValidation,
			Message: "arguments could not be decoded",
			Details: []schedule.FieldIssue{{Field: "arguments", Issue: "must be a JSON object with the documented fields"}},
		}
	}
	return nil
}
