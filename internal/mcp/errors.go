package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
)

const (
	CodeValidation       = string(schedule.KindValidation)
	CodeRowLimitExceeded = string(schedule.KindRowLimitExceeded)
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// APIError represents an MCP error response.
type APIError struct {
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Details  []schedule.FieldIssue `json:"details,omitempty"`
	RowCount *int                  `json:"row_count,omitempty"`
	MaxRows  *int                  `json:"max_rows,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Response renders the error as the wire body.
func (e *APIError) Response() ErrorResponse {
	details := e.Details
	if details == nil {
		details = []schedule.FieldIssue{}
	}
	return ErrorResponse{
		OK:        false,
		ErrorCode: e.Code,
		Message:   e.Message,
		Details:   details,
		RowCount:  e.RowCount,
		MaxRows:   e.MaxRows,
	}
}

// MapError maps domain errors to stable codes. Anything unrecognized becomes
// INTERNAL_ERROR with a generic message; the cause stays in the logs.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *schedule.ValidationError
	if errors.As(err, &verr) {
		if verr.Kind == schedule.KindRowLimitExceeded {
			rows, limit := verr.RowCount, verr.Limit
			return &APIError{
				Code:     CodeRowLimitExceeded,
				Message:  fmt.Sprintf("schedule has %d rows; the limit is %d", rows, limit),
				Details:  verr.Issues,
				RowCount: &rows,
				MaxRows:  &limit,
			}
		}
		return &APIError{
			Code:    CodeValidation,
			Message: "payload failed validation",
			Details: verr.Issues,
		}
	}

	switch {
	case errors.Is(err, schedule.ErrArtifactNotFound):
		return &APIError{Code: CodeNotFound, Message: "file not found or expired"}
	case errors.Is(err, schedule.ErrInvalidPayload):
		return &APIError{Code: CodeValidation, Message: "payload could not be decoded"}
	case errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: CodeValidation, Message: "invalid activity query"}
	default:
		return &APIError{Code: CodeInternal, Message: "internal error while processing the request"}
	}
}
