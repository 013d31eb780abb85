package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates the payload violates one or more schedule rules.
	ErrValidation = errors.New("schedule validation failed")
	// ErrRowLimitExceeded indicates the rendered row count is above the ceiling.
	ErrRowLimitExceeded = errors.New("schedule exceeds row limit")
	// ErrArtifactNotFound indicates an unknown, expired or unreadable download token.
	ErrArtifactNotFound = errors.New("artifact not found or expired")
	// ErrInvalidPayload indicates the payload could not be decoded at all.
	ErrInvalidPayload = errors.New("invalid schedule payload")
)

// Kind is the machine-readable category of a validation failure.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindRowLimitExceeded Kind = "MAX_ROWS_EXCEEDED"
)

// FieldIssue points at a single offending node using a dotted path with indices,
// e.g. "macros[2].micros[0].hours".
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError carries every issue found in one pass.
type ValidationError struct {
	Kind     Kind
	Issues   []FieldIssue
	RowCount int
	Limit    int
}

func (e *ValidationError) Error() string {
	if e.Kind == KindRowLimitExceeded {
		return fmt.Sprintf("schedule has %d rows, exceeding the limit of %d", e.RowCount, e.Limit)
	}
	return fmt.Sprintf("%s: %d issue(s)", ErrValidation, len(e.Issues))
}

// Is lets callers match with errors.Is against ErrValidation and ErrRowLimitExceeded.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrRowLimitExceeded:
		return e.Kind == KindRowLimitExceeded
	}
	return false
}
