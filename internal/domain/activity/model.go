package activity

import "time"

// ActivityType represents the type of audit event
type ActivityType string

const (
	TypeScheduleGenerated  ActivityType = "schedule_generated"
	TypeScheduleRejected   ActivityType = "schedule_rejected"
	TypeArtifactDownloaded ActivityType = "artifact_downloaded"
	TypeArtifactExpired    ActivityType = "artifact_expired"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeScheduleGenerated, TypeScheduleRejected, TypeArtifactDownloaded, TypeArtifactExpired:
		return true
	}
	return false
}

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	RequestID    string       `json:"request_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	ProjectName  string       `json:"project_name,omitempty"`
	Filename     string       `json:"filename,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
