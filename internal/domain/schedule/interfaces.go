package schedule

import (
	"context"
	"io"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
)

// Renderer turns a validated document into artifact bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// ArtifactStore persists rendered bytes and returns their location.
type ArtifactStore interface {
	Save(key, filename string, data []byte) (string, error)
	Remove(location string) error
	Check() error
}

// ArtifactRegistry tracks downloadable artifacts by token.
type ArtifactRegistry interface {
	Put(art ArtifactEntry, ttl time.Duration) (ArtifactEntry, error)
	Open(token string) (io.ReadCloser, ArtifactEntry, error)
	Sweep(now time.Time) []ArtifactEntry
	Len() int
}

// ActivityRecorder receives audit entries.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
