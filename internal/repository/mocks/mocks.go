package mocks

import (
	"context"
	"io"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRecorder is a mock for schedule.ActivityRecorder.
type ActivityRecorder struct {
	mock.Mock
}

func (m *ActivityRecorder) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Renderer is a mock for schedule.Renderer.
type Renderer struct {
	mock.Mock
}

func (m *Renderer) Render(doc schedule.Document) ([]byte, error) {
	args := m.Called(doc)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

// ArtifactStore is a mock for schedule.ArtifactStore.
type ArtifactStore struct {
	mock.Mock
}

func (m *ArtifactStore) Save(key, filename string, data []byte) (string, error) {
	args := m.Called(key, filename, data)
	return args.String(0), args.Error(1)
}

func (m *ArtifactStore) Remove(location string) error {
	args := m.Called(location)
	return args.Error(0)
}

func (m *ArtifactStore) Check() error {
	args := m.Called()
	return args.Error(0)
}

// ArtifactRegistry is a mock for schedule.ArtifactRegistry.
type ArtifactRegistry struct {
	mock.Mock
}

func (m *ArtifactRegistry) Put(art schedule.ArtifactEntry, ttl time.Duration) (schedule.ArtifactEntry, error) {
	args := m.Called(art, ttl)
	return args.Get(0).(schedule.ArtifactEntry), args.Error(1)
}

func (m *ArtifactRegistry) Open(token string) (io.ReadCloser, schedule.ArtifactEntry, error) {
	args := m.Called(token)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(schedule.ArtifactEntry), args.Error(2)
}

func (m *ArtifactRegistry) Sweep(now time.Time) []schedule.ArtifactEntry {
	args := m.Called(now)
	if list, ok := args.Get(0).([]schedule.ArtifactEntry); ok {
		return list
	}
	return nil
}

func (m *ArtifactRegistry) Len() int {
	args := m.Called()
	return args.Int(0)
}
