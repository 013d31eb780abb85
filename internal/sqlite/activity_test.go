package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	entry1 := &activity.ActivityEntry{
		RequestID:    "req-1",
		ActivityType: activity.TypeScheduleGenerated,
		ProjectName:  "Alpha",
		Filename:     "Cronograma - Alpha - 2025-03-14.xlsx",
		Summary:      "generated 4 rows (12:00:00)",
		Details:      `{"rows":4}`,
		CreatedAt:    base,
	}
	entry2 := &activity.ActivityEntry{
		ActivityType: activity.TypeArtifactDownloaded,
		Filename:     "Cronograma - Alpha - 2025-03-14.xlsx",
		Summary:      "artifact downloaded",
		CreatedAt:    base.Add(time.Minute),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)
	require.NotEqual(t, entry1.ID, entry2.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)

	got := entries[1]
	require.Equal(t, "req-1", got.RequestID)
	require.Equal(t, "Alpha", got.ProjectName)
	require.Equal(t, `{"rows":4}`, got.Details)
	require.True(t, base.Equal(got.CreatedAt))
	require.Empty(t, entries[0].RequestID)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, typ := range []activity.ActivityType{
		activity.TypeScheduleGenerated,
		activity.TypeScheduleRejected,
		activity.TypeScheduleGenerated,
		activity.TypeArtifactExpired,
	} {
		entry := &activity.ActivityEntry{
			ActivityType: typ,
			Summary:      string(typ),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			entry.RequestID = "req-a"
		}
		require.NoError(t, repo.Log(ctx, entry))
	}

	generated := activity.TypeScheduleGenerated
	entries, err := repo.List(ctx, activity.ListActivityOptions{ActivityType: &generated})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, activity.ListActivityOptions{RequestID: "req-a"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, activity.TypeScheduleGenerated, entries[0].ActivityType)
	require.Equal(t, activity.TypeScheduleRejected, entries[1].ActivityType)
}

func TestActivityRepository_WithService(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	svc := activity.NewService(NewActivityRepository(db), nil)

	require.NoError(t, svc.LogActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeScheduleRejected,
		Summary:      "VALIDATION_ERROR: 1 issue(s)",
	}))

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].CreatedAt.IsZero())
}
