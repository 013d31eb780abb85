package registry_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/ganot/cronograma-mcp/internal/registry"
	"github.com/ganot/cronograma-mcp/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_PutAndGet(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc, Filename: "a.xlsx", Size: 4}, 30*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, art.Token)
	require.Equal(t, clock.Now(), art.CreatedAt)
	require.Equal(t, clock.Now().Add(30*time.Minute), art.ExpiresAt)
	require.Equal(t, 1, reg.Len())

	got, err := reg.Get(art.Token)
	require.NoError(t, err)
	require.Equal(t, art, got)
}

func TestRegistry_TokensAreUniqueAndWide(t *testing.T) {
	reg := registry.New()
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	seen := make(map[string]bool)
	for range 100 {
		art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Minute)
		require.NoError(t, err)
		// 32 random bytes, unpadded base64url.
		require.Len(t, art.Token, 43)
		require.False(t, seen[art.Token])
		seen[art.Token] = true
	}
}

func TestRegistry_PutRejectsNonPositiveTTL(t *testing.T) {
	reg := registry.New()
	_, err := reg.Put(schedule.ArtifactEntry{Location: "x"}, 0)
	require.ErrorIs(t, err, registry.ErrInvalidTTL)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_SweepEvictsAndDeletes(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	dir := t.TempDir()
	expiring := writeArtifact(t, dir, "old.xlsx", "old")
	fresh := writeArtifact(t, dir, "new.xlsx", "new")

	oldArt, err := reg.Put(schedule.ArtifactEntry{Location: expiring}, time.Minute)
	require.NoError(t, err)
	newArt, err := reg.Put(schedule.ArtifactEntry{Location: fresh}, time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	evicted := reg.Sweep(clock.Now())
	require.Len(t, evicted, 1)
	require.Equal(t, oldArt.Token, evicted[0].Token)

	_, err = reg.Get(oldArt.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoFileExists(t, expiring)

	_, err = reg.Get(newArt.Token)
	require.NoError(t, err)
	require.FileExists(t, fresh)
}

func TestRegistry_SweepKeepsEntryExpiringExactlyNow(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Minute)
	require.NoError(t, err)

	require.Empty(t, reg.Sweep(art.ExpiresAt))
	require.Len(t, reg.Sweep(art.ExpiresAt.Add(time.Nanosecond)), 1)
}

func TestRegistry_UnknownAndExpiredAreIndistinguishable(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Minute)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	reg.Sweep(clock.Now())

	_, expiredErr := reg.Get(art.Token)
	_, unknownErr := reg.Get("never-issued")
	require.ErrorIs(t, expiredErr, repository.ErrNotFound)
	require.ErrorIs(t, unknownErr, repository.ErrNotFound)
	require.Equal(t, expiredErr.Error(), unknownErr.Error())
}

func TestRegistry_ExpiredButUnsweptIsNotFound(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	_, err = reg.Get(art.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, _, err = reg.Open(art.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegistry_MissingFilePurgesEntry(t *testing.T) {
	reg := registry.New()
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "data")

	first, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Hour)
	require.NoError(t, err)
	second, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, os.Remove(loc))

	_, err = reg.Get(first.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, _, err = reg.Open(second.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_TokenIsReusableUntilExpiry(t *testing.T) {
	reg := registry.New()
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "payload")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc, Filename: "a.xlsx"}, time.Hour)
	require.NoError(t, err)

	for range 3 {
		rc, entry, err := reg.Open(art.Token)
		require.NoError(t, err)
		require.Equal(t, "a.xlsx", entry.Filename)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "payload", string(body))
		require.NoError(t, rc.Close())
	}
}

func TestRegistry_SweepDefersDeletionWhileReading(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "a.xlsx", "still streaming")

	art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Minute)
	require.NoError(t, err)

	rc, _, err := reg.Open(art.Token)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.Len(t, reg.Sweep(clock.Now()), 1)

	// Token is gone, but the open download keeps its file.
	_, err = reg.Get(art.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.FileExists(t, loc)

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "still streaming", string(body))

	require.NoError(t, rc.Close())
	require.NoFileExists(t, loc)

	// Double close must not release twice.
	_ = rc.Close()
}

func TestRegistry_SweepSurvivesDeletionFailure(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	bad := writeArtifact(t, dir, "bad.xlsx", "x")
	good := writeArtifact(t, dir, "good.xlsx", "y")

	reg := registry.New(
		registry.WithClock(clock.Now),
		registry.WithRemover(func(path string) error {
			if path == bad {
				return errors.New("permission denied")
			}
			return os.Remove(path)
		}),
	)

	_, err := reg.Put(schedule.ArtifactEntry{Location: bad}, time.Minute)
	require.NoError(t, err)
	_, err = reg.Put(schedule.ArtifactEntry{Location: good}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.Len(t, reg.Sweep(clock.Now()), 2)
	require.Equal(t, 0, reg.Len())
	require.NoFileExists(t, good)
	require.FileExists(t, bad)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	clock := newClock()
	reg := registry.New(registry.WithClock(clock.Now))
	loc := writeArtifact(t, t.TempDir(), "shared.xlsx", "data")

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				art, err := reg.Put(schedule.ArtifactEntry{Location: loc}, time.Hour)
				if err != nil {
					t.Error(err)
					return
				}
				if rc, _, err := reg.Open(art.Token); err == nil {
					_ = rc.Close()
				}
				if i%4 == 0 {
					reg.Sweep(clock.Now())
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 16*50, reg.Len())
}
