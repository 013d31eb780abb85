// Package registry keeps short-lived download tokens for rendered artifacts.
package registry

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/ganot/cronograma-mcp/internal/repository"
)

// tokenBytes gives 256 bits of entropy per token.
const tokenBytes = 32

// ErrInvalidTTL indicates a non-positive time-to-live.
var ErrInvalidTTL = errors.New("ttl must be positive")

type entry struct {
	schedule.ArtifactEntry

	readers int
	evicted bool
}

// Registry maps opaque tokens to artifacts on disk. All map access happens
// under mu; file removal happens outside it. A file with open readers is
// removed by the last reader's Close instead of by the sweep.
type Registry struct {
	mu    sync.Mutex
	items map[string]*entry

	now    func() time.Time
	remove func(string) error
	random io.Reader
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used by Put and Get.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger used to report deletion failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRemover overrides file deletion.
func WithRemover(remove func(string) error) Option {
	return func(r *Registry) { r.remove = remove }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		items:  make(map[string]*entry),
		now:    time.Now,
		remove: os.Remove,
		random: rand.Reader,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put registers art under a fresh token valid for ttl and returns the stored entry.
func (r *Registry) Put(art schedule.ArtifactEntry, ttl time.Duration) (schedule.ArtifactEntry, error) {
	if ttl <= 0 {
		return schedule.ArtifactEntry{}, ErrInvalidTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var token string
	for {
		t, err := r.newToken()
		if err != nil {
			return schedule.ArtifactEntry{}, err
		}
		if _, taken := r.items[t]; !taken {
			token = t
			break
		}
	}

	now := r.now()
	art.Token = token
	art.CreatedAt = now
	art.ExpiresAt = now.Add(ttl)
	r.items[token] = &entry{ArtifactEntry: art}
	return art, nil
}

// Get returns the live entry for token. Unknown, expired and evicted tokens all
// yield repository.ErrNotFound. An entry whose file is gone is purged.
func (r *Registry) Get(token string) (schedule.ArtifactEntry, error) {
	e, err := r.lookup(token, false)
	if err != nil {
		return schedule.ArtifactEntry{}, err
	}
	if _, err := os.Stat(e.Location); err != nil {
		r.invalidate(token, e)
		return schedule.ArtifactEntry{}, repository.ErrNotFound
	}
	return e.ArtifactEntry, nil
}

// Open returns a reader over the artifact behind token. The caller must Close it.
func (r *Registry) Open(token string) (io.ReadCloser, schedule.ArtifactEntry, error) {
	e, err := r.lookup(token, true)
	if err != nil {
		return nil, schedule.ArtifactEntry{}, err
	}

	f, err := os.Open(e.Location)
	if err != nil {
		r.release(e)
		if errors.Is(err, fs.ErrNotExist) {
			r.invalidate(token, e)
			return nil, schedule.ArtifactEntry{}, repository.ErrNotFound
		}
		return nil, schedule.ArtifactEntry{}, fmt.Errorf("open artifact: %w", err)
	}
	return &reader{File: f, reg: r, e: e}, e.ArtifactEntry, nil
}

// Sweep evicts every entry that expired before now, deletes its file unless a
// reader still holds it, and returns the evicted entries. A failed deletion is
// logged and does not stop the sweep.
func (r *Registry) Sweep(now time.Time) []schedule.ArtifactEntry {
	var evicted []schedule.ArtifactEntry
	var doomed []string

	r.mu.Lock()
	for token, e := range r.items {
		if !e.ExpiresAt.Before(now) {
			continue
		}
		delete(r.items, token)
		e.evicted = true
		evicted = append(evicted, e.ArtifactEntry)
		if e.readers == 0 {
			doomed = append(doomed, e.Location)
		}
	}
	r.mu.Unlock()

	for _, loc := range doomed {
		r.removeFile(loc)
	}
	return evicted
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Registry) lookup(token string, acquire bool) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[token]
	if !ok || e.ExpiresAt.Before(r.now()) {
		return nil, repository.ErrNotFound
	}
	if acquire {
		e.readers++
	}
	return e, nil
}

// invalidate drops token only if it still maps to e.
func (r *Registry) invalidate(token string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.items[token]; ok && cur == e {
		delete(r.items, token)
		e.evicted = true
	}
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	e.readers--
	orphaned := e.evicted && e.readers == 0
	r.mu.Unlock()

	if orphaned {
		r.removeFile(e.Location)
	}
}

func (r *Registry) removeFile(loc string) {
	if err := r.remove(loc); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Error("failed to remove expired artifact", "error", err)
	}
}

func (r *Registry) newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r.random, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// reader keeps its artifact's file alive until Close.
type reader struct {
	*os.File

	reg  *Registry
	e    *entry
	once sync.Once
}

func (rd *reader) Close() error {
	err := rd.File.Close()
	rd.once.Do(func() { rd.reg.release(rd.e) })
	return err
}
