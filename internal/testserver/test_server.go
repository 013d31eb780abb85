package testserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/ganot/cronograma-mcp/internal/mcp"
	"github.com/ganot/cronograma-mcp/internal/registry"
	"github.com/ganot/cronograma-mcp/internal/render"
	"github.com/ganot/cronograma-mcp/internal/sqlite"
	"github.com/ganot/cronograma-mcp/internal/storage"
	"github.com/ganot/cronograma-mcp/internal/transport"
)

// Clock is a settable time source shared by the service and the registry.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestServer runs the full stack behind one httptest server: MCP at /mcp,
// downloads at /download/:token and /health.
type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Schedules *schedule.Service
	Registry  *registry.Registry
	Dir       string
	Clock     *Clock
}

// Options tweak the stack under test.
type Options struct {
	MaxRows int
	TTL     time.Duration
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	dir := filepath.Join(t.TempDir(), "outputs")
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)

	clock := &Clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	reg := registry.New(registry.WithClock(clock.Now), registry.WithRemover(store.Remove))

	// The base URL is only known once the listener exists.
	var router http.Handler
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	schedules := schedule.NewService(render.NewXLSX(""), store, reg, activitySvc, nil, schedule.Options{
		DefaultMaxRows: opts.MaxRows,
		TTL:            opts.TTL,
		BaseURL:        server.URL,
		Now:            clock.Now,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{Schedules: schedules, Activity: activitySvc},
		Version:  "test",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 5 * time.Minute},
	)
	router = transport.NewServer(schedules, transport.Options{MCP: mcpHandler})

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:    server,
		DB:        db,
		Schedules: schedules,
		Registry:  reg,
		Dir:       store.Dir(),
		Clock:     clock,
	}
}
