package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/time/rate"

	"github.com/ganot/cronograma-mcp/internal/config"
	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/ganot/cronograma-mcp/internal/mcp"
	"github.com/ganot/cronograma-mcp/internal/registry"
	"github.com/ganot/cronograma-mcp/internal/render"
	"github.com/ganot/cronograma-mcp/internal/sqlite"
	"github.com/ganot/cronograma-mcp/internal/storage"
	"github.com/ganot/cronograma-mcp/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Server.Transport == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewDiskStore(cfg.Artifacts.OutputDir)
	if err != nil {
		return fmt.Errorf("prepare output dir: %w", err)
	}

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	reg := registry.New(registry.WithLogger(logger), registry.WithRemover(store.Remove))
	schedules := schedule.NewService(render.NewXLSX(""), store, reg, activitySvc, logger, schedule.Options{
		DefaultMaxRows: cfg.Schedule.MaxRows,
		TTL:            cfg.TTL(),
		SweepInterval:  time.Duration(cfg.Artifacts.SweepInterval),
		BaseURL:        cfg.Server.BaseURL,
		FormatVersion:  cfg.Schedule.FormatVersion,
	})

	janitor, err := registry.NewJanitor(schedules.Sweep, time.Duration(cfg.Artifacts.SweepInterval), logger)
	if err != nil {
		return err
	}
	janitor.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := janitor.Stop(ctx); err != nil {
			logger.Warn("janitor stop", "error", err)
		}
	}()

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{Schedules: schedules, Activity: activitySvc},
		Logger:   logger,
		Version:  version,
	})

	gin.SetMode(gin.ReleaseMode)
	opts := transport.Options{
		DownloadRate:  rate.Limit(cfg.Download.Rate),
		DownloadBurst: cfg.Download.Burst,
		Logger:        logger,
	}
	if cfg.Server.Transport == "http" {
		opts.MCP = sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		)
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           transport.NewServer(schedules, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Downloads are served over HTTP in both modes.
	httpErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "transport", cfg.Server.Transport)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("download listener failed", "addr", httpServer.Addr, "error", err)
			httpErr <- err
		}
		close(httpErr)
	}()

	var runMCP func(context.Context) error
	if cfg.Server.Transport == "stdio" {
		logger.Info("starting stdio transport")
		runMCP = func(ctx context.Context) error {
			return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
		}
	}
	runErr := waitForExit(ctx, httpErr, runMCP)

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return runErr
}

// waitForExit blocks until ctx ends, the download listener fails, or runMCP
// returns. runMCP may be nil when MCP is mounted on the HTTP server.
func waitForExit(ctx context.Context, listenErr <-chan error, runMCP func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mcpErr := make(chan error, 1)
	if runMCP != nil {
		go func() { mcpErr <- runMCP(ctx) }()
	}

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-listenErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("download listener: %w", err)
	case err := <-mcpErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and trims it to the newest keepLogSizeBytes
// once it grows past maxLogSizeBytes.
type logFileWriter struct {
	file *os.File
	mu   sync.Mutex
	max  int64
	keep int64
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{file: file, max: maxLogSizeBytes, keep: keepLogSizeBytes}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.truncateIfNeeded()
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= w.max {
		return nil
	}

	tail := make([]byte, w.keep)
	n, err := w.file.ReadAt(tail, size-w.keep)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end after truncation.
	_, err = w.file.Write(tail[:n])
	return err
}
