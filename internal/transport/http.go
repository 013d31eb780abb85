package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/ganot/cronograma-mcp/internal/mcp"
)

// ArtifactService defines the operations the HTTP routes need.
type ArtifactService interface {
	Fetch(ctx context.Context, token string) (*schedule.Download, error)
	Health(ctx context.Context) schedule.HealthStatus
}

// Options configures the HTTP router.
type Options struct {
	// MCP is mounted at /mcp when set.
	MCP           http.Handler
	DownloadRate  rate.Limit
	DownloadBurst int
	Logger        *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	artifacts ArtifactService
	logger    *slog.Logger
}

// NewServer creates the router: /health, /download/:token and optionally /mcp.
func NewServer(artifacts ArtifactService, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	srv := &Server{artifacts: artifacts, logger: logger}

	r.GET("/health", srv.handleHealth)
	r.GET("/download/:token", RateLimit(opts.DownloadRate, opts.DownloadBurst), srv.handleDownload)

	if opts.MCP != nil {
		r.Any("/mcp", gin.WrapH(opts.MCP))
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, mcp.HealthResponse{OK: true, HealthStatus: s.artifacts.Health(c.Request.Context())})
}

func (s *Server) handleDownload(c *gin.Context) {
	token := c.Param("token")

	dl, err := s.artifacts.Fetch(c.Request.Context(), token)
	if err != nil {
		apiErr := mcp.MapError(err)
		status := http.StatusBadRequest
		switch apiErr.Code {
		case mcp.CodeNotFound:
			status = http.StatusNotFound
		case mcp.CodeInternal:
			status = http.StatusInternalServerError
			s.logger.Error("download failed", "error", err)
		}
		c.JSON(status, apiErr.Response())
		return
	}
	defer dl.Close()

	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl, map[string]string{
		"Content-Disposition": contentDisposition(dl.Filename),
	})
}

// requestLogger logs through slog; gin's default logger writes to stdout,
// which belongs to JSON-RPC in stdio mode.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}
