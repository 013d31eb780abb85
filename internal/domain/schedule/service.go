package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ganot/cronograma-mcp/internal/domain/activity"
	"github.com/ganot/cronograma-mcp/internal/repository"
)

const defaultServiceName = "cronograma-mcp"

// Options configures the facade. Zero values fall back to the defaults below.
type Options struct {
	ServiceName    string
	DefaultMaxRows int
	TTL            time.Duration
	SweepInterval  time.Duration
	BaseURL        string
	FormatVersion  string

	Now          func() time.Time
	NewRequestID func() string
}

func (o Options) withDefaults() Options {
	if o.ServiceName == "" {
		o.ServiceName = defaultServiceName
	}
	if o.DefaultMaxRows <= 0 {
		o.DefaultMaxRows = 500
	}
	if o.TTL <= 0 {
		o.TTL = 30 * time.Minute
	}
	if o.FormatVersion == "" {
		o.FormatVersion = "1.0.0"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewRequestID == nil {
		o.NewRequestID = uuid.NewString
	}
	return o
}

// Service orchestrates validation, aggregation, rendering and registration.
type Service struct {
	renderer Renderer
	store    ArtifactStore
	registry ArtifactRegistry
	activity ActivityRecorder
	logger   *slog.Logger
	opts     Options
}

// NewService creates the schedule facade. recorder may be nil.
func NewService(renderer Renderer, store ArtifactStore, registry ArtifactRegistry, recorder ActivityRecorder, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		renderer: renderer,
		store:    store,
		registry: registry,
		activity: recorder,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// SummaryView is the per-macro breakdown returned with a generated schedule.
type SummaryView struct {
	MacroCount int          `json:"macro_count"`
	MicroCount int          `json:"micro_count"`
	Macros     []MacroTotal `json:"macros"`
}

// GenerateResult describes a rendered and registered artifact.
type GenerateResult struct {
	RequestID                   string      `json:"request_id"`
	FormatVersion               string      `json:"format_version"`
	ProjectName                 string      `json:"project_name"`
	ProjectTotalHours           float64     `json:"project_total_hours"`
	ProjectTotalDurationDisplay string      `json:"project_total_duration_display"`
	Filename                    string      `json:"filename"`
	MimeType                    string      `json:"mime_type"`
	SizeBytes                   int64       `json:"size_bytes"`
	SHA256                      string      `json:"sha256"`
	Base64                      string      `json:"base64"`
	DownloadURL                 string      `json:"download_url"`
	DownloadExpiresAt           time.Time   `json:"download_expires_at"`
	Summary                     SummaryView `json:"summary"`
}

// Preview is the validation-only view of a schedule.
type Preview struct {
	ProjectName                 string  `json:"project_name"`
	ProjectTotalHours           float64 `json:"project_total_hours"`
	ProjectTotalDurationDisplay string  `json:"project_total_duration_display"`
	MacroCount                  int     `json:"macro_count"`
	MicroCount                  int     `json:"micro_count"`
	RowCount                    int     `json:"row_count"`
}

// Download is an open artifact stream. The caller must Close it.
type Download struct {
	io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// HealthStatus reports service readiness without exposing paths.
type HealthStatus struct {
	Service              string `json:"service"`
	Status               string `json:"status"`
	Writable             bool   `json:"writable"`
	DefaultMaxRows       int    `json:"default_max_rows"`
	TTLMinutes           int    `json:"ttl_minutes"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
	ActiveArtifacts      int    `json:"active_artifacts"`
	FormatVersion        string `json:"format_version"`
}

// Generate validates, aggregates and renders req, stores the artifact and
// registers a download token. Nothing is registered unless every prior step
// succeeded.
func (s *Service) Generate(ctx context.Context, req *Request) (*GenerateResult, error) {
	s.Sweep(ctx)

	requestID := s.opts.NewRequestID()
	logger := s.logger.With("request_id", requestID)

	rows, err := Validate(req, s.opts.DefaultMaxRows)
	if err != nil {
		logger.Info("schedule rejected", "error", err)
		s.recordRejection(ctx, requestID, req, err)
		return nil, err
	}

	summary := Summarize(req)
	now := s.opts.Now()
	doc := Document{
		RequestID:     requestID,
		FormatVersion: req.FormatVersion(s.opts.FormatVersion),
		SheetName:     req.SheetName(),
		Filename:      ArtifactFilename(req.Project.Name, now),
		GeneratedAt:   now,
		Request:       req,
		Summary:       summary,
	}

	data, err := s.renderer.Render(doc)
	if err != nil {
		logger.Error("render failed", "error", err)
		return nil, fmt.Errorf("rendering schedule: %w", err)
	}

	location, err := s.store.Save(requestID, doc.Filename, data)
	if err != nil {
		logger.Error("saving artifact failed", "error", err)
		return nil, fmt.Errorf("saving artifact: %w", err)
	}

	art, err := s.registry.Put(ArtifactEntry{
		Location: location,
		Filename: doc.Filename,
		Size:     int64(len(data)),
	}, s.opts.TTL)
	if err != nil {
		if rmErr := s.store.Remove(location); rmErr != nil {
			logger.Warn("removing unregistered artifact failed", "error", rmErr)
		}
		logger.Error("registering artifact failed", "error", err)
		return nil, fmt.Errorf("registering artifact: %w", err)
	}

	digest := sha256.Sum256(data)
	result := &GenerateResult{
		RequestID:                   requestID,
		FormatVersion:               doc.FormatVersion,
		ProjectName:                 req.Project.Name,
		ProjectTotalHours:           summary.TotalHours,
		ProjectTotalDurationDisplay: summary.DurationDisplay,
		Filename:                    doc.Filename,
		MimeType:                    ContentType,
		SizeBytes:                   art.Size,
		SHA256:                      hex.EncodeToString(digest[:]),
		Base64:                      base64.StdEncoding.EncodeToString(data),
		DownloadURL:                 s.opts.BaseURL + "/download/" + art.Token,
		DownloadExpiresAt:           art.ExpiresAt,
		Summary: SummaryView{
			MacroCount: summary.MacroCount,
			MicroCount: summary.MicroCount,
			Macros:     summary.Macros,
		},
	}

	logger.Info("schedule generated",
		"project", req.Project.Name,
		"rows", rows,
		"size_bytes", art.Size,
		"expires_at", art.ExpiresAt,
	)
	s.record(ctx, &activity.ActivityEntry{
		RequestID:    requestID,
		ActivityType: activity.TypeScheduleGenerated,
		ProjectName:  req.Project.Name,
		Filename:     doc.Filename,
		Summary:      fmt.Sprintf("generated %d rows (%s)", rows, summary.DurationDisplay),
		Details:      detailsJSON(map[string]any{"rows": rows, "size_bytes": art.Size, "sha256": result.SHA256}),
	})
	return result, nil
}

// Validate checks req and returns a preview. It never touches the
// filesystem or the registry.
func (s *Service) Validate(ctx context.Context, req *Request) (*Preview, error) {
	// No Sweep here: previews leave the registry alone.
	rows, err := Validate(req, s.opts.DefaultMaxRows)
	if err != nil {
		s.logger.Debug("schedule preview rejected", "error", err)
		return nil, err
	}
	summary := Summarize(req)
	return &Preview{
		ProjectName:                 req.Project.Name,
		ProjectTotalHours:           summary.TotalHours,
		ProjectTotalDurationDisplay: summary.DurationDisplay,
		MacroCount:                  summary.MacroCount,
		MicroCount:                  summary.MicroCount,
		RowCount:                    rows,
	}, nil
}

// Fetch opens the artifact behind token. Unknown, expired and unreadable
// tokens all yield ErrArtifactNotFound.
func (s *Service) Fetch(ctx context.Context, token string) (*Download, error) {
	s.Sweep(ctx)

	if strings.TrimSpace(token) == "" {
		return nil, ErrArtifactNotFound
	}
	rc, art, err := s.registry.Open(token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("opening artifact: %w", err)
	}

	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeArtifactDownloaded,
		Filename:     art.Filename,
		Summary:      "artifact downloaded",
	})
	return &Download{
		ReadCloser:  rc,
		Filename:    art.Filename,
		ContentType: ContentType,
		Size:        art.Size,
	}, nil
}

// Sweep evicts expired artifacts and returns how many were evicted.
func (s *Service) Sweep(ctx context.Context) int {
	evicted := s.registry.Sweep(s.opts.Now())
	for _, art := range evicted {
		s.record(ctx, &activity.ActivityEntry{
			ActivityType: activity.TypeArtifactExpired,
			Filename:     art.Filename,
			Summary:      "artifact expired",
		})
	}
	if len(evicted) > 0 {
		s.logger.Info("expired artifacts evicted", "count", len(evicted))
	}
	return len(evicted)
}

// Health reports readiness. The service is degraded when the output
// directory cannot accept new files.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Service:              s.opts.ServiceName,
		Status:               "healthy",
		Writable:             true,
		DefaultMaxRows:       s.opts.DefaultMaxRows,
		TTLMinutes:           int(s.opts.TTL / time.Minute),
		SweepIntervalSeconds: int(s.opts.SweepInterval / time.Second),
		ActiveArtifacts:      s.registry.Len(),
		FormatVersion:        s.opts.FormatVersion,
	}
	if err := s.store.Check(); err != nil {
		s.logger.Warn("output directory check failed", "error", err)
		status.Status = "degraded"
		status.Writable = false
	}
	return status
}

func (s *Service) recordRejection(ctx context.Context, requestID string, req *Request, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return
	}
	var project string
	if req != nil && req.Project != nil {
		project = req.Project.Name
	}
	s.record(ctx, &activity.ActivityEntry{
		RequestID:    requestID,
		ActivityType: activity.TypeScheduleRejected,
		ProjectName:  project,
		Summary:      fmt.Sprintf("%s: %d issue(s)", verr.Kind, len(verr.Issues)),
		Details:      detailsJSON(verr.Issues),
	})
}

func (s *Service) record(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
	}
}

func detailsJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
