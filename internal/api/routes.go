package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/picambench/internal/api/models"
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/version"
)

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Session status",
		Description: "Session state, resolved source, pipeline configuration and the latest telemetry sample",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		if s.options.Session == nil {
			return nil, huma.Error503ServiceUnavailable("no session")
		}
		return &models.StatusResponse{Body: s.statusData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent logs",
		Description: "Buffered log entries, oldest first",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		entries := filterLogs(logging.GetBuffer(), input.Module, input.Limit)
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})

	s.registerSSERoutes()
	s.registerLogRoutes()
}

func (s *Server) statusData() models.StatusData {
	sess := s.options.Session
	cfg := s.options.Config
	data := models.StatusData{
		State:  string(sess.State()),
		Source: sess.Label(),
		Dir:    sess.Dir(),
		Pipeline: models.PipelineData{
			Resolution: cfg.Resolution(),
			FPS:        cfg.FPS,
			Bitrate:    cfg.Bitrate,
			Encode:     string(cfg.Encode),
			Overlay:    cfg.Overlay,
		},
	}
	if cfg.Overlay {
		data.Pipeline.Corner = string(cfg.Corner)
	}
	if st, ok := sess.Latest(); ok {
		data.Latest = &st
	}
	return data
}

// filterLogs returns the newest buffered entries for module. A nil buffer
// (logging not initialized) yields an empty list rather than null.
func filterLogs(buffer *logging.RingBuffer, module string, limit int) []logging.LogEntry {
	if buffer == nil {
		return []logging.LogEntry{}
	}
	return buffer.Tail(module, limit)
}
