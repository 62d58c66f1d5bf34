package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// logRequests logs each request once it completes. Successful polls of
// the status routes are debug so a dashboard refreshing every second does
// not drown the benchmark log; streams, client errors and server errors
// are raised.
func (s *Server) logRequests(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	path := ctx.URL().Path
	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if q := ctx.URL().RawQuery; q != "" {
		attrs = append(attrs, slog.String("query", q))
	}

	level := slog.LevelDebug
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case isStream(path):
		level = slog.LevelInfo
	}
	s.logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

func isStream(path string) bool {
	return path == "/api/events" || strings.HasSuffix(path, "/stream")
}
