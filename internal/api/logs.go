package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/logging"
)

// LogStreamInput optionally narrows the log stream to one module.
type LogStreamInput struct {
	Module string `query:"module" doc:"Only stream records from this module" example:"ffmpeg"`
}

// registerLogRoutes registers /api/logs/stream.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Buffered records first, then new records as they are logged",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost.
		eventCh := make(chan any, 100)
		if s.options.EventBus != nil {
			unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.options.EventBus, eventCh)
			defer unsubscribe()
		}

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Tail(input.Module, 0) {
				if err := send.Data(LogEvent(entry)); err != nil {
					return
				}
			}
		}

		pump(ctx, send, eventCh, func(ev any) bool {
			e, ok := ev.(events.LogEntryEvent)
			return ok && (input.Module == "" || e.Module == input.Module)
		})
	})
}

// LogEvent converts a buffered entry into its event form.
func LogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
