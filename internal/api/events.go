package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/picambench/internal/events"
)

// registerSSERoutes registers /api/events.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Session state transitions and telemetry samples as they are published",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"session-state": events.SessionStateChangedEvent{},
		"telemetry":     events.TelemetryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		if s.options.EventBus == nil {
			return
		}

		eventCh := make(chan any, 10)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.TelemetryEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Late subscribers start from the current state.
		if sess := s.options.Session; sess != nil {
			if err := send.Data(events.SessionStateChangedEvent{
				State:  string(sess.State()),
				Source: sess.Label(),
			}); err != nil {
				return
			}
		}

		pump(ctx, send, eventCh, nil)
	})
}

// pump forwards events from ch until ctx ends or a send fails because the
// client went away. keep, when non-nil, filters events.
func pump(ctx context.Context, send sse.Sender, ch <-chan any, keep func(any) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if keep != nil && !keep(ev) {
				continue
			}
			if err := send.Data(ev); err != nil {
				return
			}
		}
	}
}
