package api

import (
	"net/http"

	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/pipeline"
	"github.com/smazurov/picambench/internal/session"
	"github.com/smazurov/picambench/internal/telemetry"
)

// StatusProvider is the view of a session the API reads from.
// *session.Session satisfies it.
type StatusProvider interface {
	State() session.State
	Label() string
	Dir() string
	Latest() (telemetry.Status, bool)
}

// Options configures the status API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Session           StatusProvider
	Config            pipeline.Config
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}
