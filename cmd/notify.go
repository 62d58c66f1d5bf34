package cmd

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/session"
)

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// notifySystemd reports readiness and shutdown to systemd when running as a
// Type=notify unit. Outside systemd the notifications are no-ops.
func notifySystemd(bus *events.Bus, logger *slog.Logger) func() {
	return bus.Subscribe(func(e events.SessionStateChangedEvent) {
		state, ok := sdState(e)
		if !ok {
			return
		}
		if _, err := sdNotify(false, state); err != nil {
			logger.Debug("systemd notify failed", "state", state, "error", err)
		}
	})
}

func sdState(e events.SessionStateChangedEvent) (string, bool) {
	switch session.State(e.State) {
	case session.StateRunning:
		return daemon.SdNotifyReady + "\n" + fmt.Sprintf("STATUS=capturing from %s", e.Source), true
	case session.StateDraining:
		return daemon.SdNotifyStopping, true
	default:
		return "", false
	}
}
