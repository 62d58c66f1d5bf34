// Package logging provides per-module slog loggers for picambench.
//
// Each module (main, devices, source, session, telemetry, ffmpeg, api)
// gets its own logger and level:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"session": "debug"},
//	})
//	logger := logging.GetLogger("session")
//	logger.Info("Pipeline running", "source", label)
//
// Loggers may be fetched before Initialize; they start at info and pick up
// the configured level and format when Initialize runs.
//
// Records go to up to three places:
//
//   - stderr as text or json, unless stderr is discarded;
//   - journald, when its socket is reachable, with attributes as
//     structured fields (journalctl -t picambench MODULE=ffmpeg);
//   - an in-memory history of the last [DefaultHistory] records, served by
//     the status API through [GetBuffer] and [SetLogCallback].
//
// TOML configuration lives under [logging]:
//
//	[logging]
//	level = "info"
//	format = "json"
//	ffmpeg = "warn"
package logging
