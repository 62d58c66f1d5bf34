package ffmpeg

import (
	"log/slog"
	"strings"
)

// ParseLogLevel extracts the log level from ffmpeg output.
// With -loglevel level+<lvl> ffmpeg prefixes lines with "[lvl] " or
// "[component @ 0x...] [lvl] ". The component prefix is kept in msg.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	if bracket := line[1:end]; isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			if next := rest[1:nextEnd]; isLogLevel(next) {
				return next, component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

// SlogLevel maps an ffmpeg level name onto slog.
func SlogLevel(level string) slog.Level {
	switch level {
	case "quiet", "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "verbose", "debug", "trace":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
