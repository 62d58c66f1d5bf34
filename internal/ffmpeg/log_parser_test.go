package ffmpeg

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[error] Could not open /dev/video1", "error", "Could not open /dev/video1"},
		{"[video4linux2,v4l2 @ 0x55d0] [warning] dequeued v4l2 buffer", "warning", "[video4linux2,v4l2 @ 0x55d0] dequeued v4l2 buffer"},
		{"plain output", "info", "plain output"},
		{"[h264 @ 0x1] no level here", "info", "[h264 @ 0x1] no level here"},
		{"[", "info", "["},
	}
	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = %q, %q; want %q, %q", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"fatal":   slog.LevelError,
		"error":   slog.LevelError,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
